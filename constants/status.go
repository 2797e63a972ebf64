package constants

// Outcome is the terminal state of one document run through the pipeline.
type Outcome string

// Stable values, used as log attributes and in HTTP responses.
const (
	OutcomePersisted  Outcome = "PERSISTED"  // complete record written
	OutcomeIncomplete Outcome = "INCOMPLETE" // rejected by the validator, nothing written
	OutcomeDecodeFail Outcome = "DECODE_FAILED"
	OutcomeStoreFail  Outcome = "STORE_FAILED"
)
