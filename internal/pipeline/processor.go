package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/display"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
)

// Outcome describes what happened to one document.
type Outcome struct {
	Status constants.Outcome    `json:"status"`
	Record entity.InvoiceRecord `json:"record"`
	// Missing lists the fields the extractor did not find.
	Missing []string `json:"missing,omitempty"`
}

// Persisted reports whether a row was written.
func (o Outcome) Persisted() bool { return o.Status == constants.OutcomePersisted }

// Processor coordinates decode, field extraction, validation and insert.
type Processor struct {
	Logger   *slog.Logger
	Decoder  extract.TextDecoder
	Fields   extract.FieldExtractor
	Invoices repository.InvoiceRepository
	Notifier display.Notifier
	// Recorder, when set, sees every ProcessDocument outcome.
	Recorder OutcomeRecorder
}

// OutcomeRecorder receives the status and wall time of each processed document.
type OutcomeRecorder interface {
	RecordOutcome(status constants.Outcome, elapsed time.Duration)
}

func NewProcessor(
	logger *slog.Logger,
	decoder extract.TextDecoder,
	fields extract.FieldExtractor,
	invoices repository.InvoiceRepository,
	notifier display.Notifier,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = display.NopNotifier{}
	}
	return &Processor{Logger: logger, Decoder: decoder, Fields: fields, Invoices: invoices, Notifier: notifier}
}

// ProcessDocument decodes doc and hands the text to ProcessText.
// Nothing is extracted when decoding fails.
func (p *Processor) ProcessDocument(ctx context.Context, doc entity.Document) (Outcome, error) {
	start := time.Now()
	out, err := p.processDocument(ctx, doc)
	if p.Recorder != nil {
		p.Recorder.RecordOutcome(out.Status, time.Since(start))
	}
	return out, err
}

func (p *Processor) processDocument(ctx context.Context, doc entity.Document) (Outcome, error) {
	logger := p.Logger.With("document", doc.Name, "document_id", doc.ID)
	if id := common.RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	if p.Decoder == nil {
		return Outcome{Status: constants.OutcomeDecodeFail}, common.DecodeError("no decoder configured", errors.New("nil decoder"))
	}

	text, err := p.Decoder.Decode(ctx, doc)
	if err != nil {
		logger.Error("processor.decode.failed", "error", err)
		p.Notifier.Notify(fmt.Sprintf("could not read %s", doc.Name))
		if !errors.Is(err, common.ErrDecode) {
			err = common.DecodeError("decode "+doc.Name, err)
		}
		return Outcome{Status: constants.OutcomeDecodeFail}, err
	}
	logger.Info("processor.decode.ok", "chars", len([]rune(text)))

	return p.processText(ctx, text, logger)
}

// ProcessText runs extraction, validation and (for complete records) one insert.
// An incomplete record is not an error.
func (p *Processor) ProcessText(ctx context.Context, text string) (Outcome, error) {
	return p.processText(ctx, text, p.Logger)
}

func (p *Processor) processText(ctx context.Context, text string, logger *slog.Logger) (Outcome, error) {
	rec := p.Fields.Extract(text)
	out := Outcome{Record: rec, Missing: common.MissingFields(rec)}

	if !common.IsComplete(rec) {
		logger.Info("processor.record.incomplete", "missing", out.Missing)
		out.Status = constants.OutcomeIncomplete
		return out, nil
	}

	if err := p.Invoices.Insert(ctx, rec); err != nil {
		logger.Error("processor.insert.failed", "invoice_number", *rec.InvoiceNumber, "error", err)
		p.Notifier.Notify(fmt.Sprintf("invoice %s was not saved", *rec.InvoiceNumber))
		out.Status = constants.OutcomeStoreFail
		return out, err
	}
	logger.Info("processor.insert.ok", "invoice_number", *rec.InvoiceNumber)
	out.Status = constants.OutcomePersisted
	return out, nil
}
