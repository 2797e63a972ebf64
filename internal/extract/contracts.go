package extract

import (
	"context"

	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// TextDecoder is Stage 1: document -> text.
// Decode must be deterministic for identical input; a failure is an error,
// never an empty string.
type TextDecoder interface {
	Decode(ctx context.Context, doc entity.Document) (string, error)
}

// FieldExtractor is Stage 2: text -> sparse invoice record.
type FieldExtractor interface {
	Extract(text string) entity.InvoiceRecord
}
