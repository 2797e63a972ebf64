package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/patterns"
)

// Extractor applies a pattern set to one text blob.
type Extractor struct {
	set    *patterns.Set
	logger *slog.Logger
}

// NewExtractor returns an extractor over set; a nil set means patterns.Default().
func NewExtractor(set *patterns.Set, logger *slog.Logger) *Extractor {
	if set == nil {
		set = patterns.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{set: set, logger: logger}
}

// Extract returns the fields found in text. Each pattern is tried once,
// taking the first match; text is matched as-is.
func (e *Extractor) Extract(text string) entity.InvoiceRecord {
	found := make(map[string]string, len(constants.Columns))
	for _, p := range e.set.Patterns() {
		m := p.Regexp().FindStringSubmatch(text)
		for _, c := range p.Captures {
			if m != nil && c.Group < len(m) {
				found[c.Field] = m[c.Group]
			}
		}
	}

	var rec entity.InvoiceRecord
	for _, field := range constants.Columns {
		v, ok := found[field]
		if !ok {
			e.logger.Info("field not found", "field", field)
			continue
		}
		e.logger.Info("field found", "field", field, "value", v)
		switch field {
		case constants.FieldInvoiceNumber:
			rec.InvoiceNumber = &v
		case constants.FieldPeriodStart:
			rec.PeriodStart = &v
		case constants.FieldPeriodEnd:
			rec.PeriodEnd = &v
		case constants.FieldDueDate:
			rec.DueDate = &v
		}
	}
	return rec
}
