package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
	"github.com/joseph-ayodele/invoice-scanner/internal/table"
)

// Sheet is the name of the only worksheet in an export.
const Sheet = "Invoices"

var headerLabels = map[string]string{
	"invoiceNumber": "Invoice Number",
	"periodStart":   "Period Start",
	"periodEnd":     "Period End",
	"dueDate":       "Due Date",
}

// Service renders stored invoices as an XLSX workbook.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: repo, logger: logger}
}

// InvoicesXLSX returns a workbook (as bytes) with one header row and one row per stored invoice.
func (s *Service) InvoicesXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	stored, err := s.invoices.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	rows := table.Project(stored)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// excelize starts with "Sheet1"; rename it instead of adding a second sheet.
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return nil, err
	}

	for i, h := range table.Header() {
		label := headerLabels[h]
		if label == "" {
			label = h
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, label)
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			// dates stay text; they are free-form localized strings
			_ = f.SetCellStr(Sheet, cell, v)
		}
	}

	_ = f.SetColWidth(Sheet, "A", "A", 20) // invoice number
	_ = f.SetColWidth(Sheet, "B", "C", 24) // period
	_ = f.SetColWidth(Sheet, "D", "D", 14) // due date

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
