package entity

// InvoiceRecord is the sparse result of field extraction for one document.
// A nil field was not found in the text.
type InvoiceRecord struct {
	InvoiceNumber *string `json:"invoice_number,omitempty"`
	PeriodStart   *string `json:"period_start,omitempty"`
	PeriodEnd     *string `json:"period_end,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`
}

// Values returns the four fields in published column order.
func (r InvoiceRecord) Values() []*string {
	return []*string{r.InvoiceNumber, r.PeriodStart, r.PeriodEnd, r.DueDate}
}

// StoredInvoiceRow is an invoice as read back from durable storage.
type StoredInvoiceRow struct {
	InvoiceNumber string `json:"invoice_number"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`
	DueDate       string `json:"due_date"`
}

// Cells returns the row's values in published column order.
func (r StoredInvoiceRow) Cells() []string {
	return []string{r.InvoiceNumber, r.PeriodStart, r.PeriodEnd, r.DueDate}
}

// TableRow is one display row: a cell per stored column, no identity.
type TableRow []string
