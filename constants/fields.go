package constants

// Field names as they appear in pattern files, diagnostics and table headers.
const (
	FieldInvoiceNumber = "invoiceNumber"
	FieldPeriodStart   = "periodStart"
	FieldPeriodEnd     = "periodEnd"
	FieldDueDate       = "dueDate"
)

// Columns is the published column order of stored rows and table rows.
// Display code depends on this exact order.
var Columns = []string{
	FieldInvoiceNumber,
	FieldPeriodStart,
	FieldPeriodEnd,
	FieldDueDate,
}

// StorageColumns maps Columns onto the invoices table, same order.
var StorageColumns = []string{
	"invoice_number",
	"period_start",
	"period_end",
	"due_date",
}

// InvoicesTable is the table created by EnsureSchema and read by FetchAll.
const InvoicesTable = "invoices"
