// Package table turns stored invoice rows into display rows.
package table

import (
	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// Header returns the column labels, in the same order as every projected row.
func Header() []string {
	out := make([]string, len(constants.Columns))
	copy(out, constants.Columns)
	return out
}

// Project maps stored rows to fresh table rows. It never returns nil.
func Project(rows []entity.StoredInvoiceRow) []entity.TableRow {
	out := make([]entity.TableRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, entity.TableRow(r.Cells()))
	}
	return out
}
