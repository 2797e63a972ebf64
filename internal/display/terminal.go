package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
	"github.com/joseph-ayodele/invoice-scanner/internal/table"
)

// Terminal renders rows as an ASCII table and prints notifications.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) ReplaceRows(rows []entity.TableRow) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(rows) == 0 {
		fmt.Fprintln(t.w, "no data")
		return
	}
	tw := tablewriter.NewWriter(t.w)
	tw.SetHeader(table.Header())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, r := range rows {
		tw.Append(r)
	}
	tw.Render()
}

func (t *Terminal) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "! %s\n", msg)
}
