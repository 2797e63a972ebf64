// Package display defines what the core needs from a user-facing surface and
// ships a terminal implementation.
package display

import "github.com/joseph-ayodele/invoice-scanner/internal/entity"

// Sink replaces the rows currently shown. Called only from the display's
// own execution context (see Dispatcher).
type Sink interface {
	ReplaceRows(rows []entity.TableRow)
}

// Notifier shows a non-fatal message to the user.
type Notifier interface {
	Notify(msg string)
}

// Dispatcher runs f on the display's execution context.
type Dispatcher interface {
	Dispatch(f func()) bool
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}

// OnDisplay returns a Notifier that delivers each message to n on d's
// execution context. Messages are dropped once d has stopped.
func OnDisplay(d Dispatcher, n Notifier) Notifier {
	return dispatchedNotifier{d: d, n: n}
}

type dispatchedNotifier struct {
	d Dispatcher
	n Notifier
}

func (dn dispatchedNotifier) Notify(msg string) {
	dn.d.Dispatch(func() { dn.n.Notify(msg) })
}
