package async

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-scanner/internal/display"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
	"github.com/joseph-ayodele/invoice-scanner/internal/table"
)

// Refresher runs the read path (fetch, project) off the display context and
// publishes the result through a Dispatcher.
//
// One worker, one pending slot: a Request made while another is pending is
// absorbed by it, and a publish is handed to the display only after the
// previous one has run.
type Refresher struct {
	invoices repository.InvoiceRepository
	sink     display.Sink
	dispatch display.Dispatcher
	notifier display.Notifier
	logger   *slog.Logger

	pending chan struct{}
	stop    chan struct{}
	ctx     context.Context
	abort   context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

func NewRefresher(
	invoices repository.InvoiceRepository,
	sink display.Sink,
	dispatch display.Dispatcher,
	notifier display.Notifier,
	logger *slog.Logger,
) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = display.NopNotifier{}
	}
	r := &Refresher{
		invoices: invoices,
		sink:     sink,
		dispatch: dispatch,
		notifier: notifier,
		logger:   logger,
		pending:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	r.ctx, r.abort = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.run()
	return r
}

// Request asks for a refresh. It never blocks.
func (r *Refresher) Request() {
	select {
	case r.pending <- struct{}{}:
	default:
		r.logger.Debug("refresh already pending")
	}
}

func (r *Refresher) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			select {
			case <-r.pending:
				r.refresh()
			default:
			}
			return
		case <-r.pending:
			r.refresh()
		}
	}
}

func (r *Refresher) refresh() {
	stored, err := r.invoices.FetchAll(r.ctx)
	if err != nil {
		// render "no data" rather than stale rows
		r.logger.Error("refresh fetch failed", "error", err)
		r.notifier.Notify("could not load invoices")
	}
	rows := table.Project(stored)

	published := make(chan struct{})
	ok := r.dispatch.Dispatch(func() {
		defer close(published)
		r.sink.ReplaceRows(rows)
	})
	if !ok {
		r.logger.Warn("display stopped, dropping refresh", "rows", len(rows))
		return
	}
	select {
	case <-published:
		r.logger.Debug("rows published", "rows", len(rows))
	case <-r.ctx.Done():
	}
}

// Shutdown stops the worker after it has run any pending refresh and seen
// its publish land. When ctx ends first, the refresh in flight is abandoned.
func (r *Refresher) Shutdown(ctx context.Context) {
	r.once.Do(func() { close(r.stop) })
	defer r.abort()
	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()
	select {
	case <-ctx.Done():
		r.abort()
		<-done
		r.logger.Warn("refresher shutdown interrupted by context")
	case <-done:
	}
}
