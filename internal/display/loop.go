package display

import (
	"context"
	"sync"
)

// Loop is a Dispatcher backed by one goroutine: whoever calls Run owns the
// display context, and every dispatched func runs there, one at a time.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func NewLoop(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	return &Loop{tasks: make(chan func(), buffer), done: make(chan struct{})}
}

// Dispatch queues f. It reports false once the loop has stopped.
func (l *Loop) Dispatch(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- f:
		return true
	case <-l.done:
		return false
	}
}

// Run executes dispatched funcs until ctx is done. Queued funcs that have not
// started when ctx ends are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-l.tasks:
			f()
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
