package display

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

func TestTerminalRendersRows(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.ReplaceRows([]entity.TableRow{{"987", "01 Ιανουαρίου 2024", "31 Ιανουαρίου 2024", "15/02/2024"}})

	out := buf.String()
	assert.Contains(t, out, "invoiceNumber")
	assert.Contains(t, out, "dueDate")
	assert.Contains(t, out, "987")
	assert.Contains(t, out, "15/02/2024")
}

func TestTerminalEmptyAndNotify(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)

	term.ReplaceRows(nil)
	term.Notify("invoice 1 was not saved")
	assert.Equal(t, "no data\n! invoice 1 was not saved\n", buf.String())
}

func TestLoopRunsFuncsInOrderOnOneGoroutine(t *testing.T) {
	l := NewLoop(4)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	var running int32
	var order []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		require.True(t, l.Dispatch(func() {
			assert.Equal(t, int32(1), atomic.AddInt32(&running, 1))
			order = append(order, i)
			atomic.AddInt32(&running, -1)
			if i == 9 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)

	cancel()
	<-l.Done()
	assert.False(t, l.Dispatch(func() {}))
}

func TestOnDisplayDeliversThroughLoop(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	n := OnDisplay(l, NewTerminal(&buf))
	n.Notify("could not read a.pdf")

	done := make(chan string, 1)
	require.True(t, l.Dispatch(func() { done <- buf.String() }))
	assert.Equal(t, "! could not read a.pdf\n", <-done)

	cancel()
	<-l.Done()
	n.Notify("dropped")
}
