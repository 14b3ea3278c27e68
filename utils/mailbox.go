package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Mailbox is a single-slot hand-off between two tasks. A send never blocks: an unconsumed value is
// replaced by the newer one. Values are copied in and out, so T should be a plain value type.
type Mailbox[T any] struct {
	clk clock.Clock
	ch  chan T
}

// NewMailbox returns an empty mailbox whose receive timeouts are measured on clk. A nil clock
// means the wall clock.
func NewMailbox[T any](clk clock.Clock) *Mailbox[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &Mailbox[T]{clk: clk, ch: make(chan T, 1)}
}

// Send stores v, discarding any value still waiting in the slot. It reports whether a value was
// discarded.
func (m *Mailbox[T]) Send(v T) (replaced bool) {
	for {
		select {
		case m.ch <- v:
			return replaced
		default:
		}
		// Slot is full; drop the stale value and retry. Another sender may win the slot between
		// the two selects, in which case we drop its value instead.
		select {
		case <-m.ch:
			replaced = true
		default:
		}
	}
}

// TryReceive takes the waiting value, if any, without blocking.
func (m *Mailbox[T]) TryReceive() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive waits up to timeout for a value. It returns false when the timeout elapses or ctx is
// done first; callers keep using whatever they received last.
func (m *Mailbox[T]) Receive(ctx context.Context, timeout time.Duration) (T, bool) {
	if v, ok := m.TryReceive(); ok || timeout <= 0 {
		return v, ok
	}

	timer := m.clk.Timer(timeout)
	defer timer.Stop()

	select {
	case v := <-m.ch:
		return v, true
	case <-timer.C:
	case <-ctx.Done():
	}
	var zero T
	return zero, false
}

// C exposes the receive side for callers that wait on several mailboxes in one select.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}
