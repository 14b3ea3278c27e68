package watchdog

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// ErrExpired is returned when restarting a timer that has already fired.
var ErrExpired = errors.New("watchdog already expired")

// SoftTimer is a Timer in software for hosts without a hardware watchdog. When it is not restarted
// within the timeout it calls onExpire once, which stands in for the hardware reset.
type SoftTimer struct {
	mu       sync.Mutex
	clk      clock.Clock
	timeout  time.Duration
	timer    *clock.Timer
	gen      uint64 // bumped on every restart; a callback armed before it is stale
	expired  bool
	stopped  bool
	onExpire func()
}

// NewSoftTimer starts a timer that expires timeout from now.
func NewSoftTimer(clk clock.Clock, timeout time.Duration, onExpire func()) (*SoftTimer, error) {
	if timeout <= 0 {
		return nil, errors.Errorf("watchdog timeout must be positive, got %v", timeout)
	}
	if clk == nil {
		clk = clock.New()
	}
	t := &SoftTimer{clk: clk, timeout: timeout, onExpire: onExpire}
	t.arm()
	return t, nil
}

// arm schedules expiry for the current generation. Callers hold mu or own t exclusively.
func (t *SoftTimer) arm() {
	gen := t.gen
	t.timer = t.clk.AfterFunc(t.timeout, func() { t.expire(gen) })
}

func (t *SoftTimer) expire(gen uint64) {
	t.mu.Lock()
	// A callback already running when Restart stopped its timer must not fire.
	if gen != t.gen || t.expired || t.stopped {
		t.mu.Unlock()
		return
	}
	t.expired = true
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire()
	}
}

// Restart pushes the deadline out by another timeout.
func (t *SoftTimer) Restart() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired {
		return ErrExpired
	}
	if t.stopped {
		return errors.New("watchdog stopped")
	}
	t.timer.Stop()
	t.gen++
	t.arm()
	return nil
}

// Expired reports whether the timer has fired.
func (t *SoftTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Stop disarms the timer for shutdown. It never fires afterwards.
func (t *SoftTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.timer.Stop()
}

// Close stops the timer.
func (t *SoftTimer) Close() error {
	t.Stop()
	return nil
}
