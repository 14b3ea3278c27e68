package control

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Telemetry writes the per-tick speed trace, one "<current>,<target>" line per control tick.
type Telemetry struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTelemetry returns a trace writer over w. A nil writer discards the trace.
func NewTelemetry(w io.Writer) *Telemetry {
	if w == nil {
		w = io.Discard
	}
	return &Telemetry{w: w}
}

// Record appends the line for one tick.
func (t *Telemetry) Record(p Parameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.w, "%d,%d\n", p.CurrentSpeed, p.TargetSpeed); err != nil {
		return errors.Wrap(err, "writing telemetry")
	}
	return nil
}
