// Package fake implements a display that keeps a character grid in memory and records calls.
package fake

import (
	"context"
	"strconv"
	"sync"

	"go.viam.com/speedctl/components/display"
)

var (
	_ = display.Display(&Display{})
	_ = display.StatusPanel(&Display{})
)

// Call is one recorded display operation.
type Call struct {
	Op   string
	Col  int
	Row  int
	Text string
}

// Display renders into a grid and records every call.
type Display struct {
	mu     sync.Mutex
	grid   *display.Grid
	calls  []Call
	number uint32
	leds   uint16

	// Err, when set, is returned by every call.
	Err error
}

// NewDisplay returns a blank display.
func NewDisplay(cols, rows int) *Display {
	return &Display{grid: display.NewGrid(cols, rows)}
}

// SetCursor moves the cursor.
func (d *Display) SetCursor(ctx context.Context, col, row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.grid.SetCursor(col, row)
	d.calls = append(d.calls, Call{Op: "cursor", Col: col, Row: row})
	return nil
}

// WriteText writes at the cursor.
func (d *Display) WriteText(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.record("text", text)
	d.grid.Write(text)
	return nil
}

// WriteNumber writes n at the cursor.
func (d *Display) WriteNumber(ctx context.Context, n int32, radix int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	text := strconv.FormatInt(int64(n), radix)
	d.record("number", text)
	d.grid.Write(text)
	return nil
}

// Clear blanks the grid.
func (d *Display) Clear(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.grid.Clear()
	d.calls = append(d.calls, Call{Op: "clear"})
	return nil
}

// ShowNumber records the seven-segment value.
func (d *Display) ShowNumber(ctx context.Context, n uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.number = n
	return nil
}

// SetLEDs records the LED bank.
func (d *Display) SetLEDs(ctx context.Context, leds uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	d.leds = leds
	return nil
}

// expects lock to be held.
func (d *Display) record(op, text string) {
	col, row := d.grid.Cursor()
	d.calls = append(d.calls, Call{Op: op, Col: col, Row: row, Text: text})
}

// Line returns row as a string with trailing blanks removed.
func (d *Display) Line(row int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grid.Line(row)
}

// Calls returns the recorded operations and forgets them.
func (d *Display) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := d.calls
	d.calls = nil
	return calls
}

// Number returns the last seven-segment value.
func (d *Display) Number() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.number
}

// LEDs returns the last LED bank.
func (d *Display) LEDs() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leds
}
