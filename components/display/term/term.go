// Package term renders the character display and status panel on a terminal, for simulation.
package term

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fatih/color"

	"go.viam.com/speedctl/components/display"
)

var (
	_ = display.Display(&Terminal{})
	_ = display.StatusPanel(&Terminal{})
)

const clearScreen = "\033[H\033[2J"

// Terminal draws into a grid and repaints the whole frame on w. Bursts of writes within the frame
// interval produce a single repaint.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	grid    *display.Grid
	cols    int
	number  uint32
	leds    uint16
	repaint func(func())

	ledOn  *color.Color
	ledOff *color.Color
}

// New returns a terminal display of cols x rows repainting at most once per frame.
func New(w io.Writer, cols, rows int, frame time.Duration) *Terminal {
	return &Terminal{
		w:       w,
		grid:    display.NewGrid(cols, rows),
		cols:    cols,
		repaint: debounce.New(frame),
		ledOn:   color.New(color.FgGreen, color.Bold),
		ledOff:  color.New(color.FgHiBlack),
	}
}

// SetCursor moves the cursor.
func (t *Terminal) SetCursor(ctx context.Context, col, row int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grid.SetCursor(col, row)
	return nil
}

// WriteText writes at the cursor.
func (t *Terminal) WriteText(ctx context.Context, text string) error {
	t.mu.Lock()
	t.grid.Write(text)
	t.mu.Unlock()
	t.repaint(t.Flush)
	return nil
}

// WriteNumber writes n at the cursor.
func (t *Terminal) WriteNumber(ctx context.Context, n int32, radix int) error {
	return t.WriteText(ctx, strconv.FormatInt(int64(n), radix))
}

// Clear blanks the display.
func (t *Terminal) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.grid.Clear()
	t.mu.Unlock()
	t.repaint(t.Flush)
	return nil
}

// ShowNumber sets the seven-segment value.
func (t *Terminal) ShowNumber(ctx context.Context, n uint32) error {
	t.mu.Lock()
	t.number = n
	t.mu.Unlock()
	t.repaint(t.Flush)
	return nil
}

// SetLEDs sets the LED bank.
func (t *Terminal) SetLEDs(ctx context.Context, leds uint16) error {
	t.mu.Lock()
	t.leds = leds
	t.mu.Unlock()
	t.repaint(t.Flush)
	return nil
}

// Flush repaints the frame immediately.
func (t *Terminal) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.w, t.frameLocked())
}

// expects lock to be held.
func (t *Terminal) frameLocked() string {
	var sb strings.Builder
	sb.WriteString(clearScreen)
	border := "+" + strings.Repeat("-", t.cols) + "+\n"
	sb.WriteString(border)
	for _, line := range t.grid.Lines() {
		fmt.Fprintf(&sb, "|%-*s|\n", t.cols, line)
	}
	sb.WriteString(border)

	fmt.Fprintf(&sb, "[%8d] ", t.number)
	for bit := 15; bit >= 0; bit-- {
		if t.leds&(1<<bit) != 0 {
			sb.WriteString(t.ledOn.Sprint("o"))
		} else {
			sb.WriteString(t.ledOff.Sprint("."))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
