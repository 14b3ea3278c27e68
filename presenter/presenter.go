// Package presenter keeps the character display and status panel in step with the control
// parameters, redrawing only what changed since the last frame.
package presenter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"go.viam.com/speedctl/components/display"
	"go.viam.com/speedctl/control"
	"go.viam.com/speedctl/input"
)

// Screen geometry. Labels sit in column 0 of rows 1 to 6.
const (
	Cols = 16
	Rows = 8

	rowCurrent = 1
	rowTarget  = 2
	rowKp      = 3
	rowKi      = 4
	rowKd      = 5
	rowSelect  = 6

	speedCol   = 7
	gainCol    = 4
	selectCol  = 7
	speedWidth = Cols - speedCol
	gainWidth  = Cols - gainCol
	labelWidth = Cols - selectCol
)

var labels = []struct {
	row  int
	text string
}{
	{rowCurrent, "RpmCur"},
	{rowTarget, "RpmTar"},
	{rowKp, "Kp"},
	{rowKi, "Ki"},
	{rowKd, "Kd"},
	{rowSelect, "Select:"},
}

// LED bits on the status panel.
const (
	ledKd    uint16 = 1 << 0
	ledKi    uint16 = 1 << 1
	ledKp    uint16 = 1 << 2
	ledCrash uint16 = 1 << 15
)

// View is everything that appears on the display and status panel.
type View struct {
	CurrentSpeed int
	TargetSpeed  int
	Setpoint     uint8
	Kp, Ki, Kd   int
	ActiveGain   input.Gain
	Crash        bool
}

// StatusNumber is the seven-segment value: the setpoint in the upper digits, target speed below.
func (v View) StatusNumber() uint32 {
	return uint32(v.Setpoint)*10000 + uint32(max(v.TargetSpeed, 0))
}

// StatusLEDs lights the crash LED while the crash switch is up and one LED per non-zero gain.
func (v View) StatusLEDs() uint16 {
	var leds uint16
	if v.Crash {
		leds |= ledCrash
	}
	if v.Kp != 0 {
		leds |= ledKp
	}
	if v.Ki != 0 {
		leds |= ledKi
	}
	if v.Kd != 0 {
		leds |= ledKd
	}
	return leds
}

func (v View) gain(g input.Gain) int {
	switch g {
	case input.GainP:
		return v.Kp
	case input.GainI:
		return v.Ki
	case input.GainD:
		return v.Kd
	case input.GainNone:
	}
	return 0
}

var gainRows = []struct {
	gain input.Gain
	row  int
}{
	{input.GainP, rowKp},
	{input.GainI, rowKi},
	{input.GainD, rowKd},
}

// Presenter merges snapshots from the input and control tasks into a View and draws the
// difference against the last frame. Operator fields come only from input updates and measured
// fields only from control snapshots, so a late snapshot from one side can not roll back the other.
type Presenter struct {
	disp   display.Display
	status display.StatusPanel

	pending       View
	pendingReason input.RedrawReason
	rendered      *View
}

// New returns a presenter that has not drawn anything yet. status may be nil.
func New(disp display.Display, status display.StatusPanel) *Presenter {
	return &Presenter{disp: disp, status: status}
}

// ApplyInput takes the operator fields and redraw reason of an input update.
func (p *Presenter) ApplyInput(u input.Update) {
	p.pending.TargetSpeed = u.Params.TargetSpeed
	p.pending.Setpoint = u.Params.Setpoint
	p.pending.Kp = u.Params.Kp
	p.pending.Ki = u.Params.Ki
	p.pending.Kd = u.Params.Kd
	p.pending.ActiveGain = u.ActiveGain
	p.pending.Crash = u.Switches.Crash
	p.pendingReason = p.pendingReason.Merge(u.Reason)
}

// ApplyControl takes the measured fields of a control snapshot.
func (p *Presenter) ApplyControl(params control.Parameters) {
	p.pending.CurrentSpeed = params.CurrentSpeed
}

// Pending returns the view the next Render will draw.
func (p *Presenter) Pending() View {
	return p.pending
}

// Render draws what changed since the last frame and returns how many regions it wrote. After a
// display error the next Render redraws everything.
func (p *Presenter) Render(ctx context.Context) (int, error) {
	next := p.pending
	reason := p.pendingReason
	p.pendingReason = input.Idle

	d := &drawer{ctx: ctx, disp: p.disp}
	prev := p.rendered
	if prev == nil {
		d.full(next)
	} else {
		if next.CurrentSpeed != prev.CurrentSpeed {
			d.field(speedCol, rowCurrent, speedWidth, next.CurrentSpeed)
		}
		if next.TargetSpeed != prev.TargetSpeed {
			d.field(speedCol, rowTarget, speedWidth, next.TargetSpeed)
		}
		if reason.Broad() || next.ActiveGain != prev.ActiveGain {
			d.gains(next)
		} else {
			for _, g := range gainRows {
				if next.gain(g.gain) != prev.gain(g.gain) {
					d.field(gainCol, g.row, gainWidth, next.gain(g.gain))
				}
			}
		}
	}

	if p.status != nil && (prev == nil || next.StatusNumber() != prev.StatusNumber() ||
		next.StatusLEDs() != prev.StatusLEDs()) {
		d.err = multierr.Combine(
			d.err,
			p.status.ShowNumber(ctx, next.StatusNumber()),
			p.status.SetLEDs(ctx, next.StatusLEDs()),
		)
	}

	if d.err != nil {
		p.rendered = nil
		return d.regions, d.err
	}
	p.rendered = &next
	return d.regions, nil
}

// drawer accumulates display errors so a frame is attempted in full even if one write fails.
type drawer struct {
	ctx     context.Context
	disp    display.Display
	regions int
	err     error
}

func (d *drawer) text(col, row int, text string) {
	d.err = multierr.Combine(d.err, d.disp.SetCursor(d.ctx, col, row), d.disp.WriteText(d.ctx, text))
}

func (d *drawer) field(col, row, width, value int) {
	d.regions++
	d.text(col, row, strings.Repeat(" ", width))
	d.err = multierr.Combine(
		d.err,
		d.disp.SetCursor(d.ctx, col, row),
		d.disp.WriteNumber(d.ctx, int32(value), 10),
	)
}

func (d *drawer) gains(v View) {
	d.regions++
	d.text(selectCol, rowSelect, fmt.Sprintf("%-*s", labelWidth, v.ActiveGain.String()))
	for _, g := range gainRows {
		d.field(gainCol, g.row, gainWidth, v.gain(g.gain))
	}
}

func (d *drawer) full(v View) {
	d.err = multierr.Combine(d.err, d.disp.Clear(d.ctx))
	for _, l := range labels {
		d.text(0, l.row, l.text)
	}
	d.field(speedCol, rowCurrent, speedWidth, v.CurrentSpeed)
	d.field(speedCol, rowTarget, speedWidth, v.TargetSpeed)
	d.gains(v)
}
