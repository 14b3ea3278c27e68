// Package input turns raw switch, button and encoder samples into operator tuning of the control
// parameters, and runs the task that samples them.
package input

import (
	"go.viam.com/speedctl/control"
)

// EmergencyGain is the value every gain is forced to by the center button, so the controller still
// answers decisively while driving to zero.
const EmergencyGain = 1

// Sample is one reading of every raw input.
type Sample struct {
	Switches        uint16
	Up              bool
	Down            bool
	Center          bool
	EncoderPosition uint32
	EncoderAux      bool
}

// Update is the decoder's output for one tick: the new snapshot plus what the display needs to
// know about the selection state that produced it.
type Update struct {
	Params     control.Parameters
	Switches   SwitchState
	ActiveGain Gain
	Reason     RedrawReason
}

// Decoder holds the tuning selection state. It is owned by the input task alone.
type Decoder struct {
	activeGain Gain
	up         EdgeDetector
	down       EdgeDetector
	center     EdgeDetector
	rotary     RotaryTracker
}

// NewDecoder returns a decoder with no gain selected yet, so the first sample reports a selection
// change.
func NewDecoder() *Decoder {
	return &Decoder{activeGain: GainNone}
}

// ActiveGain returns the gain the Up and Down buttons currently adjust.
func (d *Decoder) ActiveGain() Gain {
	return d.activeGain
}

// Decode applies one sample to p and returns the result. Emergency stop is applied last so that it
// holds regardless of anything else seen in the same tick.
func (d *Decoder) Decode(s Sample, p control.Parameters) Update {
	reason := Idle
	sw := DecodeSwitches(s.Switches)

	if sw.ActiveGain != d.activeGain {
		d.activeGain = sw.ActiveGain
		reason = reason.Merge(GainSelectionChanged)
	}

	p.Direction = s.EncoderAux

	if rot := d.rotary.Sample(s.EncoderPosition); rot != NoRotation {
		next := StepSetpoint(p.Setpoint, sw.SetpointIncrement.Amount(), rot)
		if next != p.Setpoint {
			p = p.WithSetpoint(next)
			reason = reason.Merge(SpeedChanged)
		}
	}

	up := d.up.Sample(s.Up)
	down := d.down.Sample(s.Down)
	if up || down {
		step := sw.GainIncrement.Amount()
		if down {
			step = -step
		}
		if up && down {
			step = 0
		}
		if gain := gainField(&p, d.activeGain); gain != nil && step != 0 {
			*gain = AdjustGain(*gain, step)
			reason = reason.Merge(GainValueChanged)
		}
	}

	if d.center.Sample(s.Center) {
		p = EmergencyStopParams(p)
		reason = reason.Merge(EmergencyStop)
	}

	return Update{
		Params:     p,
		Switches:   sw,
		ActiveGain: d.activeGain,
		Reason:     reason,
	}
}

// AdjustGain adds step to a gain. Decrements stop at zero; increments are not capped.
func AdjustGain(gain, step int) int {
	gain += step
	if gain < 0 {
		return 0
	}
	return gain
}

// StepSetpoint moves the setpoint one encoder click, saturating at 0 and 255.
func StepSetpoint(setpoint uint8, increment int, rot Rotation) uint8 {
	v := int(setpoint)
	switch rot {
	case Clockwise:
		v += increment
	case CounterClockwise:
		v -= increment
	case NoRotation:
	}
	if v < 0 {
		return 0
	}
	if v > control.MaxPWM {
		return control.MaxPWM
	}
	return uint8(v)
}

// EmergencyStopParams zeroes the setpoint and forces every gain to EmergencyGain.
func EmergencyStopParams(p control.Parameters) control.Parameters {
	p = p.WithSetpoint(0)
	p.Kp, p.Ki, p.Kd = EmergencyGain, EmergencyGain, EmergencyGain
	return p
}

func gainField(p *control.Parameters, g Gain) *int {
	switch g {
	case GainP:
		return &p.Kp
	case GainI:
		return &p.Ki
	case GainD:
		return &p.Kd
	case GainNone:
	}
	return nil
}
