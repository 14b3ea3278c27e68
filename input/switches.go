package input

import "fmt"

// Switch word layout.
const (
	gainIncrementShift     = 4
	gainSelectShift        = 2
	setpointIncrementShift = 0
	twoBitMask             = 0b11
)

// CrashMask is the switch that stops the watchdog from being restarted.
const CrashMask uint16 = 1 << 15

// IncrementSize is the step applied per button press or encoder click.
type IncrementSize int

// Increment sizes selectable from two switch bits.
const (
	IncrementOne IncrementSize = iota
	IncrementFive
	IncrementTen
)

// Amount returns the numeric step.
func (s IncrementSize) Amount() int {
	switch s {
	case IncrementOne:
		return 1
	case IncrementFive:
		return 5
	case IncrementTen:
		return 10
	}
	return 0
}

func (s IncrementSize) String() string {
	return fmt.Sprintf("x%d", s.Amount())
}

// Gain is which gain the Up and Down buttons adjust.
type Gain int

// GainNone only exists before the first switch sample.
const (
	GainNone Gain = iota
	GainP
	GainI
	GainD
)

func (g Gain) String() string {
	switch g {
	case GainP:
		return "Kp"
	case GainI:
		return "Ki"
	case GainD:
		return "Kd"
	case GainNone:
	}
	return "--"
}

// DecodeIncrement maps two switch bits to a step: 00 is one, 01 is five, 1x is ten.
func DecodeIncrement(bits uint16) IncrementSize {
	switch bits & twoBitMask {
	case 0b00:
		return IncrementOne
	case 0b01:
		return IncrementFive
	default:
		return IncrementTen
	}
}

// DecodeGain maps two switch bits to a gain: 00 is Kp, 01 is Ki, 1x is Kd.
func DecodeGain(bits uint16) Gain {
	switch bits & twoBitMask {
	case 0b00:
		return GainP
	case 0b01:
		return GainI
	default:
		return GainD
	}
}

// SwitchState is the decoded switch word.
type SwitchState struct {
	Crash             bool
	GainIncrement     IncrementSize
	ActiveGain        Gain
	SetpointIncrement IncrementSize
}

// DecodeSwitches splits the switch word into its independent selectors.
func DecodeSwitches(word uint16) SwitchState {
	return SwitchState{
		Crash:             word&CrashMask != 0,
		GainIncrement:     DecodeIncrement(word >> gainIncrementShift),
		ActiveGain:        DecodeGain(word >> gainSelectShift),
		SetpointIncrement: DecodeIncrement(word >> setpointIncrementShift),
	}
}
