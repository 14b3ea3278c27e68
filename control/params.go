package control

import "fmt"

// Parameters is the one record of operator settings and control state that travels between the
// input, control and display tasks. It holds only plain values and is always passed by value; a
// task owns the copy it holds and nobody else can observe changes to it.
type Parameters struct {
	// Direction is true for forward rotation.
	Direction bool

	// Kp, Ki and Kd are the operator gains. They never go below zero and are not capped above.
	Kp int
	Ki int
	Kd int

	// Setpoint is the operator's duty-cycle target in [0, 255].
	Setpoint uint8

	TargetSpeed  int
	CurrentSpeed int
	SpeedError   int

	// Control-law state as of the last step. Written only by the Engine.
	Integral   float64
	Derivative float64
	PrevError  int
}

// WithSetpoint returns a copy with the setpoint changed and the target speed recomputed from it.
func (p Parameters) WithSetpoint(setpoint uint8) Parameters {
	p.Setpoint = setpoint
	p.TargetSpeed = SpeedFromSetpoint(setpoint)
	return p
}

// Operator returns a copy keeping only the fields the operator controls, with all measured and
// control-law fields zeroed.
func (p Parameters) Operator() Parameters {
	return Parameters{
		Direction:   p.Direction,
		Kp:          p.Kp,
		Ki:          p.Ki,
		Kd:          p.Kd,
		Setpoint:    p.Setpoint,
		TargetSpeed: p.TargetSpeed,
	}
}

func (p Parameters) String() string {
	return fmt.Sprintf("dir=%t kp=%d ki=%d kd=%d setpoint=%d target=%d current=%d err=%d",
		p.Direction, p.Kp, p.Ki, p.Kd, p.Setpoint, p.TargetSpeed, p.CurrentSpeed, p.SpeedError)
}
