package control

import (
	"context"
	"sync"

	"go.viam.com/speedctl/components/motor"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// pidLaw is the discrete PID update with a relative anti-windup band. One call is one tick, so the
// derivative is a plain first difference.
type pidLaw struct {
	integral  float64
	prevError int
}

// next returns the duty cycle and the snapshot updated with the new error terms. The output is in
// speed units and is scaled to a duty cycle the same way a setpoint is.
func (l *pidLaw) next(p Parameters, current int) (uint8, Parameters) {
	speedError := p.TargetSpeed - current

	// Integrate only inside the band below target/100; above it the integral is held, not reset.
	if speedError < p.TargetSpeed/100 {
		l.integral += float64(speedError)
	}
	derivative := float64(speedError - l.prevError)

	output := float64(speedError)*float64(p.Kp) + l.integral*float64(p.Ki) + derivative*float64(p.Kd)
	duty := dutyFromOutput(output)

	p.CurrentSpeed = current
	p.SpeedError = speedError
	p.Integral = l.integral
	p.Derivative = derivative
	p.PrevError = speedError
	l.prevError = speedError
	return duty, p
}

func dutyFromOutput(output float64) uint8 {
	// Clamp before converting; the float may be far outside int range.
	switch {
	case output <= 0:
		return 0
	case output >= MaxSpeed:
		return MaxPWM
	default:
		return SetpointFromSpeed(int(output))
	}
}

// Engine runs the PID law against a motor. It is the only owner of the integral and the previous
// error; snapshots it returns carry copies of them for display.
type Engine struct {
	mu        sync.Mutex
	motor     motor.Motor
	logger    logging.Logger
	stats     *utils.TaskStats
	law       pidLaw
	lastSpeed int
	lastDuty  uint8
}

// NewEngine returns an engine driving m. stats may be nil.
func NewEngine(m motor.Motor, logger logging.Logger, stats *utils.TaskStats) *Engine {
	if stats == nil {
		stats = &utils.TaskStats{}
	}
	return &Engine{motor: m, logger: logger, stats: stats}
}

// Step performs one control tick on p: apply direction, read the tachometer, compute the output
// and write it as the new duty cycle. Collaborator errors are logged and the tick carries on with
// the last good reading.
func (e *Engine) Step(ctx context.Context, p Parameters) Parameters {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.motor.SetDirection(ctx, p.Direction); err != nil {
		e.stats.Errors.Inc()
		e.logger.Warnw("failed to set direction", "forward", p.Direction, "error", err)
	}

	if ticks, err := e.motor.ReadTachometer(ctx); err != nil {
		e.stats.Errors.Inc()
		e.logger.Warnw("failed to read tachometer, reusing last value", "last", e.lastSpeed, "error", err)
	} else {
		e.lastSpeed = int(ticks)
	}

	duty, next := e.law.next(p, e.lastSpeed)
	if err := e.motor.SetPWM(ctx, duty); err != nil {
		e.stats.Errors.Inc()
		e.logger.Warnw("failed to set pwm", "duty", duty, "error", err)
	}
	e.lastDuty = duty

	e.logger.CDebugw(ctx, "pid step",
		"target", next.TargetSpeed,
		"current", next.CurrentSpeed,
		"error", next.SpeedError,
		"integral", next.Integral,
		"derivative", next.Derivative,
		"duty", duty,
	)
	return next
}

// LastDuty returns the duty cycle written by the most recent Step.
func (e *Engine) LastDuty() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastDuty
}
