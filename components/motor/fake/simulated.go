package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/speedctl/components/motor"
)

var _ = motor.Motor(&SimulatedMotor{})

const (
	defaultMaxRPM       = 1000
	defaultTimeConstant = 800 * time.Millisecond
)

// SimulatedMotor is a first-order model of a DC motor: velocity approaches duty/255 * MaxRPM with
// the given time constant. The tachometer reports the magnitude of the velocity.
type SimulatedMotor struct {
	mu           sync.Mutex
	clk          clock.Clock
	maxRPM       float64
	timeConstant time.Duration

	duty     uint8
	forward  bool
	velocity float64
	last     time.Time
}

// NewSimulatedMotor returns a stopped motor. Zero values select a 1000 rpm motor with an 800ms
// time constant.
func NewSimulatedMotor(clk clock.Clock, maxRPM float64, timeConstant time.Duration) *SimulatedMotor {
	if clk == nil {
		clk = clock.New()
	}
	if maxRPM <= 0 {
		maxRPM = defaultMaxRPM
	}
	if timeConstant <= 0 {
		timeConstant = defaultTimeConstant
	}
	return &SimulatedMotor{
		clk:          clk,
		maxRPM:       maxRPM,
		timeConstant: timeConstant,
		forward:      true,
		last:         clk.Now(),
	}
}

// expects lock to be held.
func (m *SimulatedMotor) advance() {
	now := m.clk.Now()
	dt := now.Sub(m.last)
	m.last = now
	if dt <= 0 {
		return
	}

	target := float64(m.duty) / 255 * m.maxRPM
	if !m.forward {
		target = -target
	}
	alpha := 1 - math.Exp(-float64(dt)/float64(m.timeConstant))
	m.velocity += (target - m.velocity) * alpha
}

// SetPWM changes the drive duty cycle.
func (m *SimulatedMotor) SetPWM(ctx context.Context, duty uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.duty = duty
	return nil
}

// SetDirection changes the drive polarity.
func (m *SimulatedMotor) SetDirection(ctx context.Context, forward bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.forward = forward
	return nil
}

// ReadTachometer returns the current speed in rpm.
func (m *SimulatedMotor) ReadTachometer(ctx context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return uint32(math.Round(math.Abs(m.velocity))), nil
}
