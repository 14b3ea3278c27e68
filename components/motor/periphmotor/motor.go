// Package periphmotor drives a DC motor through an H-bridge on host GPIO pins using periph.io: a
// PWM pin for speed, a direction pin and a tachometer input.
package periphmotor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/speedctl/components/motor"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

var _ = motor.Motor(&Motor{})

const edgePoll = 100 * time.Millisecond

// Motor implements motor.Motor. The tachometer reading is the number of tach pulses seen during
// the last complete window.
type Motor struct {
	pwmPin  gpio.PinIO
	dirPin  gpio.PinIO
	tachPin gpio.PinIO
	freq    physic.Frequency

	mu           sync.Mutex
	duty         gpio.Duty
	softwarePWM  bool
	pulses       atomic.Uint32
	lastWindow   atomic.Uint32
	windowTicker *clock.Ticker

	logger  logging.Logger
	workers utils.StoppableWorkers
}

func lookupPin(role, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, motor.NewPinNotFoundError(role, name)
	}
	return p, nil
}

// New claims the motor pins and starts counting tachometer pulses. The motor starts stopped.
// If the PWM pin has no hardware PWM the duty cycle is generated in software.
func New(pins config.PinConfig, conf config.MotorConfig, clk clock.Clock, logger logging.Logger) (*Motor, error) {
	if conf.TachWindow <= 0 {
		return nil, motor.NewInvalidTachWindowError()
	}
	if clk == nil {
		clk = clock.New()
	}
	m := &Motor{
		freq:   physic.Frequency(conf.PWMFrequencyHz) * physic.Hertz,
		logger: logger,
	}

	var err error
	if m.pwmPin, err = lookupPin("pwm", pins.PWM); err != nil {
		return nil, err
	}
	if m.dirPin, err = lookupPin("direction", pins.Direction); err != nil {
		return nil, err
	}
	if m.tachPin, err = lookupPin("tach", pins.Tach); err != nil {
		return nil, err
	}

	if err := m.dirPin.Out(gpio.High); err != nil {
		return nil, errors.Wrap(err, "setting initial direction")
	}
	if err := m.pwmPin.PWM(0, m.freq); err != nil {
		logger.Warnw("no hardware pwm, falling back to software pwm", "pin", pins.PWM, "error", err)
		if err := m.pwmPin.Out(gpio.Low); err != nil {
			return nil, motor.NewPWMUnsupportedError(pins.PWM, err)
		}
		m.softwarePWM = true
	}
	if err := m.tachPin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, errors.Wrap(err, "configuring tachometer")
	}

	m.windowTicker = clk.Ticker(conf.TachWindow)
	m.workers = utils.NewStoppableWorkers(m.countPulses, m.closeWindows)
	if m.softwarePWM {
		m.workers.AddWorkers(m.softwarePWMLoop)
	}
	return m, nil
}

func (m *Motor) countPulses(ctx context.Context) {
	for ctx.Err() == nil {
		if m.tachPin.WaitForEdge(edgePoll) {
			m.pulses.Inc()
		}
	}
}

func (m *Motor) closeWindows(ctx context.Context) {
	defer m.windowTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.windowTicker.C:
			m.lastWindow.Store(m.pulses.Swap(0))
		}
	}
}

func (m *Motor) softwarePWMLoop(ctx context.Context) {
	period := m.freq.Period()
	for {
		m.mu.Lock()
		duty := m.duty
		m.mu.Unlock()

		onPeriod := time.Duration(int64(duty) * int64(period) / int64(gpio.DutyMax))
		if onPeriod > 0 {
			if err := m.pwmPin.Out(gpio.High); err != nil {
				m.logger.Errorw("error setting pwm pin", "error", err)
			}
			if !goutils.SelectContextOrWait(ctx, onPeriod) {
				return
			}
		}
		if onPeriod < period {
			if err := m.pwmPin.Out(gpio.Low); err != nil {
				m.logger.Errorw("error setting pwm pin", "error", err)
			}
			if !goutils.SelectContextOrWait(ctx, period-onPeriod) {
				return
			}
		}
	}
}

// SetPWM sets the duty cycle, 255 being always on.
func (m *Motor) SetPWM(ctx context.Context, duty uint8) error {
	d := gpio.Duty(int64(duty) * int64(gpio.DutyMax) / 255)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.duty = d
	if m.softwarePWM {
		return nil
	}
	return errors.Wrap(m.pwmPin.PWM(d, m.freq), "setting pwm")
}

// SetDirection drives the direction pin high for forward.
func (m *Motor) SetDirection(ctx context.Context, forward bool) error {
	l := gpio.Low
	if forward {
		l = gpio.High
	}
	return errors.Wrap(m.dirPin.Out(l), "setting direction")
}

// ReadTachometer returns the pulse count of the last complete window.
func (m *Motor) ReadTachometer(ctx context.Context) (uint32, error) {
	return m.lastWindow.Load(), nil
}

// Close stops the motor and the background workers.
func (m *Motor) Close() error {
	m.workers.Stop()
	var err error
	if !m.softwarePWM {
		err = m.pwmPin.PWM(0, m.freq)
	}
	return multierr.Combine(err, m.pwmPin.Out(gpio.Low))
}
