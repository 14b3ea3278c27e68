package robot

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/speedctl/components/board"
	boardfake "go.viam.com/speedctl/components/board/fake"
	"go.viam.com/speedctl/components/display"
	displayfake "go.viam.com/speedctl/components/display/fake"
	"go.viam.com/speedctl/components/motor"
	motorfake "go.viam.com/speedctl/components/motor/fake"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/presenter"
	"go.viam.com/speedctl/watchdog"
)

type closableMotor struct {
	*motorfake.Motor
	closed bool
}

func (m *closableMotor) Close() error {
	m.closed = true
	return nil
}

type testRig struct {
	motor *closableMotor
	panel *boardfake.Board
	disp  *displayfake.Display
	hw    Hardware
	cfg   config.Config
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	r := &testRig{
		motor: &closableMotor{Motor: &motorfake.Motor{}},
		panel: boardfake.NewBoard(),
		disp:  displayfake.NewDisplay(presenter.Cols, presenter.Rows),
	}
	r.panel.SetEncoderPosition(1000)

	cfg := config.Default()
	cfg.Simulate = true
	cfg.InputPeriod = 5 * time.Millisecond
	cfg.ControlPeriod = 20 * time.Millisecond
	cfg.ControlReceiveTimeout = 5 * time.Millisecond
	cfg.DisplayTimeout = 10 * time.Millisecond
	cfg.WatchdogPeriod = 10 * time.Millisecond
	cfg.WatchdogTimeout = 100 * time.Millisecond
	cfg.StatsInterval = 0
	r.cfg = cfg

	r.hw = Hardware{
		Status:    r.disp,
		OpenMotor: func(context.Context) (motor.Motor, error) { return r.motor, nil },
		OpenInputs: func(context.Context) (board.Inputs, error) {
			return r.panel, nil
		},
		OpenDisplay: func(context.Context) (display.Display, error) { return r.disp, nil },
		OpenWatchdog: func(_ context.Context, onExpire func()) (watchdog.Timer, error) {
			return watchdog.NewSoftTimer(nil, cfg.WatchdogTimeout, onExpire)
		},
	}
	return r
}

func TestOperatorInputReachesMotorAndDisplay(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.panel.SetSwitches(0b10) // setpoint steps of ten, Kp selected, gain steps of one
	sys, err := New(ctx, r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sys.Start(ctx)
	defer func() {
		test.That(t, sys.Close(ctx), test.ShouldBeNil)
		test.That(t, r.motor.closed, test.ShouldBeTrue)
	}()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.Line(6), test.ShouldEqual, "Select:Kp")
	})

	r.panel.Pulse(board.ButtonUp)
	r.panel.Turn(1)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.Line(2), test.ShouldEqual, "RpmTar 39")
		test.That(tb, r.disp.Line(3), test.ShouldEqual, "Kp  1")
		test.That(tb, r.disp.Number(), test.ShouldEqual, 10*10000+39)
	})

	// Current speed 0, target 39, Kp 1: an output of 39 speed units.
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		duties := r.motor.Duties()
		test.That(tb, duties, test.ShouldNotBeEmpty)
		test.That(tb, duties[len(duties)-1], test.ShouldEqual, 10)
	})

	r.motor.SetTachometer(25)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.Line(1), test.ShouldEqual, "RpmCur 25")
	})

	stats := sys.Stats()
	test.That(t, stats.Input.Ticks.Load(), test.ShouldBeGreaterThan, 0)
	test.That(t, stats.Control.Ticks.Load(), test.ShouldBeGreaterThan, 0)
	test.That(t, stats.Watchdog.Errors.Load(), test.ShouldEqual, 0)
}

func TestEmergencyStop(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.panel.SetSwitches(0b10)
	sys, err := New(ctx, r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sys.Start(ctx)
	defer sys.Close(ctx)

	r.panel.Turn(1)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.Line(2), test.ShouldEqual, "RpmTar 39")
	})

	r.panel.Pulse(board.ButtonCenter)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.Line(2), test.ShouldEqual, "RpmTar 0")
		for row := 3; row <= 5; row++ {
			test.That(tb, r.disp.Line(row), test.ShouldEndWith, "  1")
		}
	})
}

func TestCrashSwitchExpiresWatchdog(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	sys, err := New(ctx, r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sys.Start(ctx)
	defer sys.Close(ctx)

	// Well past the timeout with the switch down: still alive.
	time.Sleep(3 * r.cfg.WatchdogTimeout)
	select {
	case <-sys.Expired():
		t.Fatal("watchdog expired while being fed")
	default:
	}

	r.panel.SetSwitch(15, true)
	select {
	case <-sys.Expired():
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog did not expire with the crash switch up")
	}
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, r.disp.LEDs()&(1<<15), test.ShouldNotEqual, 0)
	})
	test.That(t, ExitCode(nil), test.ShouldEqual, 0)
}

func TestBringUpFailureReportsStage(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.hw.OpenInputs = func(context.Context) (board.Inputs, error) {
		return nil, errors.New("no panel")
	}

	_, err := New(ctx, r.cfg, r.hw, clock.NewMock(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no panel")
	test.That(t, ExitCode(err), test.ShouldEqual, int(StageInputs))
	test.That(t, r.disp.Number(), test.ShouldEqual, uint32(StageInputs))
	// The motor opened in the previous stage was released.
	test.That(t, r.motor.closed, test.ShouldBeTrue)
}

func TestBringUpRejectsBadConfig(t *testing.T) {
	r := newRig(t)
	r.cfg.ControlPeriod = 0
	_, err := New(context.Background(), r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, ExitCode(err), test.ShouldEqual, int(StagePlatform))

	r = newRig(t)
	r.hw.OpenWatchdog = nil
	_, err = New(context.Background(), r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, ExitCode(err), test.ShouldEqual, int(StageWatchdog))
}

type traceBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *traceBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *traceBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTelemetryTrace(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	trace := &traceBuffer{}
	r.hw.OpenTelemetry = func(context.Context) (io.Writer, error) { return trace, nil }
	r.motor.SetTachometer(12)

	sys, err := New(ctx, r.cfg, r.hw, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	sys.Start(ctx)
	defer sys.Close(ctx)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, trace.String(), test.ShouldStartWith, "12,0\n12,0\n")
	})
}
