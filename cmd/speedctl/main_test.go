package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	boardfake "go.viam.com/speedctl/components/board/fake"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/robot"
)

func runApp(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var got config.Config
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(""), &stdout, &stderr, func(_ context.Context, cfg config.Config, _ environment) error {
		got = cfg
		return nil
	})
	err := app.Run(append([]string{"speedctl"}, args...))
	return got, err
}

func TestFlagsDefaults(t *testing.T) {
	cfg, err := runApp(t)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, config.Default())
}

func TestFlagsOverrides(t *testing.T) {
	cfg, err := runApp(t,
		"--simulate",
		"--control-period", "250ms",
		"--stats-interval", "0",
		"--telemetry-file", "/tmp/trace.csv",
		"--pin", "tach=GPIO5",
		"--pin", "switches=GPIO2,GPIO3",
		"--motor", "tach_window=100ms",
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Simulate, test.ShouldBeTrue)
	test.That(t, cfg.ControlPeriod, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.StatsInterval, test.ShouldEqual, time.Duration(0))
	test.That(t, cfg.TelemetryFile, test.ShouldEqual, "/tmp/trace.csv")
	test.That(t, cfg.Pins.Tach, test.ShouldEqual, "GPIO5")
	test.That(t, cfg.Pins.Switches, test.ShouldResemble, []string{"GPIO2", "GPIO3"})
	test.That(t, cfg.Motor.TachWindow, test.ShouldEqual, 100*time.Millisecond)
	test.That(t, cfg.Motor.PWMFrequencyHz, test.ShouldEqual, config.Default().Motor.PWMFrequencyHz)
}

func TestFlagsBadAssignment(t *testing.T) {
	_, err := runApp(t, "--pin", "nosuchpin=GPIO5")
	test.That(t, err, test.ShouldNotBeNil)
	var exitErr *exitError
	test.That(t, errors.As(err, &exitErr), test.ShouldBeTrue)
	test.That(t, exitErr.code, test.ShouldEqual, int(robot.StagePlatform))
}

func TestReadCommands(t *testing.T) {
	inputs := boardfake.NewBoard()
	logger, logs := logging.NewObservedTestLogger(t)
	readCommands(context.Background(), strings.NewReader("sw 0x8001\nbogus\nenc 42\n"), inputs, logger)

	ctx := context.Background()
	sw, err := inputs.Switches(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sw, test.ShouldEqual, 0x8001)
	pos, err := inputs.EncoderPosition(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, 42)
	test.That(t, logs.FilterMessage("ignoring command").Len(), test.ShouldEqual, 1)
}

func TestTelemetrySinkKeepsStdoutOpen(t *testing.T) {
	var stdout bytes.Buffer
	w, err := telemetrySink(config.Default(), environment{stdout: &stdout})(context.Background())
	test.That(t, err, test.ShouldBeNil)
	_, isCloser := w.(interface{ Close() error })
	test.That(t, isCloser, test.ShouldBeFalse)
	_, err = w.Write([]byte("0,0\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stdout.String(), test.ShouldEqual, "0,0\n")
}

func TestRejoinLists(t *testing.T) {
	test.That(t, rejoinLists([]string{"switches=GPIO2", "GPIO3", "tach=GPIO5"}), test.ShouldResemble,
		[]string{"switches=GPIO2,GPIO3", "tach=GPIO5"})
	test.That(t, rejoinLists([]string{"GPIO3"}), test.ShouldResemble, []string{"GPIO3"})
	test.That(t, rejoinLists(nil), test.ShouldBeNil)
}

func TestPickConsolesKeepsLogsOffThePanel(t *testing.T) {
	var stdout, stderr, tty bytes.Buffer
	env := environment{stdout: &stdout, stderr: &stderr}

	// Trace in a file frees stdout for logs.
	c := pickConsoles(config.Config{TelemetryFile: "trace.csv"}, env, nil)
	test.That(t, c.logs, test.ShouldEqual, &stdout)
	test.That(t, c.panel, test.ShouldEqual, &stderr)

	// Panel on its own terminal frees stderr.
	c = pickConsoles(config.Config{}, env, &tty)
	test.That(t, c.logs, test.ShouldEqual, &stderr)
	test.That(t, c.panel, test.ShouldEqual, &tty)

	// Both streams taken: logs go only to the log file.
	c = pickConsoles(config.Config{LogFile: "speedctl.log"}, env, nil)
	test.That(t, c.logs, test.ShouldBeNil)
	test.That(t, c.panel, test.ShouldEqual, &stderr)
	test.That(t, c.panelDropped, test.ShouldBeFalse)

	// Nowhere else for logs: they keep stderr and the panel is dropped.
	c = pickConsoles(config.Config{}, env, nil)
	test.That(t, c.logs, test.ShouldEqual, &stderr)
	test.That(t, c.panelDropped, test.ShouldBeTrue)
}

func TestLoggerWithoutConsoleWritesNothing(t *testing.T) {
	logger, closer := newLogger(config.Config{}, nil)
	test.That(t, closer, test.ShouldBeNil)
	logger.Info("dropped")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestFlagsPanelFile(t *testing.T) {
	cfg, err := runApp(t, "--panel-file", "/dev/pts/3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.PanelFile, test.ShouldEqual, "/dev/pts/3")
}
