// Package main runs the speed controller, either on GPIO hardware or against a simulated motor
// with the panel driven from stdin.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/robot"
)

const (
	// Flags.
	flagSimulate              = "simulate"
	flagDebug                 = "debug"
	flagLogLevel              = "log-level"
	flagInputPeriod           = "input-period"
	flagControlPeriod         = "control-period"
	flagControlReceiveTimeout = "control-receive-timeout"
	flagDisplayTimeout        = "display-timeout"
	flagWatchdogPeriod        = "watchdog-period"
	flagWatchdogTimeout       = "watchdog-timeout"
	flagStatsInterval         = "stats-interval"
	flagTelemetryFile         = "telemetry-file"
	flagLogFile               = "log-file"
	flagPanelFile             = "panel-file"
	flagMaxFileSize           = "max-file-size-mb"
	flagPin                   = "pin"
	flagMotor                 = "motor"

	// watchdogResetCode is the exit status after the watchdog fired. The supervisor that restarts
	// the process plays the part of the hardware reset.
	watchdogResetCode = 0x8
)

// exitError carries the process exit status out of the cli action.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr, run)
	if err := app.Run(os.Args); err != nil {
		code := robot.ExitCode(err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		if exitErr == nil || exitErr.err != nil {
			logging.Global().Errorw("speedctl exited", "error", err, "code", code)
		}
		os.Exit(code)
	}
}

// runFunc starts the controller with a validated flag set. It is swapped out in tests.
type runFunc func(ctx context.Context, cfg config.Config, env environment) error

// environment is the process' standard streams.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// panel is where the terminal panel draws. run fills it in from consoles.
	panel io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer, runner runFunc) *cli.App {
	defaults := config.Default()
	env := environment{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.App{
		Name:      "speedctl",
		Usage:     "closed-loop DC motor speed controller",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagSimulate,
				Aliases: []string{"sim"},
				EnvVars: []string{"SPEEDCTL_SIMULATE"},
				Usage:   "run a simulated motor and read panel commands from stdin",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				EnvVars: []string{"SPEEDCTL_DEBUG"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				EnvVars: []string{"SPEEDCTL_LOG_LEVEL"},
				Usage:   "log level: debug, info, warn or error",
			},
			&cli.DurationFlag{
				Name:    flagInputPeriod,
				EnvVars: []string{"SPEEDCTL_INPUT_PERIOD"},
				Value:   defaults.InputPeriod,
				Usage:   "panel sampling period when no button edge arrives",
			},
			&cli.DurationFlag{
				Name:    flagControlPeriod,
				EnvVars: []string{"SPEEDCTL_CONTROL_PERIOD"},
				Value:   defaults.ControlPeriod,
				Usage:   "control tick period",
			},
			&cli.DurationFlag{
				Name:    flagControlReceiveTimeout,
				EnvVars: []string{"SPEEDCTL_CONTROL_RECEIVE_TIMEOUT"},
				Value:   defaults.ControlReceiveTimeout,
				Usage:   "how long a control tick waits for fresh operator input",
			},
			&cli.DurationFlag{
				Name:    flagDisplayTimeout,
				EnvVars: []string{"SPEEDCTL_DISPLAY_TIMEOUT"},
				Value:   defaults.DisplayTimeout,
				Usage:   "how long the display task waits for a new snapshot",
			},
			&cli.DurationFlag{
				Name:    flagWatchdogPeriod,
				EnvVars: []string{"SPEEDCTL_WATCHDOG_PERIOD"},
				Value:   defaults.WatchdogPeriod,
				Usage:   "watchdog feeding period",
			},
			&cli.DurationFlag{
				Name:    flagWatchdogTimeout,
				EnvVars: []string{"SPEEDCTL_WATCHDOG_TIMEOUT"},
				Value:   defaults.WatchdogTimeout,
				Usage:   "time without feeding before the watchdog fires",
			},
			&cli.DurationFlag{
				Name:    flagStatsInterval,
				EnvVars: []string{"SPEEDCTL_STATS_INTERVAL"},
				Value:   defaults.StatsInterval,
				Usage:   "how often task statistics are logged, 0 to disable",
			},
			&cli.StringFlag{
				Name:      flagTelemetryFile,
				EnvVars:   []string{"SPEEDCTL_TELEMETRY_FILE"},
				TakesFile: true,
				Usage:     "write the current,target trace to `FILE` instead of stdout",
			},
			&cli.StringFlag{
				Name:      flagLogFile,
				EnvVars:   []string{"SPEEDCTL_LOG_FILE"},
				TakesFile: true,
				Usage:     "also write logs to `FILE`",
			},
			&cli.StringFlag{
				Name:      flagPanelFile,
				EnvVars:   []string{"SPEEDCTL_PANEL_FILE"},
				TakesFile: true,
				Usage:     "draw the panel on `FILE`, e.g. another terminal, instead of stderr",
			},
			&cli.IntFlag{
				Name:    flagMaxFileSize,
				EnvVars: []string{"SPEEDCTL_MAX_FILE_SIZE_MB"},
				Value:   defaults.MaxFileSizeMB,
				Usage:   "rotate the telemetry and log files at this size",
			},
			&cli.StringSliceFlag{
				Name:  flagPin,
				Usage: "override a pin assignment, e.g. --pin tach=GPIO5 --pin switches=GPIO2,GPIO3",
			},
			&cli.StringSliceFlag{
				Name:  flagMotor,
				Usage: "override a motor setting, e.g. --motor pwm_freq_hz=25000 --motor tach_window=100ms",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromFlags(c)
			if err != nil {
				return &exitError{code: int(robot.StagePlatform), err: err}
			}
			return runner(c.Context, cfg, env)
		},
	}
}

func configFromFlags(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	cfg.Simulate = c.Bool(flagSimulate)
	cfg.Debug = c.Bool(flagDebug)
	cfg.LogLevel = c.String(flagLogLevel)
	cfg.InputPeriod = c.Duration(flagInputPeriod)
	cfg.ControlPeriod = c.Duration(flagControlPeriod)
	cfg.ControlReceiveTimeout = c.Duration(flagControlReceiveTimeout)
	cfg.DisplayTimeout = c.Duration(flagDisplayTimeout)
	cfg.WatchdogPeriod = c.Duration(flagWatchdogPeriod)
	cfg.WatchdogTimeout = c.Duration(flagWatchdogTimeout)
	cfg.StatsInterval = c.Duration(flagStatsInterval)
	cfg.TelemetryFile = c.String(flagTelemetryFile)
	cfg.LogFile = c.String(flagLogFile)
	cfg.PanelFile = c.String(flagPanelFile)
	cfg.MaxFileSizeMB = c.Int(flagMaxFileSize)

	if err := config.DecodeAssignments(rejoinLists(c.StringSlice(flagPin)), &cfg.Pins); err != nil {
		return config.Config{}, errors.Wrap(err, "--"+flagPin)
	}
	if err := config.DecodeAssignments(rejoinLists(c.StringSlice(flagMotor)), &cfg.Motor); err != nil {
		return config.Config{}, errors.Wrap(err, "--"+flagMotor)
	}
	return cfg, nil
}

// rejoinLists undoes the comma splitting of slice flags: an item without '=' continues the list
// value of the assignment before it.
func rejoinLists(items []string) []string {
	var out []string
	for _, item := range items {
		if len(out) > 0 && !strings.Contains(item, "=") {
			out[len(out)-1] += "," + item
			continue
		}
		out = append(out, item)
	}
	return out
}

// consoles assigns the console streams so the trace, the logs and the panel never share one.
type consoles struct {
	logs  io.Writer // nil when logs only go to the log file
	panel io.Writer
	// panelDropped is set when no stream was left for the panel.
	panelDropped bool
}

// pickConsoles gives the trace stdout unless it goes to a file and the panel stderr unless it has
// its own file. Logs take a stream that is still free. With none free they go only to the log
// file, and without one they take stderr from the panel.
func pickConsoles(cfg config.Config, env environment, panelFile io.Writer) consoles {
	c := consoles{panel: env.stderr}
	if panelFile != nil {
		c.panel = panelFile
	}
	switch {
	case cfg.TelemetryFile != "":
		c.logs = env.stdout
	case panelFile != nil:
		c.logs = env.stderr
	case cfg.LogFile != "":
	default:
		c.logs = env.stderr
		c.panel = io.Discard
		c.panelDropped = true
	}
	return c
}

func newLogger(cfg config.Config, console io.Writer) (logging.Logger, io.Closer) {
	logger := logging.NewBlankLogger("speedctl")
	logger.SetLevel(cfg.Level())
	if console != nil {
		logger.AddAppender(logging.NewWriterAppender(console))
	}
	if cfg.LogFile == "" {
		return logger, nil
	}
	appender, closer := logging.NewFileAppender(cfg.LogFile, cfg.MaxFileSizeMB)
	logger.AddAppender(appender)
	return logger, closer
}

func run(ctx context.Context, cfg config.Config, env environment) (err error) {
	var panelFile *os.File
	if cfg.PanelFile != "" {
		panelFile, err = os.OpenFile(cfg.PanelFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return &exitError{code: int(robot.StagePlatform), err: errors.Wrap(err, "opening panel file")}
		}
		defer func() {
			err = multierr.Combine(err, panelFile.Close())
		}()
	}
	var c consoles
	if panelFile != nil {
		c = pickConsoles(cfg, env, panelFile)
	} else {
		c = pickConsoles(cfg, env, nil)
	}
	env.panel = c.panel

	logger, logCloser := newLogger(cfg, c.logs)
	logging.ReplaceGlobal(logger)
	defer func() {
		err = multierr.Combine(err, logger.Sync())
		if logCloser != nil {
			err = multierr.Combine(err, logCloser.Close())
		}
	}()
	if c.panelDropped {
		logger.Warnf("panel disabled since logs and the trace hold both console streams; set --%s or --%s",
			flagPanelFile, flagLogFile)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hw robot.Hardware
	if cfg.Simulate {
		hw = simulatedHardware(ctx, cfg, env, logger)
	} else {
		hw = gpioHardware(cfg, env, logger)
	}

	sys, err := robot.New(ctx, cfg, hw, nil, logger)
	if err != nil {
		return err
	}
	logger.Infow("controller running", "simulate", cfg.Simulate, "control_period", cfg.ControlPeriod)
	sys.Start(ctx)

	expired := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-sys.Expired():
		expired = true
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sys.Close(closeCtx); err != nil {
		logger.Errorw("error closing controller", "error", err)
	}
	if expired {
		return &exitError{code: watchdogResetCode}
	}
	return nil
}
