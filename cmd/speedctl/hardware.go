package main

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gopkg.in/natefinch/lumberjack.v2"
	"periph.io/x/host/v3"

	"go.viam.com/speedctl/components/board"
	boardfake "go.viam.com/speedctl/components/board/fake"
	"go.viam.com/speedctl/components/board/periphboard"
	"go.viam.com/speedctl/components/display"
	"go.viam.com/speedctl/components/display/term"
	"go.viam.com/speedctl/components/motor"
	motorfake "go.viam.com/speedctl/components/motor/fake"
	"go.viam.com/speedctl/components/motor/periphmotor"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/presenter"
	"go.viam.com/speedctl/robot"
	"go.viam.com/speedctl/watchdog"
)

const terminalFrame = 50 * time.Millisecond

// gpioHardware opens the real panel and motor driver through periph.
func gpioHardware(cfg config.Config, env environment, logger logging.Logger) robot.Hardware {
	panel := term.New(env.panel, presenter.Cols, presenter.Rows, terminalFrame)
	return robot.Hardware{
		Status: panel,
		OpenPlatform: func(context.Context) error {
			state, err := host.Init()
			if err != nil {
				return errors.Wrap(err, "initializing periph host drivers")
			}
			logger.Debugw("periph drivers loaded", "loaded", len(state.Loaded), "skipped", len(state.Skipped))
			return nil
		},
		OpenMotor: func(context.Context) (motor.Motor, error) {
			return periphmotor.New(cfg.Pins, cfg.Motor, nil, logger.Sublogger("motor"))
		},
		OpenInputs: func(context.Context) (board.Inputs, error) {
			return periphboard.New(cfg.Pins, logger.Sublogger("board"))
		},
		OpenDisplay:   func(context.Context) (display.Display, error) { return panel, nil },
		OpenTelemetry: telemetrySink(cfg, env),
		OpenWatchdog:  softWatchdog(cfg),
	}
}

// simulatedHardware runs a simulated motor and a fake panel fed by operator commands on stdin.
func simulatedHardware(ctx context.Context, cfg config.Config, env environment, logger logging.Logger) robot.Hardware {
	panel := term.New(env.panel, presenter.Cols, presenter.Rows, terminalFrame)
	return robot.Hardware{
		Status: panel,
		OpenMotor: func(context.Context) (motor.Motor, error) {
			return motorfake.NewSimulatedMotor(nil, float64(cfg.Motor.MaxRPM), cfg.Motor.TimeConstant), nil
		},
		OpenInputs: func(context.Context) (board.Inputs, error) {
			inputs := boardfake.NewBoard()
			sublogger := logger.Sublogger("stdin")
			goutils.PanicCapturingGo(func() {
				readCommands(ctx, env.stdin, inputs, sublogger)
			})
			return inputs, nil
		},
		OpenDisplay:   func(context.Context) (display.Display, error) { return panel, nil },
		OpenTelemetry: telemetrySink(cfg, env),
		OpenWatchdog:  softWatchdog(cfg),
	}
}

// readCommands applies one operator command per line until r is exhausted or ctx is done.
func readCommands(ctx context.Context, r io.Reader, inputs *boardfake.Board, logger logging.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := inputs.ApplyCommand(scanner.Text()); err != nil {
			logger.Warnw("ignoring command", "line", scanner.Text(), "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Errorw("error reading commands", "error", err)
	}
}

// stdoutWriter hides Close so the system does not close stdout at shutdown.
type stdoutWriter struct {
	io.Writer
}

func telemetrySink(cfg config.Config, env environment) func(context.Context) (io.Writer, error) {
	return func(context.Context) (io.Writer, error) {
		if cfg.TelemetryFile == "" {
			return stdoutWriter{env.stdout}, nil
		}
		return &lumberjack.Logger{
			Filename:   cfg.TelemetryFile,
			MaxSize:    cfg.MaxFileSizeMB,
			MaxBackups: 2,
		}, nil
	}
}

func softWatchdog(cfg config.Config) func(context.Context, func()) (watchdog.Timer, error) {
	return func(_ context.Context, onExpire func()) (watchdog.Timer, error) {
		return watchdog.NewSoftTimer(nil, cfg.WatchdogTimeout, onExpire)
	}
}
