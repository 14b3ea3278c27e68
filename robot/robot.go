// Package robot brings the controller up stage by stage and runs its tasks: input, control,
// display and the watchdog supervisor, joined by single-slot mailboxes.
package robot

import (
	"context"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/speedctl/components/board"
	"go.viam.com/speedctl/components/display"
	"go.viam.com/speedctl/components/motor"
	"go.viam.com/speedctl/config"
	"go.viam.com/speedctl/control"
	"go.viam.com/speedctl/input"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/presenter"
	"go.viam.com/speedctl/robot/jobmanager"
	"go.viam.com/speedctl/utils"
	"go.viam.com/speedctl/watchdog"
)

// Stage is one bring-up step. Its value is the status code shown while it runs.
type Stage int

// Bring-up stages in the order they run.
const (
	StagePlatform Stage = iota + 1
	StageMotor
	StageInputs
	StageDisplay
	StageTelemetry
	StageWatchdog
	StageTasks
)

func (s Stage) String() string {
	switch s {
	case StagePlatform:
		return "platform"
	case StageMotor:
		return "motor"
	case StageInputs:
		return "inputs"
	case StageDisplay:
		return "display"
	case StageTelemetry:
		return "telemetry"
	case StageWatchdog:
		return "watchdog"
	case StageTasks:
		return "tasks"
	}
	return "unknown"
}

// Hardware opens the collaborators, one function per stage. Anything returned that implements
// io.Closer is closed by System.Close, or right away if a later stage fails.
type Hardware struct {
	// Status shows stage codes during bring-up and the status number and LEDs afterwards. It is
	// ready before the first stage and may be nil.
	Status display.StatusPanel

	OpenPlatform  func(ctx context.Context) error
	OpenMotor     func(ctx context.Context) (motor.Motor, error)
	OpenInputs    func(ctx context.Context) (board.Inputs, error)
	OpenDisplay   func(ctx context.Context) (display.Display, error)
	OpenTelemetry func(ctx context.Context) (io.Writer, error)
	OpenWatchdog  func(ctx context.Context, onExpire func()) (watchdog.Timer, error)
}

// Stats are the counters of every task.
type Stats struct {
	Input    utils.TaskStats
	Control  utils.TaskStats
	Display  utils.TaskStats
	Watchdog utils.TaskStats
}

// System is a controller that has been brought up.
type System struct {
	cfg    config.Config
	clk    clock.Clock
	logger logging.Logger

	motor     motor.Motor
	inputs    board.Inputs
	disp      display.Display
	status    display.StatusPanel
	timer     watchdog.Timer
	telemetry io.Writer
	closers   []io.Closer

	inputTask   *input.Task
	controlTask *control.Task
	displayTask *presenter.Task
	supervisor  *watchdog.Supervisor
	jobs        *jobmanager.Jobmanager
	stats       *Stats

	workers     utils.StoppableWorkers
	expired     chan struct{}
	expiredOnce sync.Once
}

// New runs every bring-up stage in order. The first failure is returned as an *InitError after
// everything already opened has been closed; the system never starts with a stage missing.
func New(ctx context.Context, cfg config.Config, hw Hardware, clk clock.Clock, logger logging.Logger) (*System, error) {
	if clk == nil {
		clk = clock.New()
	}
	s := &System{
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		status:  hw.Status,
		stats:   &Stats{},
		expired: make(chan struct{}),
	}

	stages := []struct {
		stage Stage
		run   func() error
	}{
		{StagePlatform, func() error {
			if err := cfg.Validate("speedctl"); err != nil {
				return err
			}
			if hw.OpenPlatform == nil {
				return nil
			}
			return hw.OpenPlatform(ctx)
		}},
		{StageMotor, func() (err error) {
			s.motor, err = open(ctx, s, hw.OpenMotor)
			return err
		}},
		{StageInputs, func() (err error) {
			s.inputs, err = open(ctx, s, hw.OpenInputs)
			return err
		}},
		{StageDisplay, func() (err error) {
			s.disp, err = open(ctx, s, hw.OpenDisplay)
			return err
		}},
		{StageTelemetry, func() (err error) {
			if hw.OpenTelemetry == nil {
				return nil
			}
			s.telemetry, err = open(ctx, s, hw.OpenTelemetry)
			return err
		}},
		{StageWatchdog, func() (err error) {
			if hw.OpenWatchdog == nil {
				return errors.New("not provided")
			}
			s.timer, err = open(ctx, s, func(ctx context.Context) (watchdog.Timer, error) {
				return hw.OpenWatchdog(ctx, s.expire)
			})
			return err
		}},
		{StageTasks, s.wireTasks},
	}

	for _, st := range stages {
		s.showStage(ctx, st.stage)
		logger.Debugw("bring-up stage", "stage", st.stage.String(), "code", int(st.stage))
		if err := st.run(); err != nil {
			initErr := &InitError{Stage: st.stage, Err: err}
			logger.Errorw("bring-up failed", "stage", st.stage.String(), "code", int(st.stage), "error", err)
			return nil, multierr.Combine(initErr, s.closeAll())
		}
	}
	logger.Info("bring-up complete")
	return s, nil
}

// open runs one collaborator constructor and remembers it for closing.
func open[T any](ctx context.Context, s *System, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, errors.New("not provided")
	}
	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}
	s.track(v)
	return v, nil
}

func (s *System) track(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
}

func (s *System) showStage(ctx context.Context, stage Stage) {
	if s.status == nil {
		return
	}
	if err := s.status.ShowNumber(ctx, uint32(stage)); err != nil {
		s.logger.Warnw("failed to show bring-up stage", "stage", stage.String(), "error", err)
	}
}

// wireTasks joins the tasks with mailboxes and prepares the stats reporter.
func (s *System) wireTasks() error {
	inputToControl := utils.NewMailbox[control.Parameters](s.clk)
	inputToDisplay := utils.NewMailbox[input.Update](s.clk)
	controlToDisplay := utils.NewMailbox[control.Parameters](s.clk)
	crash := utils.NewMailbox[bool](s.clk)

	var err error
	s.inputTask, err = input.NewTask(s.cfg.InputPeriod, s.inputs, input.Outputs{
		Control: inputToControl,
		Display: inputToDisplay,
		Crash:   crash,
	}, s.clk, s.logger.Sublogger("input"), &s.stats.Input)
	if err != nil {
		return err
	}

	controlLogger := s.logger.Sublogger("control")
	s.controlTask, err = control.NewTask(
		control.TaskConfig{Period: s.cfg.ControlPeriod, ReceiveTimeout: s.cfg.ControlReceiveTimeout},
		control.NewEngine(s.motor, controlLogger, &s.stats.Control),
		inputToControl, controlToDisplay,
		control.NewTelemetry(s.telemetry),
		s.clk, controlLogger, &s.stats.Control,
	)
	if err != nil {
		return err
	}

	s.displayTask, err = presenter.NewTask(
		presenter.New(s.disp, s.status),
		inputToDisplay, controlToDisplay,
		s.cfg.DisplayTimeout,
		s.clk, s.logger.Sublogger("display"), &s.stats.Display,
	)
	if err != nil {
		return err
	}

	s.supervisor = watchdog.NewSupervisor(s.timer, crash, s.logger.Sublogger("watchdog"), &s.stats.Watchdog)

	if s.cfg.StatsInterval > 0 {
		s.jobs, err = jobmanager.New(s.cfg.StatsInterval, map[string]*utils.TaskStats{
			"input":    &s.stats.Input,
			"control":  &s.stats.Control,
			"display":  &s.stats.Display,
			"watchdog": &s.stats.Watchdog,
		}, s.logger)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *System) expire() {
	s.expiredOnce.Do(func() {
		s.logger.Error("watchdog expired")
		close(s.expired)
	})
}

// Start runs the tasks until ctx is done or Close is called.
func (s *System) Start(ctx context.Context) {
	s.workers = utils.NewTaskWorkers(ctx, s.logger)
	s.workers.AddTask("input", &s.stats.Input, s.inputTask.Run)
	s.workers.AddTask("control", &s.stats.Control, s.controlTask.Run)
	s.workers.AddTask("display", &s.stats.Display, s.displayTask.Run)
	s.workers.AddTask("watchdog", &s.stats.Watchdog, func(ctx context.Context) {
		s.supervisor.Run(ctx, s.clk, s.cfg.WatchdogPeriod)
	})
	if s.jobs != nil {
		s.jobs.Start()
	}
}

// Expired is closed when the watchdog fires. The host treats it as a reset.
func (s *System) Expired() <-chan struct{} {
	return s.expired
}

// Stats returns the task counters.
func (s *System) Stats() *Stats {
	return s.stats
}

// Close stops the tasks, leaves the motor stopped and releases every collaborator.
func (s *System) Close(ctx context.Context) error {
	if s.workers != nil {
		s.workers.Stop()
		if crashed := s.workers.Crashed(); len(crashed) > 0 {
			s.logger.Warnw("tasks ended early", "tasks", crashed)
		}
	}
	var err error
	if s.jobs != nil {
		err = multierr.Combine(err, s.jobs.Shutdown())
	}
	if s.motor != nil {
		err = multierr.Combine(err, errors.Wrap(s.motor.SetPWM(ctx, 0), "stopping motor"))
	}
	return multierr.Combine(err, s.closeAll())
}

func (s *System) closeAll() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Combine(err, s.closers[i].Close())
	}
	s.closers = nil
	return err
}
