package control

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// TaskConfig holds the timing of the control task.
type TaskConfig struct {
	// Period is the fixed control tick.
	Period time.Duration
	// ReceiveTimeout bounds how long a tick waits for a fresh snapshot.
	ReceiveTimeout time.Duration
}

// Validate ensures the timing can be run.
func (cfg TaskConfig) Validate() error {
	if cfg.Period <= 0 {
		return errors.New("control period must be positive")
	}
	if cfg.ReceiveTimeout < 0 || cfg.ReceiveTimeout >= cfg.Period {
		return errors.Errorf("control receive timeout %v must be in [0, %v)", cfg.ReceiveTimeout, cfg.Period)
	}
	return nil
}

// Task is the control task: once per period it takes the latest operator snapshot (or keeps the
// previous one), runs one engine step, traces it and forwards the result to the display.
type Task struct {
	cfg       TaskConfig
	engine    *Engine
	in        *utils.Mailbox[Parameters]
	out       *utils.Mailbox[Parameters]
	telemetry *Telemetry
	clk       clock.Clock
	logger    logging.Logger
	stats     *utils.TaskStats
}

// NewTask wires a control task. in carries snapshots from the input task, out carries results to
// the display task.
func NewTask(
	cfg TaskConfig,
	engine *Engine,
	in, out *utils.Mailbox[Parameters],
	telemetry *Telemetry,
	clk clock.Clock,
	logger logging.Logger,
	stats *utils.TaskStats,
) (*Task, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	if stats == nil {
		stats = &utils.TaskStats{}
	}
	if telemetry == nil {
		telemetry = NewTelemetry(nil)
	}
	return &Task{
		cfg:       cfg,
		engine:    engine,
		in:        in,
		out:       out,
		telemetry: telemetry,
		clk:       clk,
		logger:    logger,
		stats:     stats,
	}, nil
}

// Run loops until ctx is done.
func (t *Task) Run(ctx context.Context) {
	t.logger.Infof("running control loop every %v", t.cfg.Period)
	ticker := t.clk.Ticker(t.cfg.Period)
	defer ticker.Stop()

	var params Parameters
	for {
		params = t.tick(ctx, params)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs a single control step starting from the last snapshot and returns the new one.
func (t *Task) tick(ctx context.Context, last Parameters) Parameters {
	t.stats.Ticks.Inc()
	if fresh, ok := t.in.Receive(ctx, t.cfg.ReceiveTimeout); ok {
		last = fresh
	} else {
		t.stats.StaleReceives.Inc()
	}

	next := t.engine.Step(ctx, last)
	if err := t.telemetry.Record(next); err != nil {
		t.stats.Errors.Inc()
		t.logger.Warnw("telemetry write failed", "error", err)
	}
	t.out.Send(next)
	return next
}
