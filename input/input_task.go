package input

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/speedctl/components/board"
	"go.viam.com/speedctl/control"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// Outputs are the mailboxes the input task publishes to every tick.
type Outputs struct {
	Control *utils.Mailbox[control.Parameters]
	Display *utils.Mailbox[Update]
	// Crash carries the crash switch to the watchdog supervisor.
	Crash *utils.Mailbox[bool]
}

// Task samples the raw inputs, decodes them into its own Parameters snapshot and publishes copies.
// It never waits on hardware: a failed read keeps the previous value of that input.
type Task struct {
	period  time.Duration
	inputs  board.Inputs
	decoder *Decoder
	out     Outputs
	clk     clock.Clock
	logger  logging.Logger
	stats   *utils.TaskStats

	last   Sample
	params control.Parameters
}

// NewTask returns an input task sampling every period.
func NewTask(
	period time.Duration,
	inputs board.Inputs,
	out Outputs,
	clk clock.Clock,
	logger logging.Logger,
	stats *utils.TaskStats,
) (*Task, error) {
	if period <= 0 {
		return nil, errors.New("input period must be positive")
	}
	if out.Control == nil || out.Display == nil || out.Crash == nil {
		return nil, errors.New("input task needs control, display and crash mailboxes")
	}
	if clk == nil {
		clk = clock.New()
	}
	if stats == nil {
		stats = &utils.TaskStats{}
	}
	return &Task{
		period:  period,
		inputs:  inputs,
		decoder: NewDecoder(),
		out:     out,
		clk:     clk,
		logger:  logger,
		stats:   stats,
	}, nil
}

// Run samples every period, and early whenever the inputs report a button edge, until ctx is done.
func (t *Task) Run(ctx context.Context) {
	var edges <-chan struct{}
	if notifier, ok := t.inputs.(board.EdgeNotifier); ok {
		edges = notifier.Edges()
	}

	ticker := t.clk.Ticker(t.period)
	defer ticker.Stop()
	for {
		t.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-edges:
		}
	}
}

// Tick samples, decodes and publishes once.
func (t *Task) Tick(ctx context.Context) Update {
	t.stats.Ticks.Inc()
	sample := t.sample(ctx)
	update := t.decoder.Decode(sample, t.params)
	t.params = update.Params

	if update.Reason != Idle {
		t.logger.CDebugw(ctx, "operator input",
			"reason", update.Reason.String(),
			"gain", update.ActiveGain.String(),
			"params", update.Params.String(),
		)
	}
	if update.Reason == EmergencyStop {
		t.logger.Warn("emergency stop requested")
	}

	t.out.Control.Send(update.Params)
	t.out.Display.Send(update)
	t.out.Crash.Send(update.Switches.Crash)
	return update
}

func (t *Task) sample(ctx context.Context) Sample {
	s := t.last
	if v, err := t.inputs.Switches(ctx); err != nil {
		t.readFailed("switches", err)
	} else {
		s.Switches = v
	}
	for _, b := range []struct {
		id    board.ButtonID
		level *bool
	}{
		{board.ButtonUp, &s.Up},
		{board.ButtonDown, &s.Down},
		{board.ButtonCenter, &s.Center},
	} {
		if v, err := t.inputs.Button(ctx, b.id); err != nil {
			t.readFailed(b.id.String()+" button", err)
		} else {
			*b.level = v
		}
	}
	if v, err := t.inputs.EncoderPosition(ctx); err != nil {
		t.readFailed("encoder position", err)
	} else {
		s.EncoderPosition = v
	}
	if v, err := t.inputs.EncoderAux(ctx); err != nil {
		t.readFailed("encoder aux", err)
	} else {
		s.EncoderAux = v
	}
	t.last = s
	return s
}

func (t *Task) readFailed(what string, err error) {
	t.stats.Errors.Inc()
	t.logger.Debugw("input read failed, keeping last value", "input", what, "error", err)
}
