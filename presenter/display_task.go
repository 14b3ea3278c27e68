package presenter

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/speedctl/control"
	"go.viam.com/speedctl/input"
	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// Task is the display task. It waits a bounded time for a snapshot from either the input or the
// control task and draws whatever arrived.
type Task struct {
	presenter   *Presenter
	fromInput   *utils.Mailbox[input.Update]
	fromControl *utils.Mailbox[control.Parameters]
	timeout     time.Duration
	clk         clock.Clock
	logger      logging.Logger
	stats       *utils.TaskStats
}

// NewTask returns a display task.
func NewTask(
	presenter *Presenter,
	fromInput *utils.Mailbox[input.Update],
	fromControl *utils.Mailbox[control.Parameters],
	timeout time.Duration,
	clk clock.Clock,
	logger logging.Logger,
	stats *utils.TaskStats,
) (*Task, error) {
	if timeout <= 0 {
		return nil, errors.New("display receive timeout must be positive")
	}
	if clk == nil {
		clk = clock.New()
	}
	if stats == nil {
		stats = &utils.TaskStats{}
	}
	return &Task{
		presenter:   presenter,
		fromInput:   fromInput,
		fromControl: fromControl,
		timeout:     timeout,
		clk:         clk,
		logger:      logger,
		stats:       stats,
	}, nil
}

// Run draws the first frame right away and then one frame per received snapshot until ctx is done.
func (t *Task) Run(ctx context.Context) {
	t.render(ctx)
	for {
		if !t.wait(ctx) {
			if ctx.Err() != nil {
				return
			}
			t.stats.StaleReceives.Inc()
			continue
		}
		t.render(ctx)
	}
}

// wait blocks until either mailbox delivers, the timeout passes or ctx is done. It reports whether
// anything was applied.
func (t *Task) wait(ctx context.Context) bool {
	timer := t.clk.Timer(t.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	case u := <-t.fromInput.C():
		t.presenter.ApplyInput(u)
	case p := <-t.fromControl.C():
		t.presenter.ApplyControl(p)
	}

	// Pick up anything the other side left too, so one frame covers both.
	if u, ok := t.fromInput.TryReceive(); ok {
		t.presenter.ApplyInput(u)
	}
	if p, ok := t.fromControl.TryReceive(); ok {
		t.presenter.ApplyControl(p)
	}
	return true
}

func (t *Task) render(ctx context.Context) {
	t.stats.Ticks.Inc()
	regions, err := t.presenter.Render(ctx)
	t.stats.Redraws.Add(int64(regions))
	if err != nil {
		t.stats.Errors.Inc()
		t.logger.Warnw("display update failed, will redraw everything", "error", err)
	}
}
