// Package watchdog keeps a reset timer fed while the operator's crash switch is down and lets it
// expire when the switch is raised.
package watchdog

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// Timer is a watchdog that resets the system unless restarted in time.
type Timer interface {
	Restart() error
}

// State is the supervisor's view of the crash request.
type State int

// Supervisor states.
const (
	Armed State = iota
	CrashRequested
)

func (s State) String() string {
	if s == CrashRequested {
		return "crash-requested"
	}
	return "armed"
}

// Supervisor feeds a Timer on every tick unless the latest crash flag is set.
type Supervisor struct {
	timer  Timer
	crash  *utils.Mailbox[bool]
	logger logging.Logger
	stats  *utils.TaskStats

	crashFlag bool
	state     State
}

// NewSupervisor returns an armed supervisor. crash carries the crash switch from the input task;
// with no value in it the previous flag stands.
func NewSupervisor(timer Timer, crash *utils.Mailbox[bool], logger logging.Logger, stats *utils.TaskStats) *Supervisor {
	if stats == nil {
		stats = &utils.TaskStats{}
	}
	return &Supervisor{timer: timer, crash: crash, logger: logger, stats: stats}
}

// Tick picks up the latest crash flag and restarts the timer if it is clear.
func (s *Supervisor) Tick() State {
	s.stats.Ticks.Inc()
	if flag, ok := s.crash.TryReceive(); ok {
		s.crashFlag = flag
	}

	next := Armed
	if s.crashFlag {
		next = CrashRequested
	} else if err := s.timer.Restart(); err != nil {
		s.stats.Errors.Inc()
		s.logger.Errorw("failed to restart watchdog", "error", err)
	}

	if next != s.state {
		if next == CrashRequested {
			s.logger.Warn("crash switch raised, no longer feeding the watchdog")
		} else {
			s.logger.Info("crash switch cleared, feeding the watchdog again")
		}
	}
	s.state = next
	return next
}

// State returns the state after the last tick.
func (s *Supervisor) State() State {
	return s.state
}

// Run ticks once per period until ctx is done.
func (s *Supervisor) Run(ctx context.Context, clk clock.Clock, period time.Duration) {
	ticker := clk.Ticker(period)
	defer ticker.Stop()
	for {
		s.Tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
