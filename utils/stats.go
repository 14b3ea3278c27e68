package utils

import "go.uber.org/atomic"

// TaskStats counts what a periodic task did. It is written by the task goroutine and read by the
// statistics reporter.
type TaskStats struct {
	Ticks         atomic.Int64
	StaleReceives atomic.Int64
	Errors        atomic.Int64
	Redraws       atomic.Int64
}

// TaskStatsSnapshot is a point-in-time copy of TaskStats.
type TaskStatsSnapshot struct {
	Ticks         int64
	StaleReceives int64
	Errors        int64
	Redraws       int64
}

// Snapshot copies the counters.
func (s *TaskStats) Snapshot() TaskStatsSnapshot {
	return TaskStatsSnapshot{
		Ticks:         s.Ticks.Load(),
		StaleReceives: s.StaleReceives.Load(),
		Errors:        s.Errors.Load(),
		Redraws:       s.Redraws.Load(),
	}
}
