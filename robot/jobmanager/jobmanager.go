// Package jobmanager runs the controller's housekeeping jobs on a schedule, next to (and never
// inside) the control tasks.
package jobmanager

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"

	"go.viam.com/speedctl/logging"
	"go.viam.com/speedctl/utils"
)

// Jobmanager logs the counters of every task on a fixed interval.
type Jobmanager struct {
	scheduler gocron.Scheduler
	logger    logging.Logger
	tasks     map[string]*utils.TaskStats
	previous  map[string]utils.TaskStatsSnapshot
}

// New returns a job manager reporting tasks every interval. It does nothing until Start.
func New(interval time.Duration, tasks map[string]*utils.TaskStats, logger logging.Logger) (*Jobmanager, error) {
	if interval <= 0 {
		return nil, errors.Errorf("stats interval must be positive, got %v", interval)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	jm := &Jobmanager{
		scheduler: scheduler,
		logger:    logger.Sublogger("job_manager"),
		tasks:     tasks,
		previous:  make(map[string]utils.TaskStatsSnapshot, len(tasks)),
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(jm.Report),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, errors.Wrap(err, "scheduling stats report")
	}
	return jm, nil
}

// Start begins running jobs.
func (jm *Jobmanager) Start() {
	jm.scheduler.Start()
}

// Report logs each task's counters and how much they moved since the previous report.
func (jm *Jobmanager) Report() {
	for name, stats := range jm.tasks {
		now := stats.Snapshot()
		prev := jm.previous[name]
		jm.previous[name] = now
		jm.logger.Infow("task stats",
			"task", name,
			"ticks", now.Ticks,
			"ticks_delta", now.Ticks-prev.Ticks,
			"stale_receives", now.StaleReceives,
			"errors", now.Errors,
			"errors_delta", now.Errors-prev.Errors,
			"redraws", now.Redraws,
		)
	}
}

// Shutdown stops the scheduler and waits for a running report to finish.
func (jm *Jobmanager) Shutdown() error {
	jm.logger.Debug("shutting down")
	return jm.scheduler.Shutdown()
}
