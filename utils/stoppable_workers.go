package utils

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/speedctl/logging"
)

// StoppableWorkers runs the controller's task loops and driver goroutines under one cancellation.
// The task loops never return on their own; Stop is how a shutdown or a test ends them.
type StoppableWorkers interface {
	// AddWorkers starts anonymous goroutines, such as a driver's edge watcher.
	AddWorkers(...func(context.Context))
	// AddTask starts a named task loop. A panic in it is logged under the name and counted as an
	// error in stats, and the loop is not restarted. stats may be nil.
	AddTask(name string, stats *TaskStats, run func(context.Context))
	// Running is the number of workers that have not returned.
	Running() int
	// Crashed lists the workers that ended in a panic, anonymous ones as "worker".
	Crashed() []string
	Stop()
	Context() context.Context
}

type stoppableWorkers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	wg      sync.WaitGroup
	running atomic.Int32
	crashed []string
	logger  logging.Logger
}

// NewStoppableWorkers runs the functions in separate goroutines. They can be stopped later.
func NewStoppableWorkers(funcs ...func(context.Context)) StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), funcs...)
}

// NewStoppableWorkersWithContext is like NewStoppableWorkers, but the workers also stop when
// parent is done.
func NewStoppableWorkersWithContext(parent context.Context, funcs ...func(context.Context)) StoppableWorkers {
	return NewTaskWorkers(parent, nil, funcs...)
}

// NewTaskWorkers is NewStoppableWorkersWithContext with a logger for task panics. logger may be
// nil, in which case the global logger is used.
func NewTaskWorkers(parent context.Context, logger logging.Logger, funcs ...func(context.Context)) StoppableWorkers {
	if logger == nil {
		logger = logging.Global()
	}
	ctx, cancel := context.WithCancel(parent)
	sw := &stoppableWorkers{ctx: ctx, cancel: cancel, logger: logger}
	sw.AddWorkers(funcs...)
	return sw
}

// AddWorkers starts nothing once Stop has been called.
func (sw *stoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	for _, f := range funcs {
		sw.start("", nil, f)
	}
}

func (sw *stoppableWorkers) AddTask(name string, stats *TaskStats, run func(context.Context)) {
	sw.start(name, stats, run)
}

func (sw *stoppableWorkers) start(name string, stats *TaskStats, f func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.ctx.Err() != nil {
		return
	}

	sw.wg.Add(1)
	sw.running.Inc()
	goutils.PanicCapturingGo(func() {
		defer func() {
			sw.running.Dec()
			sw.wg.Done()
		}()
		defer func() {
			if err := recover(); err != nil {
				sw.crash(name, stats, err)
			}
		}()
		f(sw.ctx)
	})
}

func (sw *stoppableWorkers) crash(name string, stats *TaskStats, err interface{}) {
	if stats != nil {
		stats.Errors.Inc()
	}
	if name == "" {
		name = "worker"
	}
	sw.logger.Errorw("task crashed", "task", name, "panic", fmt.Sprint(err), "stack", string(debug.Stack()))
	sw.mu.Lock()
	sw.crashed = append(sw.crashed, name)
	sw.mu.Unlock()
}

func (sw *stoppableWorkers) Running() int {
	return int(sw.running.Load())
}

func (sw *stoppableWorkers) Crashed() []string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return append([]string(nil), sw.crashed...)
}

// Stop cancels the shared context and waits for every worker to return.
func (sw *stoppableWorkers) Stop() {
	// Under mu so no start is between its context check and wg.Add.
	sw.mu.Lock()
	sw.cancel()
	sw.mu.Unlock()
	sw.wg.Wait()
}

func (sw *stoppableWorkers) Context() context.Context {
	return sw.ctx
}
