// Package engine wires the resource graph, scheduler, and job manager
// into one process-wide context with idempotent Start/Stop. It replaces
// the process-global singletons (a resource manager, a scheduler, a job
// manager, a build manager, an optimizer) with one explicitly
// constructed value a caller holds and passes down, rather than reaching
// for package-level instances.
package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/veccore/coreq/internal/config"
	"github.com/veccore/coreq/internal/jobmgr"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/resource"
	"github.com/veccore/coreq/internal/scheduler"
)

// Engine owns a graph's worker threads and the job manager that submits
// work to them. Construct one per process; every query and job runs
// through the same Engine.
type Engine struct {
	Graph     *resource.Graph
	Scheduler *scheduler.Scheduler
	Jobs      *jobmgr.Manager
	Executor  *plan.Executor
	Logger    *zap.Logger

	mu      sync.Mutex
	started bool
}

// New builds the resource graph from cfg, constructs the scheduler and
// job manager bound to it, and returns the assembled Engine along with
// any non-fatal construction warnings (e.g. a GPU device id present in
// both the search and build pools).
func New(cfg config.Config, logger *zap.Logger) (*Engine, []string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	graph, warnings, err := resource.BuildFromConfig(cfg.ResourceConfig())
	if err != nil {
		return nil, nil, err
	}

	executor := plan.NewExecutor()
	jobs := jobmgr.New(nil, executor)
	sched := scheduler.New(graph, jobs, cfg.GPUSearchPool, cfg.GPUBuildPool, logger)
	jobs.BindScheduler(sched)

	return &Engine{
		Graph:     graph,
		Scheduler: sched,
		Jobs:      jobs,
		Executor:  executor,
		Logger:    logger,
	}, warnings, nil
}

// Start launches the scheduler's per-resource worker threads. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.Scheduler.Start()
	e.Logger.Info("engine started")
}

// Stop drains every resource queue and waits for its workers to exit.
// Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.started = false
	e.Scheduler.Stop()
	e.Logger.Info("engine stopped")
}
