// Package scheduler drives tasks across a resource graph: one loader
// thread and one executor thread per resource, routing each task along
// a shortest-weighted path toward a resource of the kind it requires.
package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/metrics"
	"github.com/veccore/coreq/internal/resource"
)

// Handler runs the two phases of a task's visit to one resource: Load
// fetches its working set from the previous hop, Execute advances it.
// Only the final hop on a task's route calls Execute; every hop calls
// Load.
type Handler interface {
	Load(ctx context.Context, t *resource.Task, on *resource.Resource) error
	Execute(ctx context.Context, t *resource.Task, on *resource.Resource) error
}

// Scheduler owns the resource graph's worker threads. Construction from
// config happens in the resource package; Scheduler only routes and
// drives tasks once the graph exists.
type Scheduler struct {
	graph      *resource.Graph
	handler    Handler
	searchPool []int
	buildPool  []int
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// New returns a Scheduler bound to graph. searchPool and buildPool are
// the GPU device ids a search or build task prefers, selected
// independently per pool; either may be nil if the deployment has no
// GPUs of that kind.
func New(graph *resource.Graph, handler Handler, searchPool, buildPool []int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		graph:      graph,
		handler:    handler,
		searchPool: searchPool,
		buildPool:  buildPool,
		logger:     logger,
	}
}

// Start launches one loader and one executor goroutine per resource and
// freezes the graph against further structural mutation. Calling Start
// twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.graph.Start()
	for _, r := range s.graph.Resources() {
		r := r
		s.wg.Add(2)
		go s.loaderLoop(r)
		go s.executorLoop(r)
	}
	s.logger.Info("scheduler started", zap.Int("resources", len(s.graph.Resources())))
}

// Stop signals every resource queue to drain and waits for the loader
// and executor goroutines to exit. Calling Stop before Start, or twice,
// is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.graph.Stop()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Submit computes a route for task from startResource to a resource
// matching task.RequiredKind, then pushes it onto the first hop's
// in-queue. The task must be in state New.
func (s *Scheduler) Submit(task *resource.Task, startResource string) error {
	start, ok := s.graph.Resource(startResource)
	if !ok {
		return corerr.NewResourceUnavailable("scheduler.Submit", "no such starting resource: "+startResource)
	}

	route, err := s.route(task, startResource)
	if err != nil {
		return err
	}

	task.SetRoute(route)
	task.SetState(core.TaskQueued)
	start.Push(task)
	return nil
}

func (s *Scheduler) route(task *resource.Task, from string) ([]string, error) {
	if task.RequiredKind == core.ResourceGPU {
		pool := s.searchPool
		if task.Kind == core.TaskBuild {
			pool = s.buildPool
		}
		device, err := s.pickLeastLoadedDevice(pool)
		if err != nil {
			return nil, err
		}
		return s.graph.ShortestPathTo(from, resource.DeviceName(device))
	}

	_, path, err := s.graph.ShortestPath(from, task.RequiredKind)
	return path, err
}

// pickLeastLoadedDevice selects the device with the shallowest queue
// depth, breaking ties by lowest device id. A device whose build permit
// is currently held is treated as maximally loaded, since a task routed
// there would only block behind the permit anyway.
func (s *Scheduler) pickLeastLoadedDevice(pool []int) (int, error) {
	const busyPenalty = 1 << 30

	best := -1
	bestLoad := -1
	for _, id := range pool {
		r, ok := s.graph.Resource(resource.DeviceName(id))
		if !ok {
			continue
		}
		load := r.QueueDepth()
		if r.DevicePermit != nil && len(r.DevicePermit) == 0 {
			load += busyPenalty
		}
		if best == -1 || load < bestLoad || (load == bestLoad && id < best) {
			best = id
			bestLoad = load
		}
	}
	if best == -1 {
		return 0, corerr.NewResourceUnavailable("scheduler.pickLeastLoadedDevice", "no reachable gpu device in pool")
	}
	return best, nil
}

func (s *Scheduler) loaderLoop(r *resource.Resource) {
	defer s.wg.Done()
	for {
		task, ok := r.PickLoader()
		metrics.ResourceQueueDepth.WithLabelValues(r.Name()).Set(float64(r.QueueDepth()))
		if !ok {
			return
		}
		if task.State() == core.TaskCancelled {
			continue
		}

		task.SetState(core.TaskLoading)
		if err := s.handler.Load(context.Background(), task, r); err != nil {
			task.SetState(core.TaskFailed)
			s.logger.Warn("task load failed", zap.String("task", task.ID), zap.String("resource", r.Name()), zap.Error(err))
			continue
		}

		if task.AtFinalHop() {
			r.MarkLoaded(task)
			continue
		}

		next, ok := task.NextHopName()
		if !ok {
			r.MarkLoaded(task)
			continue
		}
		nextResource, ok := s.graph.Resource(next)
		if !ok {
			task.SetState(core.TaskFailed)
			s.logger.Error("route hop not found", zap.String("task", task.ID), zap.String("resource", next))
			continue
		}
		task.AdvanceHop()
		task.SetState(core.TaskQueued)
		nextResource.Push(task)
	}
}

func (s *Scheduler) executorLoop(r *resource.Resource) {
	defer s.wg.Done()
	for {
		task, ok := r.PickExecutor()
		if !ok {
			return
		}
		if task.State() == core.TaskCancelled {
			continue
		}

		if r.DevicePermit != nil {
			<-r.DevicePermit
		}
		task.SetState(core.TaskExecuting)
		err := s.handler.Execute(context.Background(), task, r)
		if r.DevicePermit != nil {
			r.DevicePermit <- struct{}{}
		}

		if err != nil {
			task.SetState(core.TaskFailed)
			s.logger.Warn("task execute failed", zap.String("task", task.ID), zap.String("resource", r.Name()), zap.Error(err))
			continue
		}
		task.SetState(core.TaskFinished)
	}
}
