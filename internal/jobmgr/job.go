// Package jobmgr decomposes one client request into per-segment tasks,
// submits them to the scheduler, and aggregates their results into the
// single answer the caller awaits.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/resource"
	"github.com/veccore/coreq/internal/scheduler"
	"github.com/veccore/coreq/internal/segment"
)

// segmentTask is one task of a job: the executor work for a single
// segment, plus the plumbing that lets Execute report its result back
// to the job that spawned it.
type segmentTask struct {
	rtask *resource.Task
	seg   segment.Segment
	job   *jobState

	done chan struct{}
	err  error

	annResult      index.SearchResult
	retrieveResult plan.RetrieveResult
}

// jobState is shared by every segmentTask of one job: it carries enough
// context for Execute to run the right plan-executor call and enough
// bookkeeping for a failing task to cancel its siblings.
type jobState struct {
	id string

	isANN        bool
	annNode      plan.VectorPlanNode
	retrieveNode plan.RetrievePlanNode
	ts           core.Timestamp

	mu     sync.Mutex
	tasks  []*segmentTask
	failed bool
}

func (j *jobState) cancelSiblingsOf(self *segmentTask) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failed {
		return
	}
	j.failed = true
	for _, st := range j.tasks {
		if st != self {
			st.rtask.Cancel()
		}
	}
}

// Manager decomposes jobs into segment tasks, routes them through a
// scheduler, and merges per-segment results. Manager itself is the
// scheduler.Handler: Load is a no-op (segments are already resident in
// this module's scope) and Execute dispatches to the plan executor.
type Manager struct {
	sched    *scheduler.Scheduler
	executor *plan.Executor

	mu       sync.Mutex
	byTaskID map[string]*segmentTask
	jobSeq   atomic.Uint64
}

// New returns a Manager that submits tasks to sched and runs them
// through executor. sched may be nil when the scheduler itself needs
// this Manager as its Handler first; call BindScheduler once the
// scheduler exists to complete the cycle.
func New(sched *scheduler.Scheduler, executor *plan.Executor) *Manager {
	return &Manager{
		sched:    sched,
		executor: executor,
		byTaskID: make(map[string]*segmentTask),
	}
}

// BindScheduler sets the scheduler a Manager constructed with a nil
// scheduler submits tasks to. Must be called before Execute or
// RunANN/RunRetrieve are used.
func (m *Manager) BindScheduler(sched *scheduler.Scheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sched = sched
}

func (m *Manager) register(st *segmentTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTaskID[st.rtask.ID] = st
}

func (m *Manager) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byTaskID, id)
}

func (m *Manager) lookup(id string) *segmentTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byTaskID[id]
}

// Load is the scheduler.Handler loader phase. Segments are passed in by
// reference and already resident, so there is no working set to fetch;
// this only exists to satisfy the Handler contract uniformly across
// every resource hop.
func (m *Manager) Load(ctx context.Context, t *resource.Task, on *resource.Resource) error {
	return nil
}

// Execute is the scheduler.Handler executor phase: it runs the plan
// executor for this task's segment and reports the result (or error)
// back through the segmentTask, then cancels every other task of the
// same job on failure, per the failure-cancels-siblings rule.
func (m *Manager) Execute(ctx context.Context, t *resource.Task, on *resource.Resource) error {
	st := m.lookup(t.ID)
	if st == nil {
		return corerr.NewUnexpected("jobmgr.Execute", "no task registered for id "+t.ID)
	}

	var err error
	if st.job.isANN {
		st.annResult, err = m.executor.ExecuteANN(st.seg, st.job.annNode, st.job.ts)
	} else {
		st.retrieveResult, err = m.executor.ExecuteRetrieve(st.seg, st.job.retrieveNode, st.job.ts)
	}
	st.err = err
	close(st.done)

	if err != nil {
		st.job.cancelSiblingsOf(st)
	}
	return err
}

// newSegmentTasks builds one segmentTask and resource.Task per segment,
// registers each with the manager, and returns them alongside the
// shared jobState. Every task's starting resource is cpu: the plan
// executor's work (filter evaluation, masking) is CPU-bound per the
// concurrency model; a segment's own vector_search may still hand off
// to a GPU-resident index internally, but that routing is the index's
// concern, not the job manager's.
func (m *Manager) newSegmentTasks(jobID string, segments []segment.Segment, js *jobState) []*segmentTask {
	tasks := make([]*segmentTask, len(segments))
	for i, seg := range segments {
		rtask := resource.NewTask(fmt.Sprintf("%s/seg-%d", jobID, i), core.TaskSearch, core.ResourceCPU)
		st := &segmentTask{rtask: rtask, seg: seg, job: js, done: make(chan struct{})}
		tasks[i] = st
		m.register(st)
	}
	js.tasks = tasks
	return tasks
}

// runAll submits every task to cpu and fans out one errgroup goroutine
// per task, each waiting on that task's own completion signal. The
// first task error cancels the group's context, which in turn cancels
// every sibling still queued; a task already executing runs to
// completion regardless, matching the cooperative-only cancellation
// rule.
func (m *Manager) runAll(ctx context.Context, tasks []*segmentTask) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, st := range tasks {
		st := st
		g.Go(func() error {
			if err := m.sched.Submit(st.rtask, "cpu"); err != nil {
				st.err = err
				close(st.done)
				return err
			}
			select {
			case <-st.done:
				return st.err
			case <-gctx.Done():
				st.rtask.Cancel()
				if errors.Is(gctx.Err(), context.Canceled) {
					return corerr.NewCancelled("jobmgr.runAll", "job context cancelled while segment task was queued")
				}
				return corerr.Wrap(gctx.Err(), corerr.DeadlineExceeded, "jobmgr.runAll", "job context deadline exceeded while segment task was queued")
			}
		})
	}
	return g.Wait()
}

func (m *Manager) cleanup(tasks []*segmentTask) {
	for _, st := range tasks {
		m.unregister(st.rtask.ID)
	}
}

func nextJobID(m *Manager) string {
	return fmt.Sprintf("job-%d", m.jobSeq.Add(1))
}
