package resource

import (
	"sync"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/metrics"
)

// Task is a unit of scheduled work migrating between resources as it is
// loaded and executed. A Task is shared by the resources it visits and
// by the scheduler threads that advance it; the exported fields are set
// at construction, and every access to the unexported state below goes
// through its mutex.
type Task struct {
	ID              string
	Kind            core.TaskKind
	RequiredKind    core.ResourceKind
	PreferredDevice int // -1 if the task has no device affinity

	mu              sync.Mutex
	state           core.TaskState
	currentResource string
	route           []string
	hop             int
}

// NewTask returns a Task in state New, with no device affinity.
func NewTask(id string, kind core.TaskKind, requiredKind core.ResourceKind) *Task {
	return &Task{
		ID:              id,
		Kind:            kind,
		RequiredKind:    requiredKind,
		PreferredDevice: -1,
		state:           core.TaskNew,
	}
}

// State returns the task's current lifecycle state.
func (t *Task) State() core.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState transitions the task unconditionally. Callers that need the
// Queued-only cancellation rule enforced should call Cancel instead.
func (t *Task) SetState(s core.TaskState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	metrics.TaskTransitionsTotal.WithLabelValues(s.String()).Inc()
}

// Cancel transitions Queued -> Cancelled and reports whether it did. A
// task already Loading or Executing runs to completion; cancellation is
// only honored while the task is Queued, which is before its first
// resource picks it up and again while it waits at each later hop.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	if t.state != core.TaskQueued {
		t.mu.Unlock()
		return false
	}
	t.state = core.TaskCancelled
	t.mu.Unlock()
	metrics.TaskTransitionsTotal.WithLabelValues(core.TaskCancelled.String()).Inc()
	return true
}

// CurrentResource returns the name of the resource this task is
// currently queued at or executing on.
func (t *Task) CurrentResource() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentResource
}

// SetCurrentResource records which resource now owns this task, called
// by the scheduler each time it routes the task to a new hop.
func (t *Task) SetCurrentResource(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentResource = name
}

// SetRoute records the full hop sequence a task will travel, resetting
// it to the first hop.
func (t *Task) SetRoute(route []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = route
	t.hop = 0
}

// AtFinalHop reports whether the task has no more resources to move
// through after the one it is on now.
func (t *Task) AtFinalHop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hop >= len(t.route)-1
}

// NextHopName returns the name of the resource after the current hop,
// and whether one exists.
func (t *Task) NextHopName() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hop+1 >= len(t.route) {
		return "", false
	}
	return t.route[t.hop+1], true
}

// AdvanceHop moves the task's position one step along its route.
func (t *Task) AdvanceHop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hop++
}
