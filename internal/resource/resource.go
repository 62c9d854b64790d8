package resource

import (
	"sync"

	"github.com/veccore/coreq/internal/core"
)

// Resource is one node of the resource graph: a disk, a cpu, or one gpu
// device. It carries two FIFO queues — tasks waiting to be loaded and
// tasks loaded and waiting to execute — guarded by one mutex and
// condition variable, pairing a mutex with its slice.
type Resource struct {
	name     string
	kind     core.ResourceKind
	deviceID int // -1 unless kind == ResourceGPU

	// DevicePermit is non-nil only for a GPU resource: a capacity-1
	// counting semaphore shared by the build and search pools so a
	// build task and a search task never execute concurrently on the
	// same device.
	DevicePermit chan struct{}

	mu         sync.Mutex
	cond       *sync.Cond
	inQueue    []*Task
	readyQueue []*Task
	stopped    bool
}

func newResource(name string, kind core.ResourceKind, deviceID int) *Resource {
	r := &Resource{name: name, kind: kind, deviceID: deviceID}
	r.cond = sync.NewCond(&r.mu)
	if kind == core.ResourceGPU {
		r.DevicePermit = make(chan struct{}, 1)
		r.DevicePermit <- struct{}{}
	}
	return r
}

// Name returns the resource's unique name ("disk", "cpu", "gpu:3", ...).
func (r *Resource) Name() string { return r.name }

// Kind returns the resource's kind.
func (r *Resource) Kind() core.ResourceKind { return r.kind }

// DeviceID returns the GPU device id, or -1 for disk/cpu.
func (r *Resource) DeviceID() int { return r.deviceID }

// Push appends task to the resource's in-queue, where the loader thread
// will pick it up.
func (r *Resource) Push(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.SetCurrentResource(r.name)
	r.inQueue = append(r.inQueue, t)
	r.cond.Broadcast()
}

// PickLoader blocks until a task is waiting in the in-queue or the
// resource is stopped, a condition-variable-over-queue suspension
// model.
func (r *Resource) PickLoader() (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.inQueue) == 0 && !r.stopped {
		r.cond.Wait()
	}
	if len(r.inQueue) == 0 {
		return nil, false
	}
	t := r.inQueue[0]
	r.inQueue = r.inQueue[1:]
	return t, true
}

// MarkLoaded moves a task the loader thread finished loading into the
// ready queue, where the executor thread will pick it up next.
func (r *Resource) MarkLoaded(t *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readyQueue = append(r.readyQueue, t)
	r.cond.Broadcast()
}

// PickExecutor blocks until a loaded task is ready or the resource is
// stopped.
func (r *Resource) PickExecutor() (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.readyQueue) == 0 && !r.stopped {
		r.cond.Wait()
	}
	if len(r.readyQueue) == 0 {
		return nil, false
	}
	t := r.readyQueue[0]
	r.readyQueue = r.readyQueue[1:]
	return t, true
}

// Stop wakes every blocked PickLoader/PickExecutor call. Tasks still
// queued are handed out as usual; once a queue is empty, its Pick call
// returns (nil, false) instead of waiting.
func (r *Resource) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// QueueDepth reports the combined length of the in-queue and ready
// queue, used by the scheduler's least-loaded device selection.
func (r *Resource) QueueDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inQueue) + len(r.readyQueue)
}
