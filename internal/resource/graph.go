// Package resource models the typed compute-resource graph the
// scheduler routes tasks over: disk, cpu, and gpu nodes joined by
// weighted undirected links, each carrying its own load/execute
// queues.
package resource

import (
	"container/heap"
	"sync"

	"github.com/veccore/coreq/internal/core"
)

// Graph is the resource graph built once at startup from configuration.
// It is read-mostly after Start: Add and Connect are forbidden once the
// scheduler has begun routing tasks over it, matching the read-mostly
// guarantee.
type Graph struct {
	mu      sync.RWMutex
	nodes   map[string]*Resource
	edges   map[string]map[string]int
	started bool
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Resource),
		edges: make(map[string]map[string]int),
	}
}

// Add creates a resource node of the given kind and returns it. deviceID
// is only meaningful for ResourceGPU; pass -1 otherwise. Add rejects a
// duplicate name and any call after Start.
func (g *Graph) Add(name string, kind core.ResourceKind, deviceID int) (*Resource, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return nil, core.NewInvalidArgumentError("name", "resource graph is read-only after Start")
	}
	if _, exists := g.nodes[name]; exists {
		return nil, core.NewInvalidArgumentError("name", "duplicate resource name: "+name)
	}
	r := newResource(name, kind, deviceID)
	g.nodes[name] = r
	g.edges[name] = make(map[string]int)
	return r, nil
}

// Connect adds an undirected weighted edge between two existing
// resources. It rejects a missing endpoint, a self-loop, or a second
// connection between the same pair.
func (g *Graph) Connect(a, b string, bandwidth int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return core.NewInvalidArgumentError("a", "resource graph is read-only after Start")
	}
	if _, ok := g.nodes[a]; !ok {
		return core.NewNotFoundError("resource", a)
	}
	if _, ok := g.nodes[b]; !ok {
		return core.NewNotFoundError("resource", b)
	}
	if a == b {
		return core.NewInvalidArgumentError("b", "cannot connect a resource to itself")
	}
	if _, connected := g.edges[a][b]; connected {
		return core.NewInvalidArgumentError("b", "resources already connected: "+a+" <-> "+b)
	}
	g.edges[a][b] = bandwidth
	g.edges[b][a] = bandwidth
	return nil
}

// Resource returns the named resource, if any.
func (g *Graph) Resource(name string) (*Resource, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.nodes[name]
	return r, ok
}

// Resources returns every resource node in the graph.
func (g *Graph) Resources() []*Resource {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Resource, 0, len(g.nodes))
	for _, r := range g.nodes {
		out = append(out, r)
	}
	return out
}

// Start marks the graph as routed-over, forbidding further Add/Connect.
func (g *Graph) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.started = true
}

// Stop signals every resource's queues to drain.
func (g *Graph) Stop() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range g.nodes {
		r.Stop()
	}
}

type pathEntry struct {
	name string
	dist int
}

type pathQueue []pathEntry

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(pathEntry)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// dijkstra computes shortest weighted distance from from to every
// reachable resource. Edge cost is the inverse of its bandwidth scaled
// to stay in integers, so higher-bandwidth links are cheaper to cross.
// Callers must hold g.mu for reading.
func (g *Graph) dijkstra(from string) (dist map[string]int, prev map[string]string) {
	dist = map[string]int{from: 0}
	prev = map[string]string{}
	visited := map[string]bool{}

	pq := &pathQueue{{name: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathEntry)
		if visited[cur.name] {
			continue
		}
		visited[cur.name] = true

		for neighbor, weight := range g.edges[cur.name] {
			if weight <= 0 {
				continue
			}
			cost := 1_000_000 / weight
			nd := cur.dist + cost
			if existing, ok := dist[neighbor]; !ok || nd < existing {
				dist[neighbor] = nd
				prev[neighbor] = cur.name
				heap.Push(pq, pathEntry{name: neighbor, dist: nd})
			}
		}
	}
	return dist, prev
}

func reconstructPath(prev map[string]string, from, to string) []string {
	var path []string
	for name := to; ; {
		path = append([]string{name}, path...)
		if name == from {
			break
		}
		name = prev[name]
	}
	return path
}

// ShortestPath runs Dijkstra from from to the nearest resource whose
// kind matches target, breaking ties between equally-close candidates
// by the lowest device id. It returns the chosen resource and the
// sequence of resource names from from to it, inclusive.
func (g *Graph) ShortestPath(from string, target core.ResourceKind) (*Resource, []string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil, nil, core.NewNotFoundError("resource", from)
	}

	dist, prev := g.dijkstra(from)

	var best *Resource
	bestDist := -1
	for name, r := range g.nodes {
		if r.Kind() != target {
			continue
		}
		d, ok := dist[name]
		if !ok {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && r.DeviceID() < best.DeviceID()) {
			best = r
			bestDist = d
		}
	}
	if best == nil {
		return nil, nil, core.NewNotFoundError("resource kind", target.String())
	}

	return best, reconstructPath(prev, from, best.Name()), nil
}

// ShortestPathTo runs Dijkstra from from to a specific named resource,
// used by the scheduler once it has already picked a target device
// (e.g. the least-loaded member of a GPU pool) and only needs the hop
// sequence to reach it.
func (g *Graph) ShortestPathTo(from, to string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil, core.NewNotFoundError("resource", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, core.NewNotFoundError("resource", to)
	}

	_, prev := g.dijkstra(from)
	if from != to {
		if _, reached := prev[to]; !reached {
			return nil, core.NewNotFoundError("path to resource", to)
		}
	}
	return reconstructPath(prev, from, to), nil
}
