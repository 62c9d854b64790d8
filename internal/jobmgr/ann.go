package jobmgr

import (
	"context"
	"sort"
	"time"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/metrics"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/segment"
)

// RunANN decomposes an ANN search into one task per segment, runs them
// through the scheduler, and merges the per-segment top-K results into
// one top-K result per query row.
func (m *Manager) RunANN(ctx context.Context, segments []segment.Segment, node plan.VectorPlanNode, ts core.Timestamp) (index.SearchResult, error) {
	start := time.Now()
	defer func() { metrics.JobDurationSeconds.WithLabelValues("ann").Observe(time.Since(start).Seconds()) }()

	jobID := nextJobID(m)
	js := &jobState{id: jobID, isANN: true, annNode: node, ts: ts}
	tasks := m.newSegmentTasks(jobID, segments, js)
	defer m.cleanup(tasks)

	if err := m.runAll(ctx, tasks); err != nil {
		return index.SearchResult{}, err
	}
	return mergeANNResults(tasks, node)
}

// mergeANNResults implements the top-K merge step: for each query row,
// it gathers every segment's candidates for that row and keeps the
// best TopK by the search's distance metric.
func mergeANNResults(tasks []*segmentTask, node plan.VectorPlanNode) (index.SearchResult, error) {
	nq := node.Placeholders.NQ
	topK := node.SearchInfo.TopK
	metric := node.SearchInfo.Metric
	out := index.Empty(nq, topK, metric)

	type candidate struct {
		offset   int64
		distance float32
		id       core.VectorID
	}

	better := func(a, b float32) bool {
		if metric.HigherIsCloser() {
			return a > b
		}
		return a < b
	}

	for q := 0; q < nq; q++ {
		var candidates []candidate
		for _, st := range tasks {
			r := st.annResult
			if r.TopK == 0 {
				continue
			}
			base := q * r.TopK
			for k := 0; k < r.TopK && base+k < len(r.Offsets); k++ {
				if r.Offsets[base+k] == -1 {
					continue
				}
				candidates = append(candidates, candidate{
					offset:   r.Offsets[base+k],
					distance: r.Distances[base+k],
					id:       r.VectorIDs[base+k],
				})
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return better(candidates[i].distance, candidates[j].distance) })

		for k := 0; k < topK && k < len(candidates); k++ {
			slot := q*topK + k
			out.Offsets[slot] = candidates[k].offset
			out.Distances[slot] = candidates[k].distance
			out.VectorIDs[slot] = candidates[k].id
		}
	}
	return out, nil
}
