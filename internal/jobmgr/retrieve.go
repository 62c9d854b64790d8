package jobmgr

import (
	"context"
	"time"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/metrics"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/segment"
)

// RunRetrieve decomposes a scalar retrieve or count request into one
// task per segment and aggregates the results: counts sum, offsets
// concatenate (there is no cross-segment ordering guarantee — segments
// of one job are independent per the concurrency model).
func (m *Manager) RunRetrieve(ctx context.Context, segments []segment.Segment, node plan.RetrievePlanNode, ts core.Timestamp) (plan.RetrieveResult, error) {
	start := time.Now()
	defer func() {
		metrics.JobDurationSeconds.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	}()

	jobID := nextJobID(m)
	js := &jobState{id: jobID, isANN: false, retrieveNode: node, ts: ts}
	tasks := m.newSegmentTasks(jobID, segments, js)
	defer m.cleanup(tasks)

	if err := m.runAll(ctx, tasks); err != nil {
		return plan.RetrieveResult{}, err
	}
	return mergeRetrieveResults(tasks, node), nil
}

func mergeRetrieveResults(tasks []*segmentTask, node plan.RetrievePlanNode) plan.RetrieveResult {
	if node.IsCount {
		var total int64
		for _, st := range tasks {
			total += st.retrieveResult.Count
		}
		return plan.RetrieveResult{IsCount: true, Count: total}
	}

	var offsets []uint64
	for _, st := range tasks {
		offsets = append(offsets, st.retrieveResult.Offsets...)
		if node.Limit > 0 && len(offsets) >= node.Limit {
			offsets = offsets[:node.Limit]
			break
		}
	}
	return plan.RetrieveResult{Offsets: offsets}
}
