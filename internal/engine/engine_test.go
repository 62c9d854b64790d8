package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veccore/coreq/internal/config"
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/query"
	"github.com/veccore/coreq/internal/segment"
	"github.com/veccore/coreq/internal/segment/fixture"
	"github.com/veccore/coreq/internal/simd"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Config{SchedulerMode: "simple", DiskCPUBandwidth: 500, CPUGPUBandwidth: 12000}
	eng, warnings, err := New(cfg, nil)
	require.NoError(t, err)
	require.Empty(t, warnings)
	eng.Start()
	t.Cleanup(eng.Stop)
	return eng
}

func ctxWithTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestEngineANNSearchFindsNearestAcrossSegments exercises the full path
// from Engine down to the HNSW fixture and back: two segments, each
// holding one half of the data, merged into a single global top-K.
func TestEngineANNSearchFindsNearestAcrossSegments(t *testing.T) {
	eng := newTestEngine(t)

	segA := fixture.NewVectorSegment(
		[]int64{1, 1},
		[][]float32{{0, 0}, {1, 0}},
		[]core.Timestamp{1, 1},
		2,
	)
	segB := fixture.NewVectorSegment(
		[]int64{1, 1},
		[][]float32{{9, 9}, {9.1, 9}},
		[]core.Timestamp{1, 1},
		2,
	)
	defer segA.Close()
	defer segB.Close()

	node := plan.VectorPlanNode{
		Placeholders: core.PlaceholderGroup{NQ: 1, Dim: 2, Vectors: []float32{0, 0}},
		SearchInfo:   index.SearchInfo{TopK: 1, Metric: core.MetricL2},
	}

	result, err := eng.Jobs.RunANN(ctxWithTimeout(t), []segment.Segment{segA, segB}, node, ^core.Timestamp(0))
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Offsets[0], "nearest neighbor is row 0 of segA, not anything in segB")
}

// TestEngineANNSearchHonorsScalarFilter confirms a filter on the scalar
// column excludes a vector that would otherwise be the closest match.
func TestEngineANNSearchHonorsScalarFilter(t *testing.T) {
	eng := newTestEngine(t)

	seg := fixture.NewVectorSegment(
		[]int64{1, 2, 2},
		[][]float32{{0, 0}, {0.1, 0}, {5, 5}},
		[]core.Timestamp{1, 1, 1},
		3,
	)
	defer seg.Close()

	filter := query.ColumnCompare("v", simd.CompareEQ, query.Int64Literal(2))
	node := plan.VectorPlanNode{
		Placeholders: core.PlaceholderGroup{NQ: 1, Dim: 2, Vectors: []float32{0, 0}},
		SearchInfo:   index.SearchInfo{TopK: 1, Metric: core.MetricL2},
		Filter:       &filter,
	}

	result, err := eng.Jobs.RunANN(ctxWithTimeout(t), []segment.Segment{seg}, node, ^core.Timestamp(0))
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Offsets[0], "row 0 is nearest but excluded by the filter; row 1 matches v=2")
}

// TestEngineANNSearchRespectsMVCCTimestamp confirms a row inserted after
// the query timestamp is invisible to the search even though it would
// otherwise be the nearest neighbor.
func TestEngineANNSearchRespectsMVCCTimestamp(t *testing.T) {
	eng := newTestEngine(t)

	seg := fixture.NewVectorSegment(
		[]int64{1, 1},
		[][]float32{{5, 5}, {0, 0}},
		[]core.Timestamp{1, 10},
		2,
	)
	defer seg.Close()

	node := plan.VectorPlanNode{
		Placeholders: core.PlaceholderGroup{NQ: 1, Dim: 2, Vectors: []float32{0, 0}},
		SearchInfo:   index.SearchInfo{TopK: 1, Metric: core.MetricL2},
	}

	result, err := eng.Jobs.RunANN(ctxWithTimeout(t), []segment.Segment{seg}, node, 5)
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Offsets[0], "row 1 was inserted at ts=10, invisible to a query at ts=5")
}

// TestEngineRetrieveCountAndOffsetsAcrossSegments exercises the
// retrieve path's fan-out and merge through a live Engine.
func TestEngineRetrieveCountAndOffsetsAcrossSegments(t *testing.T) {
	eng := newTestEngine(t)

	segA := fixture.NewVectorSegment([]int64{3, 3, 4}, [][]float32{{0, 0}, {1, 1}, {2, 2}}, []core.Timestamp{1, 1, 1}, 3)
	segB := fixture.NewVectorSegment([]int64{3, 4, 4}, [][]float32{{0, 0}, {1, 1}, {2, 2}}, []core.Timestamp{1, 1, 1}, 3)
	defer segA.Close()
	defer segB.Close()

	filter := query.ColumnCompare("v", simd.CompareEQ, query.Int64Literal(3))
	countNode := plan.RetrievePlanNode{Filter: &filter, IsCount: true}

	countResult, err := eng.Jobs.RunRetrieve(ctxWithTimeout(t), []segment.Segment{segA, segB}, countNode, ^core.Timestamp(0))
	require.NoError(t, err)
	require.True(t, countResult.IsCount)
	require.EqualValues(t, 3, countResult.Count, "two v=3 rows in segA, one in segB")

	offsetsNode := plan.RetrievePlanNode{Filter: &filter, Limit: 2}
	offsetsResult, err := eng.Jobs.RunRetrieve(ctxWithTimeout(t), []segment.Segment{segA, segB}, offsetsNode, ^core.Timestamp(0))
	require.NoError(t, err)
	require.Len(t, offsetsResult.Offsets, 2, "offsets truncate to Limit across the concatenated segment results")
}

// TestEngineStartStopIdempotent confirms Start and Stop can be called
// more than once without blocking or panicking.
func TestEngineStartStopIdempotent(t *testing.T) {
	cfg := config.Config{SchedulerMode: "simple", DiskCPUBandwidth: 500, CPUGPUBandwidth: 12000}
	eng, _, err := New(cfg, nil)
	require.NoError(t, err)

	eng.Start()
	eng.Start()
	eng.Stop()
	eng.Stop()
}
