package jobmgr

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/veccore/coreq/internal/bitset"
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/plan"
	"github.com/veccore/coreq/internal/query"
	"github.com/veccore/coreq/internal/resource"
	"github.com/veccore/coreq/internal/scheduler"
	"github.com/veccore/coreq/internal/segment"
	"github.com/veccore/coreq/internal/simd"
)

// fakeSegment is a minimal single-column segment used to exercise job
// decomposition and aggregation without a real index or storage engine.
type fakeSegment struct {
	name      string
	values    []int64
	chunkSize int
	result    index.SearchResult
}

func (s *fakeSegment) ChunkSize() int { return s.chunkSize }
func (s *fakeSegment) NumChunks() int {
	return (len(s.values) + s.chunkSize - 1) / s.chunkSize
}

func (s *fakeSegment) Chunk(i int) (arrow.Record, error) {
	start := i * s.chunkSize
	end := start + s.chunkSize
	if end > len(s.values) {
		end = len(s.values)
	}
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	b.Field(0).(*array.Int64Builder).AppendValues(s.values[start:end], nil)
	return b.NewRecord(), nil
}

func (s *fakeSegment) ActiveCount(ts core.Timestamp) int                              { return len(s.values) }
func (s *fakeSegment) MaskWithTimestamps(b *bitset.Bitset, ts core.Timestamp)          {}
func (s *fakeSegment) MaskWithDelete(b *bitset.Bitset, n int, ts core.Timestamp)       {}
func (s *fakeSegment) TimestampFilter(b *bitset.Bitset, ts core.Timestamp)             {}
func (s *fakeSegment) TimestampFilterOffsets(b *bitset.Bitset, o []uint32, ts core.Timestamp) {
}

func (s *fakeSegment) FindFirst(limit int, b *bitset.Bitset, alreadyFlipped bool) []uint64 {
	var out []uint64
	for i := 0; i < b.Len() && len(out) < limit; i++ {
		set := b.Get(i)
		survives := set
		if !alreadyFlipped {
			survives = !set
		}
		if survives {
			out = append(out, uint64(i))
		}
	}
	return out
}

func (s *fakeSegment) VectorSearch(info index.SearchInfo, queries []float32, nq int, ts core.Timestamp, view bitset.View) (index.SearchResult, error) {
	return s.result, nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	g, _, err := resource.BuildFromConfig(resource.Config{Mode: "simple", DiskCPUBandwidth: 500})
	require.NoError(t, err)

	executor := plan.NewExecutor()
	m := New(nil, executor)
	sched := scheduler.New(g, m, nil, nil, nil)
	m.sched = sched
	sched.Start()
	t.Cleanup(sched.Stop)
	return m
}

func TestRunRetrieveAggregatesCountsAcrossSegments(t *testing.T) {
	m := newTestManager(t)

	segA := &fakeSegment{name: "a", values: []int64{1, 1, 2, 2}, chunkSize: 4}
	segB := &fakeSegment{name: "b", values: []int64{1, 2, 2, 2}, chunkSize: 4}

	filter := query.ColumnCompare("v", simd.CompareEQ, query.Int64Literal(1))
	node := plan.RetrievePlanNode{Filter: &filter, IsCount: true}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := m.RunRetrieve(ctx, []segment.Segment{segA, segB}, node, ^core.Timestamp(0))
	require.NoError(t, err)
	require.True(t, result.IsCount)
	require.EqualValues(t, 3, result.Count) // 2 from segA + 1 from segB
}

func TestRunRetrieveConcatenatesOffsetsUpToLimit(t *testing.T) {
	m := newTestManager(t)

	segA := &fakeSegment{name: "a", values: []int64{9, 9, 9}, chunkSize: 3}
	segB := &fakeSegment{name: "b", values: []int64{9, 9, 9}, chunkSize: 3}

	filter := query.ColumnCompare("v", simd.CompareEQ, query.Int64Literal(9))
	node := plan.RetrievePlanNode{Filter: &filter, Limit: 4}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := m.RunRetrieve(ctx, []segment.Segment{segA, segB}, node, ^core.Timestamp(0))
	require.NoError(t, err)
	require.Len(t, result.Offsets, 4)
}

func TestRunANNMergesTopKAcrossSegments(t *testing.T) {
	m := newTestManager(t)

	segA := &fakeSegment{
		name: "a", values: []int64{1}, chunkSize: 1,
		result: index.SearchResult{
			NQ: 1, TopK: 2,
			Offsets:   []int64{10, 11},
			Distances: []float32{0.5, 0.9},
			VectorIDs: []core.VectorID{100, 101},
		},
	}
	segB := &fakeSegment{
		name: "b", values: []int64{1}, chunkSize: 1,
		result: index.SearchResult{
			NQ: 1, TopK: 2,
			Offsets:   []int64{20, 21},
			Distances: []float32{0.1, 0.95},
			VectorIDs: []core.VectorID{200, 201},
		},
	}

	node := plan.VectorPlanNode{
		Placeholders: core.PlaceholderGroup{NQ: 1, Dim: 2, Vectors: []float32{0, 0}},
		SearchInfo:   index.SearchInfo{TopK: 2, Metric: core.MetricL2},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := m.RunANN(ctx, []segment.Segment{segA, segB}, node, ^core.Timestamp(0))
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.5}, result.Distances, "merged result keeps the two globally closest hits in order")
	require.Equal(t, []int64{20, 10}, result.Offsets)
}

func TestRunRetrieveSegmentTaskFailureFailsJob(t *testing.T) {
	m := newTestManager(t)

	segOK := &fakeSegment{name: "ok", values: []int64{1, 1, 1}, chunkSize: 3}
	segBad := &fakeSegment{name: "bad", values: []int64{1, 1, 1}, chunkSize: 3}

	// Neither fake segment has this field, so the evaluator's column
	// lookup surfaces InvalidExpression from a segment task and the
	// whole job returns an error.
	filter := query.ColumnCompare("no_such_field", simd.CompareEQ, query.Int64Literal(1))
	node := plan.RetrievePlanNode{Filter: &filter, IsCount: true}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := m.RunRetrieve(ctx, []segment.Segment{segOK, segBad}, node, ^core.Timestamp(0))
	require.Error(t, err)
}
