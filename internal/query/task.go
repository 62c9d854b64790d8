package query

import (
	"time"

	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/segment"
	"github.com/veccore/coreq/internal/vector"
)

// EvalCtx is the per-query scratch a FilterTask carries across chunks:
// the MVCC read timestamp, the query's placeholder group (nil for a
// retrieve-only task), an identifier for logging, and an optional
// deadline checked between chunks.
type EvalCtx struct {
	Timestamp    core.Timestamp
	Placeholders *core.PlaceholderGroup
	QueryID      string
	Deadline     core.Deadline
}

// FilterTask drives a predicate plan chunk-by-chunk over a segment. It
// is single-thread affine: Next must not be called concurrently from
// more than one goroutine.
type FilterTask struct {
	plan    PlanNode
	source  segment.ChunkSource
	ctx     EvalCtx
	counter *ColumnAccessCounter

	nextChunk int
	rowBase   uint32

	// offsets accumulates hit positions across chunks when the
	// top-level plan is a Term node, standing in for an inverted
	// scalar index's materialized offsets. offsetsGetted makes
	// retrieving them a one-shot operation, matching the contract: the
	// iterator can only hand out materialized offsets once, on the
	// caller's first request after exhaustion.
	offsets       []uint32
	offsetsGetted bool
}

// NewFilterTask binds a predicate plan to a chunk source for one query.
// counter may be nil.
func NewFilterTask(plan PlanNode, source segment.ChunkSource, ctx EvalCtx, counter *ColumnAccessCounter) *FilterTask {
	return &FilterTask{plan: plan, source: source, ctx: ctx, counter: counter}
}

// Next evaluates the next chunk and returns its RowVector result. ok is
// false once every chunk has been consumed.
func (t *FilterTask) Next() (vector.RowVector, bool, error) {
	if t.ctx.Deadline.Expired(time.Now()) {
		return vector.RowVector{}, false, corerr.NewDeadlineExceeded("task.Next", "task deadline exceeded")
	}
	if t.nextChunk >= t.source.NumChunks() {
		return vector.RowVector{}, false, nil
	}

	rec, err := t.source.Chunk(t.nextChunk)
	if err != nil {
		return vector.RowVector{}, false, err
	}
	eval := NewEvaluator(rec, t.counter)
	out, err := eval.Eval(t.plan)
	if err != nil {
		return vector.RowVector{}, false, err
	}

	base := t.rowBase
	t.nextChunk++
	t.rowBase += uint32(len(out))

	if t.plan.Op == OpTerm {
		hits := hitOffsets(out, base)
		t.offsets = append(t.offsets, hits...)
		return vector.NewBoolAndOffsetsRowVector(out, hits), true, nil
	}
	return vector.NewBoolRowVector(out), true, nil
}

func hitOffsets(boolCol []byte, base uint32) []uint32 {
	hits := make([]uint32, 0, len(boolCol))
	for i, v := range boolCol {
		if v != 0 {
			hits = append(hits, base+uint32(i))
		}
	}
	return hits
}

// CachedOffsets returns the offsets materialized across every chunk
// evaluated so far, and true, on its first call. Every subsequent call
// returns (nil, false) — offsets can only be retrieved once, since the
// iterator that produced them is not re-entrant.
func (t *FilterTask) CachedOffsets() ([]uint32, bool) {
	if t.offsetsGetted {
		return nil, false
	}
	t.offsetsGetted = true
	return t.offsets, true
}
