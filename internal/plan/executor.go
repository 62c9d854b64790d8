package plan

import (
	"github.com/veccore/coreq/internal/bitset"
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/query"
	"github.com/veccore/coreq/internal/segment"
)

// Executor combines the filter pipeline with MVCC/deletion masking and
// dispatches to the vector index or the retrieve path.
type Executor struct{}

// NewExecutor returns an Executor. It carries no state of its own —
// every call is parameterized by the segment and plan it is given.
func NewExecutor() *Executor {
	return &Executor{}
}

// ExecuteANN runs the ANN search path against one segment.
func (e *Executor) ExecuteANN(seg segment.Segment, node VectorPlanNode, ts core.Timestamp) (index.SearchResult, error) {
	nq := node.Placeholders.NQ
	n := seg.ActiveCount(ts)
	if n == 0 {
		return index.Empty(nq, node.SearchInfo.TopK, node.SearchInfo.Metric), nil
	}

	if want := nq * node.Placeholders.Dim; len(node.Placeholders.Vectors) != want {
		return index.SearchResult{}, core.NewInvalidArgumentError("placeholders",
			"query vector batch does not match nq * dim")
	}

	b, err := e.accumulateFilterBitset(node.Filter, seg, n)
	if err != nil {
		return index.SearchResult{}, err
	}

	seg.MaskWithTimestamps(b, ts)
	seg.MaskWithDelete(b, n, ts)

	if b.All() {
		return index.Empty(nq, node.SearchInfo.TopK, node.SearchInfo.Metric), nil
	}

	result, err := seg.VectorSearch(node.SearchInfo, node.Placeholders.Vectors, nq, ts, b.View())
	if err != nil {
		return index.SearchResult{}, corerr.WrapIndexError(err, "plan.ExecuteANN", "segment vector search failed")
	}
	return result, nil
}

// ExecuteRetrieve runs the retrieve path against one segment.
//
// The count short-circuit is computed after MVCC and deletion masking
// rather than from the raw filter bitset, so that count and offset
// results agree on what "visible" means; a plan count of n minus the
// popcount of the freshly-filtered bitset, before masks, would count
// rows that MVCC or a tombstone later excludes.
func (e *Executor) ExecuteRetrieve(seg segment.Segment, node RetrievePlanNode, ts core.Timestamp) (RetrieveResult, error) {
	n := seg.ActiveCount(ts)
	if n == 0 {
		if node.IsCount {
			return RetrieveResult{IsCount: true, Count: 0}, nil
		}
		return RetrieveResult{}, nil
	}

	b, cachedOffsets, err := e.buildFilterBitsetWithOffsets(node.Filter, seg, n)
	if err != nil {
		return RetrieveResult{}, err
	}

	seg.MaskWithTimestamps(b, ts)
	seg.MaskWithDelete(b, n, ts)

	if node.IsCount {
		return RetrieveResult{IsCount: true, Count: int64(n - b.CountOnes())}, nil
	}

	if b.All() {
		return RetrieveResult{}, nil
	}

	var alreadyFlipped bool
	if len(cachedOffsets) > 0 {
		seg.TimestampFilterOffsets(b, cachedOffsets, ts)
	} else {
		b.Flip()
		seg.TimestampFilter(b, ts)
		alreadyFlipped = true
	}

	offsets := seg.FindFirst(node.Limit, b, alreadyFlipped)
	return RetrieveResult{Offsets: offsets}, nil
}

// accumulateFilterBitset drives filter to completion over seg,
// accumulating the evaluator's per-chunk boolean result into a
// visibility bitset of length n (1 = excluded). With no filter, the
// bitset starts and stays all-zero: nothing is excluded.
func (e *Executor) accumulateFilterBitset(filter *query.PlanNode, seg segment.ChunkSource, n int) (*bitset.Bitset, error) {
	b := bitset.New(n)
	if filter == nil {
		return b, nil
	}

	task := query.NewFilterTask(*filter, seg, query.EvalCtx{}, nil)
	offset := 0
	for {
		rv, ok, err := task.Next()
		if err != nil {
			if _, tagged := corerr.Of(err); tagged {
				return nil, err
			}
			return nil, corerr.WrapSegmentError(err, "plan.accumulateFilterBitset", "reading segment chunk failed")
		}
		if !ok {
			break
		}
		b.AppendBool(offset, rv.Bool)
		offset += len(rv.Bool)
	}
	b.Flip()
	return b, nil
}

// buildFilterBitsetWithOffsets is accumulateFilterBitset plus the
// cache_offsets fast path: if the filter's top-level node is a Term
// lookup, the task materializes row offsets as it goes, retrievable
// exactly once after exhaustion.
func (e *Executor) buildFilterBitsetWithOffsets(filter *query.PlanNode, seg segment.ChunkSource, n int) (*bitset.Bitset, []uint32, error) {
	b := bitset.New(n)
	if filter == nil {
		return b, nil, nil
	}

	task := query.NewFilterTask(*filter, seg, query.EvalCtx{}, nil)
	offset := 0
	for {
		rv, ok, err := task.Next()
		if err != nil {
			if _, tagged := corerr.Of(err); tagged {
				return nil, nil, err
			}
			return nil, nil, corerr.WrapSegmentError(err, "plan.buildFilterBitsetWithOffsets", "reading segment chunk failed")
		}
		if !ok {
			break
		}
		b.AppendBool(offset, rv.Bool)
		offset += len(rv.Bool)
	}
	b.Flip()

	cached, _ := task.CachedOffsets()
	return b, cached, nil
}
