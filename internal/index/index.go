// Package index declares the vector-index contract the plan executor
// calls into. Index implementations (HNSW, IVF, flat) live outside this
// module; this package only pins the shapes that cross the boundary, so
// that segment and plan can both depend on it without depending on each
// other.
package index

import (
	"context"

	"github.com/veccore/coreq/internal/bitset"
	"github.com/veccore/coreq/internal/core"
)

// SearchInfo carries the per-query ANN parameters.
type SearchInfo struct {
	TopK         int
	Metric       core.DistanceMetric
	RoundDecimal int
	Params       map[string]string
}

// SearchResult is the ANN search output: nq rows of up to TopK hits
// each, flattened row-major. A slot with Offsets[i] == -1 is unfilled
// (fewer than TopK candidates survived).
type SearchResult struct {
	NQ        int
	TopK      int
	Offsets   []int64
	Distances []float32
	VectorIDs []core.VectorID
}

// Empty returns a SearchResult of nq x topK unfilled slots, using the
// metric's sentinel distance so unfilled slots always sort last.
func Empty(nq, topK int, metric core.DistanceMetric) SearchResult {
	n := nq * topK
	offsets := make([]int64, n)
	distances := make([]float32, n)
	ids := make([]core.VectorID, n)
	sentinel := metric.SentinelDistance()
	for i := range offsets {
		offsets[i] = -1
		distances[i] = sentinel
	}
	return SearchResult{NQ: nq, TopK: topK, Offsets: offsets, Distances: distances, VectorIDs: ids}
}

// Index is the contract a segment delegates vector_search to.
type Index interface {
	Build(ctx context.Context, vectors [][]float32, ids []core.VectorID) error
	Load(ctx context.Context, config map[string]string) error
	Query(ctx context.Context, queries []float32, nq int, info SearchInfo, view bitset.View) (SearchResult, error)
	Serialize(ctx context.Context) ([]byte, error)
	Upload(ctx context.Context, data []byte) error
	Count() int64
	HasRawData() bool
}
