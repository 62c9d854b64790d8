// Package fixture (this file) provides a real single-column segment
// backed by a genuine HNSW graph, used by integration tests to exercise
// the ANN path end-to-end without a production storage engine. The
// roaring-backed sets in bitmap.go model the tombstone and commit
// indexes; this file adds the row storage, MVCC masking, and vector
// search on top of them.
package fixture

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/coder/hnsw"

	"github.com/veccore/coreq/internal/bitset"
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/corerr"
	"github.com/veccore/coreq/internal/index"
	"github.com/veccore/coreq/internal/simd"
)

// VectorSegment is a segment backed by dense in-memory rows: one scalar
// int64 column (named "v") plus a fixed-dimension vector column, an
// insert-timestamp per row, and a tombstone set with per-row delete
// timestamps. It implements segment.Segment.
type VectorSegment struct {
	chunkSize int
	scalars   []int64
	vectors   [][]float32
	insertTS  []core.Timestamp
	deleteTS  []core.Timestamp

	tombstones *RoaringSet
	committed  *AtomicRoaringSet

	graphOnce sync.Once
	graph     *hnsw.Graph[core.VectorID]
	mu        sync.RWMutex
}

// NewVectorSegment builds a segment of len(scalars) rows, row i inserted
// at insertTS[i]. Every row is marked committed in the commit index on
// construction.
func NewVectorSegment(scalars []int64, vectors [][]float32, insertTS []core.Timestamp, chunkSize int) *VectorSegment {
	n := len(scalars)
	s := &VectorSegment{
		chunkSize:  chunkSize,
		scalars:    scalars,
		vectors:    vectors,
		insertTS:   insertTS,
		deleteTS:   make([]core.Timestamp, n),
		tombstones: NewRoaringSet(),
		committed:  NewAtomicRoaringSet(),
	}
	for i := 0; i < n; i++ {
		s.committed.Set(i)
	}
	return s
}

// Delete marks row i tombstoned at deleteTS, visible to MaskWithDelete
// for any ts >= deleteTS.
func (s *VectorSegment) Delete(row int, deleteTS core.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteTS[row] = deleteTS
	s.tombstones.Set(row)
}

// Close releases the segment's tombstone bitmap back to the shared pool
// and drops its commit index. The segment must not be used afterward.
func (s *VectorSegment) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tombstones.Release()
	s.committed.Release()
}

func (s *VectorSegment) ChunkSize() int { return s.chunkSize }

func (s *VectorSegment) NumChunks() int {
	n := len(s.scalars)
	if n == 0 {
		return 0
	}
	return (n + s.chunkSize - 1) / s.chunkSize
}

func (s *VectorSegment) Chunk(i int) (arrow.Record, error) {
	start := i * s.chunkSize
	end := start + s.chunkSize
	if end > len(s.scalars) {
		end = len(s.scalars)
	}

	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "v", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(s.scalars[start:end], nil)
	return b.NewRecord(), nil
}

// ActiveCount returns the segment's physical row count. ts is unused:
// MVCC and tombstone exclusion are applied afterward by
// MaskWithTimestamps and MaskWithDelete, not baked into this count.
func (s *VectorSegment) ActiveCount(ts core.Timestamp) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scalars)
}

// rowVisibleLocked reports whether row i is visible at ts: committed,
// inserted at or before ts, and not tombstoned at or before ts. Caller
// holds s.mu for reading.
func (s *VectorSegment) rowVisibleLocked(i int, ts core.Timestamp) bool {
	if !s.committed.Contains(i) {
		return false
	}
	if s.insertTS[i] > ts {
		return false
	}
	if s.tombstones.Contains(i) && s.deleteTS[i] <= ts {
		return false
	}
	return true
}

func (s *VectorSegment) MaskWithTimestamps(b *bitset.Bitset, ts core.Timestamp) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.insertTS {
		if s.insertTS[i] > ts || !s.committed.Contains(i) {
			b.Set(i)
		}
	}
}

func (s *VectorSegment) MaskWithDelete(b *bitset.Bitset, n int, ts core.Timestamp) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.tombstones.ToUint32Array() {
		i := int(row)
		if i >= n {
			continue
		}
		if s.deleteTS[i] <= ts {
			b.Set(i)
		}
	}
}

// TimestampFilter is called after b has already been flipped to
// survivor convention (1 = survives). It only clears bits, dropping a
// row from the survivor set when MVCC or a tombstone excludes it; it
// must never Set a bit, or it would resurrect a row the retrieve path's
// filter bitset (buildFilterBitsetWithOffsets) already excluded.
func (s *VectorSegment) TimestampFilter(b *bitset.Bitset, ts core.Timestamp) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := 0; i < b.Len(); i++ {
		if b.Get(i) && !s.rowVisibleLocked(i, ts) {
			b.Clear(i)
		}
	}
}

// TimestampFilterOffsets writes exclusion convention (1 = excluded)
// over the row offsets a Term lookup already materialized, matching
// MaskWithTimestamps/MaskWithDelete: the executor's cache-offsets
// fast path never flips b before calling this.
func (s *VectorSegment) TimestampFilterOffsets(b *bitset.Bitset, offsets []uint32, ts core.Timestamp) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, off := range offsets {
		i := int(off)
		if i < len(s.scalars) && !s.rowVisibleLocked(i, ts) {
			b.Set(i)
		}
	}
}

func (s *VectorSegment) FindFirst(limit int, b *bitset.Bitset, alreadyFlipped bool) []uint64 {
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

// ensureGraph lazily builds the HNSW graph over every row, keyed by row
// offset cast to core.VectorID. Built once per segment: coder/hnsw
// serializes concurrent Add calls internally, so building once up front
// avoids paying that lock on every query.
func (s *VectorSegment) ensureGraph() *hnsw.Graph[core.VectorID] {
	s.graphOnce.Do(func() {
		g := hnsw.NewGraph[core.VectorID]()
		g.Distance = l2
		for i, vec := range s.vectors {
			g.Add(hnsw.MakeNode(core.VectorID(i), vec))
		}
		s.graph = g
	})
	return s.graph
}

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

// bitPackVector treats each nonzero component as a set bit, packing a
// float32 vector down to the word representation simd.HammingDistance
// operates on.
func bitPackVector(v []float32) []uint64 {
	words := make([]uint64, (len(v)+63)/64)
	for i, f := range v {
		if f != 0 {
			words[i/64] |= 1 << uint(i%64)
		}
	}
	return words
}

// rerankDistance reports how far apart a and b are under metric. The
// HNSW graph itself always walks L2 space (ensureGraph); this is only
// the distance reported back to the caller and used to rank the
// oversampled candidate set, so a Hamming or Jaccard collection still
// gets a graph to walk even though its committed vectors aren't L2-ish.
func rerankDistance(metric core.DistanceMetric, a, b []float32) float32 {
	switch metric {
	case core.MetricHamming:
		return float32(simd.HammingDistance(bitPackVector(a), bitPackVector(b)))
	default:
		return l2(a, b)
	}
}

// VectorSearch runs each query row through the HNSW graph oversampled
// by oversampleFactor, then drops candidates excluded by view. When
// fewer than topK graph candidates survive the view, it falls back to a
// brute-force scan of every visible row, mirroring the oversample-then-brute-force escape hatch a
// production HNSW-backed index needs when a restrictive filter starves
// the graph walk of visible neighbors.
func (s *VectorSegment) VectorSearch(info index.SearchInfo, queries []float32, nq int, ts core.Timestamp, view bitset.View) (index.SearchResult, error) {
	const oversampleFactor = 8

	s.mu.RLock()
	dim := 0
	if len(s.vectors) > 0 {
		dim = len(s.vectors[0])
	}
	for i, vec := range s.vectors {
		if len(vec) != dim {
			s.mu.RUnlock()
			return index.SearchResult{}, corerr.NewSegmentError("fixture.VectorSearch",
				fmt.Sprintf("row %d has dim %d, segment dim is %d", i, len(vec), dim))
		}
	}
	s.mu.RUnlock()

	out := index.Empty(nq, info.TopK, info.Metric)
	if dim == 0 || info.TopK == 0 {
		return out, nil
	}

	graph := s.ensureGraph()

	visible := func(row int) bool {
		return row < view.Len() && !view.Get(row)
	}

	for q := 0; q < nq; q++ {
		query := queries[q*dim : (q+1)*dim]

		type candidate struct {
			row  int
			dist float32
		}
		var candidates []candidate

		s.mu.RLock()
		neighbors := graph.Search(query, info.TopK*oversampleFactor)
		for _, n := range neighbors {
			row := int(n.Key)
			if visible(row) {
				candidates = append(candidates, candidate{row: row, dist: rerankDistance(info.Metric, query, s.vectors[row])})
			}
		}
		if len(candidates) < info.TopK {
			candidates = candidates[:0]
			for row, vec := range s.vectors {
				if visible(row) {
					candidates = append(candidates, candidate{row: row, dist: rerankDistance(info.Metric, query, vec)})
				}
			}
		}
		s.mu.RUnlock()

		sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

		for k := 0; k < info.TopK && k < len(candidates); k++ {
			slot := q*info.TopK + k
			out.Offsets[slot] = int64(candidates[k].row)
			out.Distances[slot] = candidates[k].dist
			out.VectorIDs[slot] = core.VectorID(candidates[k].row)
		}
	}
	return out, nil
}
