// Package segment declares the read-side contract the plan executor and
// filter pipeline drive. Segment implementations (growing or sealed,
// on-disk or in-memory) live outside this module; only their interface
// is specified here.
package segment

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/veccore/coreq/internal/bitset"
	"github.com/veccore/coreq/internal/core"
	"github.com/veccore/coreq/internal/index"
)

// ChunkSource exposes a segment's rows as a sequence of fixed-size
// chunks, the unit the filter pipeline evaluates the predicate plan
// over. Chunk size is segment-defined; the contract only bounds it.
type ChunkSource interface {
	// ChunkSize returns the row count of a full chunk (the last chunk
	// of a segment may be shorter). 8192 is the usual default ceiling.
	ChunkSize() int
	// NumChunks returns the number of chunks covering the segment.
	NumChunks() int
	// Chunk returns the i-th chunk as an Arrow record batch.
	Chunk(i int) (arrow.Record, error)
}

// Segment is the full interface the plan executor depends on: reading
// chunks, MVCC/delete masking, and delegating vector search to the
// index bound to this segment.
type Segment interface {
	ChunkSource

	// ActiveCount returns the segment's physical row count, the size a
	// caller sizes a bitset to before running MaskWithTimestamps,
	// MaskWithDelete, and the predicate filter over it. ts is accepted
	// for symmetry with the rest of the masking contract but does not
	// change the count: MVCC and tombstone exclusion happen through the
	// mask methods, not here.
	ActiveCount(ts core.Timestamp) int

	// MaskWithTimestamps sets bit i of bitset to 1 (excluded) if row i's
	// insert-ts is greater than ts.
	MaskWithTimestamps(b *bitset.Bitset, ts core.Timestamp)

	// MaskWithDelete sets bit i of bitset to 1 (excluded) if row i
	// carries a tombstone with delete-ts <= ts. n is the segment's row
	// count at the time the bitset was sized.
	MaskWithDelete(b *bitset.Bitset, n int, ts core.Timestamp)

	// TimestampFilter finalizes MVCC visibility over every row of the
	// bitset.
	TimestampFilter(b *bitset.Bitset, ts core.Timestamp)

	// TimestampFilterOffsets finalizes MVCC visibility only over the
	// given row offsets, the fast path used when the filter already
	// materialized candidate offsets.
	TimestampFilterOffsets(b *bitset.Bitset, offsets []uint32, ts core.Timestamp)

	// FindFirst returns up to limit surviving row offsets in ascending
	// order. alreadyFlipped indicates whether a 1-bit in b means
	// "survives" (true) or "excluded" (false, the default visibility
	// convention).
	FindFirst(limit int, b *bitset.Bitset, alreadyFlipped bool) []uint64

	// VectorSearch delegates an ANN query to the index bound to this
	// segment, restricted to the candidate rows visible through view.
	VectorSearch(info index.SearchInfo, queries []float32, nq int, ts core.Timestamp, view bitset.View) (index.SearchResult, error)
}
