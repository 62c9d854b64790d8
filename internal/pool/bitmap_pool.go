package pool

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/veccore/coreq/internal/metrics"
)

// bitmapPool backs every RoaringSet a fixture segment creates for its
// tombstone set. Pooling matters here because that set is rebuilt on
// every NewVectorSegment call in a test loop, and a fresh
// *roaring.Bitmap per call churns the allocator for no benefit over
// reusing one that's already been cleared. The commit index
// (AtomicRoaringSet) allocates its own bitmaps and does not use this
// pool.
var bitmapPool = sync.Pool{
	New: func() any { return roaring.NewBitmap() },
}

// GetBitmap draws a bitmap from the pool, guaranteed empty.
func GetBitmap() *roaring.Bitmap {
	metrics.BitmapPoolOpsTotal.WithLabelValues("get").Inc()
	return bitmapPool.Get().(*roaring.Bitmap)
}

// PutBitmap clears bm and returns it to the pool. A nil bm is a no-op,
// so callers can unconditionally defer-release a set that may never
// have been populated.
func PutBitmap(bm *roaring.Bitmap) {
	if bm == nil {
		return
	}
	metrics.BitmapPoolOpsTotal.WithLabelValues("put").Inc()
	bm.Clear()
	bitmapPool.Put(bm)
}
