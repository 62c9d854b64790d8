// Package fixture provides a real, roaring-backed segment used by
// integration tests: a tombstone set and a commit-timestamp index
// sufficient to exercise the MVCC masking and retrieve paths without a
// persistent storage engine. It is test-only scaffolding, not the dense
// SIMD Bitset the filter pipeline uses on its hot path.
package fixture

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/veccore/coreq/internal/pool"
)

// RoaringSet is a sparse, mutex-guarded set of row offsets backed by a
// pooled roaring bitmap. VectorSegment uses one per segment as its
// tombstone set: deletions are rare relative to segment size, so a
// sparse set avoids a dense per-row bit for every row that never gets
// deleted.
type RoaringSet struct {
	mu  sync.RWMutex
	set *roaring.Bitmap
}

// NewRoaringSet returns an empty set backed by a bitmap drawn from the
// shared pool, returned on Release.
func NewRoaringSet() *RoaringSet {
	return &RoaringSet{set: pool.GetBitmap()}
}

// Set marks offset i a member of the set. Used by VectorSegment.Delete
// to tombstone a row.
func (r *RoaringSet) Set(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set.Add(uint32(i))
}

// Contains reports whether offset i is a member.
func (r *RoaringSet) Contains(i int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.Contains(uint32(i))
}

// ToUint32Array returns every member offset. MaskWithDelete walks this
// to avoid scanning rows that were never tombstoned.
func (r *RoaringSet) ToUint32Array() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.ToArray()
}

// Release returns the underlying bitmap to the pool. The set must not
// be used afterward.
func (r *RoaringSet) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set != nil {
		pool.PutBitmap(r.set)
		r.set = nil
	}
}

// AtomicRoaringSet is a copy-on-write set of row offsets: readers load
// the current snapshot without taking a lock, writers install a new
// clone under writeMu. VectorSegment uses one as its commit index, read
// on every row-visibility check and written once per row on commit.
type AtomicRoaringSet struct {
	snapshot atomic.Pointer[roaring.Bitmap]
	// writeMu serializes writers so two concurrent commits don't race
	// to clone the same stale snapshot; readers never take it.
	writeMu sync.Mutex
}

// NewAtomicRoaringSet returns an empty set.
func NewAtomicRoaringSet() *AtomicRoaringSet {
	a := &AtomicRoaringSet{}
	a.snapshot.Store(roaring.New())
	return a
}

// Contains reports whether offset i is a member of the current
// snapshot.
func (a *AtomicRoaringSet) Contains(i int) bool {
	bm := a.snapshot.Load()
	return bm != nil && bm.Contains(uint32(i))
}

// Set installs a snapshot with offset i added, cloning the prior
// snapshot so any reader still holding it sees an unmodified bitmap.
func (a *AtomicRoaringSet) Set(i int) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	next := roaring.New()
	if prev := a.snapshot.Load(); prev != nil {
		next = prev.Clone()
	}
	next.Add(uint32(i))
	a.snapshot.Store(next)
}

// Release drops the snapshot reference. Safe even while a reader still
// holds the prior snapshot pointer: roaring bitmaps are never mutated
// in place after Set publishes them, so a stale reader keeps reading a
// valid, if outdated, snapshot.
func (a *AtomicRoaringSet) Release() {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.snapshot.Store(nil)
}
