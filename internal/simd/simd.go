// Package simd provides the boolean-kernel dispatch table used by the
// filter pipeline: AND/OR/NOT/ALL-TRUE/ALL-FALSE over byte-per-bool
// vectors, bitset packing, and the term/compare kernels the predicate
// evaluator calls per chunk. Dispatch is resolved once from detected CPU
// features and never branches again on the hot path.
package simd

import (
	"sync"

	"github.com/veccore/coreq/internal/metrics"
)

// boolKernels is the function-pointer table selected for the process
// lifetime. Every tier implements the same contract; "wide" entries use
// an 8x-unrolled loop body and "narrow" entries use a plain byte loop.
// No tier currently emits hand-written vector assembly (see DESIGN.md);
// the split exists so the dispatch mechanism itself — select-once,
// never branch again — is real, even though today "wide" and "narrow"
// both compile to portable Go.
type boolKernels struct {
	AllTrue       func([]byte) bool
	AllFalse      func([]byte) bool
	Invert        func([]byte)
	And           func(dst, src []byte)
	Or            func(dst, src []byte)
	GetBitsetBlock func([]byte) uint64
}

var (
	initOnce sync.Once
	table    boolKernels
)

func wideTable() boolKernels {
	return boolKernels{
		AllTrue:        allTrueWide,
		AllFalse:       allFalseWide,
		Invert:         invertWide,
		And:            andWide,
		Or:             orWide,
		GetBitsetBlock: getBitsetBlockRef,
	}
}

func narrowTable() boolKernels {
	return boolKernels{
		AllTrue:        allTrueNarrow,
		AllFalse:       allFalseNarrow,
		Invert:         invertNarrow,
		And:            andNarrow,
		Or:             orNarrow,
		GetBitsetBlock: getBitsetBlockRef,
	}
}

// Init detects CPU features and fixes the dispatch table. Safe to call
// more than once; only the first call has effect. Package functions call
// this implicitly, so callers only need it to force detection timing
// (e.g. before logging the chosen tier at startup).
func Init() {
	initOnce.Do(func() {
		detectCPU()
		switch implementation {
		case "avx512", "avx2", "sse4", "neon":
			table = wideTable()
		default: // "sse2", "ref"
			table = narrowTable()
		}
	})
}

// Dispatch returns the active kernel table, initializing it on first use.
func Dispatch() boolKernels {
	Init()
	metrics.SIMDDispatchTotal.WithLabelValues(implementation).Inc()
	return table
}

// AllTrue reports whether every element of a byte-per-bool vector is
// nonzero (true).
func AllTrue(data []byte) bool { return Dispatch().AllTrue(data) }

// AllFalse reports whether every element of a byte-per-bool vector is
// zero (false).
func AllFalse(data []byte) bool { return Dispatch().AllFalse(data) }

// InvertBool flips every element of data in place between the canonical
// {0,1} encoding.
func InvertBool(data []byte) { Dispatch().Invert(data) }

// AndBool computes dst &= src elementwise, canonicalizing to {0,1}.
// len(dst) must equal len(src).
func AndBool(dst, src []byte) { Dispatch().And(dst, src) }

// OrBool computes dst |= src elementwise, canonicalizing to {0,1}.
// len(dst) must equal len(src).
func OrBool(dst, src []byte) { Dispatch().Or(dst, src) }

// GetBitsetBlock packs up to 64 bytes of a byte-per-bool vector into one
// little-endian word, least significant bit first.
func GetBitsetBlock(data []byte) uint64 { return Dispatch().GetBitsetBlock(data) }

// FindTerm reports whether needle is present in arr, used by the
// predicate evaluator's linear term-match strategy for short IN-lists
// (<=16 elements) where building a hash set would cost more than it saves.
func FindTerm[T comparable](arr []T, needle T) bool {
	for _, v := range arr {
		if v == needle {
			return true
		}
	}
	return false
}

// CompareOp is a scalar comparison operator used by range and
// column-compare predicate nodes.
type CompareOp int

const (
	CompareLT CompareOp = iota
	CompareLE
	CompareEQ
	CompareNE
	CompareGE
	CompareGT
)

// CompareScalar evaluates arr[i] `op` needle for every element, writing
// the {0,1} boolean result into out. len(out) must equal len(arr).
func CompareScalar[T int64 | int32 | float32 | float64](arr []T, op CompareOp, needle T, out []byte) {
	switch op {
	case CompareLT:
		for i, v := range arr {
			out[i] = boolByte(v < needle)
		}
	case CompareLE:
		for i, v := range arr {
			out[i] = boolByte(v <= needle)
		}
	case CompareEQ:
		for i, v := range arr {
			out[i] = boolByte(v == needle)
		}
	case CompareNE:
		for i, v := range arr {
			out[i] = boolByte(v != needle)
		}
	case CompareGE:
		for i, v := range arr {
			out[i] = boolByte(v >= needle)
		}
	case CompareGT:
		for i, v := range arr {
			out[i] = boolByte(v > needle)
		}
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
