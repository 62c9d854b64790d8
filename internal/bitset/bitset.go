// Package bitset provides the dense, word-packed visibility bitset used
// by the filter and plan-execution pipeline. By convention a set bit
// means "excluded from results" wherever the bitset carries visibility
// rather than a raw predicate match.
package bitset

import (
	"github.com/veccore/coreq/internal/simd"
)

const wordBits = 64

// Bitset is an ordered sequence of N bits packed into 64-bit words. Bits
// beyond N inside the last word are always zero.
type Bitset struct {
	words []uint64
	n     int
}

// New returns a Bitset of n bits, all clear.
func New(n int) *Bitset {
	return &Bitset{
		words: make([]uint64, wordCount(n)),
		n:     n,
	}
}

func wordCount(n int) int {
	return (n + wordBits - 1) / wordBits
}

// Len returns the number of bits.
func (b *Bitset) Len() int { return b.n }

// Get returns the value of bit i.
func (b *Bitset) Get(i int) bool {
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Set sets bit i to 1.
func (b *Bitset) Set(i int) {
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Clear sets bit i to 0.
func (b *Bitset) Clear(i int) {
	b.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

// Flip inverts every bit.
func (b *Bitset) Flip() {
	for i := range b.words {
		b.words[i] = ^b.words[i]
	}
	b.maskTail()
}

// maskTail clears the bits beyond n in the last word, preserving the
// invariant after a bulk operation like Flip.
func (b *Bitset) maskTail() {
	if b.n == 0 {
		return
	}
	rem := b.n % wordBits
	if rem == 0 {
		return
	}
	last := len(b.words) - 1
	b.words[last] &= (uint64(1) << uint(rem)) - 1
}

// CountOnes returns the number of set bits.
func (b *Bitset) CountOnes() int {
	total := 0
	for _, w := range b.words {
		total += simd.Popcount(w)
	}
	return total
}

// All reports whether every bit is set.
func (b *Bitset) All() bool {
	return b.CountOnes() == b.n
}

// None reports whether every bit is clear.
func (b *Bitset) None() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// AppendBool appends a byte-per-bool source (nonzero = true) starting at
// the given bit offset, packing wordBits at a time via the SIMD bitset
// packer. len(src) rows are consumed.
func (b *Bitset) AppendBool(offset int, src []byte) {
	i := 0
	for i < len(src) {
		end := i + wordBits
		if end > len(src) {
			end = len(src)
		}
		word := simd.GetBitsetBlock(src[i:end])
		bitOff := offset + i
		wordIdx := bitOff / wordBits
		shift := uint(bitOff % wordBits)
		if shift == 0 {
			b.words[wordIdx] |= word
		} else {
			b.words[wordIdx] |= word << shift
			if wordIdx+1 < len(b.words) {
				b.words[wordIdx+1] |= word >> (wordBits - shift)
			}
		}
		i = end
	}
	b.maskTail()
}

// Or sets bits that are set in other into b. Both must have equal length.
func (b *Bitset) Or(other *Bitset) {
	for i := range b.words {
		b.words[i] |= other.words[i]
	}
}

// And clears bits in b that are not set in other. Both must have equal length.
func (b *Bitset) And(other *Bitset) {
	for i := range b.words {
		b.words[i] &= other.words[i]
	}
}

// Clone returns an independent copy.
func (b *Bitset) Clone() *Bitset {
	words := make([]uint64, len(b.words))
	copy(words, b.words)
	return &Bitset{words: words, n: b.n}
}

// ToBytes expands the bitset into one byte per bit (0x00/0x01), matching
// the byte-per-bool layout the SIMD kernels and evaluator operate on.
func (b *Bitset) ToBytes() []byte {
	out := make([]byte, b.n)
	for i := 0; i < b.n; i++ {
		if b.Get(i) {
			out[i] = 1
		}
	}
	return out
}

// View returns a non-owning read-only window over the bitset. The view
// must not outlive the Bitset it borrows from.
func (b *Bitset) View() View {
	return View{words: b.words, n: b.n}
}

// View is a non-owning borrow of a Bitset, passed to the vector index
// during a search call. It exposes only read operations: the index must
// not mutate the caller's bitset.
type View struct {
	words []uint64
	n     int
}

// Len returns the number of bits visible through this view.
func (v View) Len() int { return v.n }

// Get returns the value of bit i.
func (v View) Get(i int) bool {
	return v.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// CountOnes returns the number of set bits visible through this view.
func (v View) CountOnes() int {
	total := 0
	for _, w := range v.words {
		total += simd.Popcount(w)
	}
	return total
}
