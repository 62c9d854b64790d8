package simd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTrueAllFalse(t *testing.T) {
	cases := []struct {
		name      string
		data      []byte
		wantTrue  bool
		wantFalse bool
	}{
		{"empty", []byte{}, true, true},
		{"all-one", []byte{1, 1, 1, 1, 1, 1, 1, 1, 1}, true, false},
		{"all-zero", []byte{0, 0, 0, 0, 0, 0, 0, 0, 0}, false, true},
		{"mixed", []byte{1, 1, 0, 1, 1, 1, 1, 1, 1}, false, false},
		{"mixed-tail", []byte{1, 1, 1, 1, 1, 1, 1, 1, 0}, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.wantTrue, AllTrue(c.data))
			assert.Equal(t, c.wantFalse, AllFalse(c.data))
		})
	}
}

func TestInvertBool(t *testing.T) {
	data := []byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 0}
	InvertBool(data)
	assert.Equal(t, []byte{0, 1, 0, 0, 1, 1, 0, 1, 0, 1}, data)
}

func TestAndOrBool(t *testing.T) {
	dst := []byte{1, 1, 0, 0, 1, 1, 0, 0, 1}
	src := []byte{1, 0, 1, 0, 1, 0, 1, 0, 1}

	and := append([]byte{}, dst...)
	AndBool(and, src)
	assert.Equal(t, []byte{1, 0, 0, 0, 1, 0, 0, 0, 1}, and)

	or := append([]byte{}, dst...)
	OrBool(or, src)
	assert.Equal(t, []byte{1, 1, 1, 0, 1, 1, 1, 0, 1}, or)
}

func TestGetBitsetBlock(t *testing.T) {
	data := make([]byte, 64)
	data[0] = 1
	data[3] = 1
	data[63] = 1
	word := GetBitsetBlock(data)
	assert.Equal(t, uint64(1)|uint64(1)<<3|uint64(1)<<63, word)
}

func TestFindTerm(t *testing.T) {
	ints := []int64{10, 20, 30}
	assert.True(t, FindTerm(ints, int64(20)))
	assert.False(t, FindTerm(ints, int64(99)))

	strs := []string{"a", "b", "c"}
	assert.True(t, FindTerm(strs, "c"))
	assert.False(t, FindTerm(strs, "z"))
}

func TestCompareScalar(t *testing.T) {
	arr := []int64{1, 2, 3, 4, 5}
	out := make([]byte, len(arr))

	CompareScalar(arr, CompareGT, int64(3), out)
	assert.Equal(t, []byte{0, 0, 0, 1, 1}, out)

	CompareScalar(arr, CompareEQ, int64(3), out)
	assert.Equal(t, []byte{0, 0, 1, 0, 0}, out)

	CompareScalar(arr, CompareLE, int64(2), out)
	assert.Equal(t, []byte{1, 1, 0, 0, 0}, out)
}

func TestPopcountHammingDistance(t *testing.T) {
	assert.Equal(t, 0, Popcount(0))
	assert.Equal(t, 64, Popcount(^uint64(0)))
	assert.Equal(t, 1, Popcount(1<<40))

	a := []uint64{0b1010, 0xFF}
	b := []uint64{0b1100, 0x0F}
	require.Len(t, a, len(b))
	assert.Equal(t, 2+4, HammingDistance(a, b))
}

func TestDispatchTierPicksAKnownTable(t *testing.T) {
	Init()
	impl := GetImplementation()
	assert.Contains(t, []string{"avx512", "avx2", "sse4", "sse2", "neon", "ref"}, impl)
}
