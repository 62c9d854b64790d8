package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnVectorRawRoundTrip(t *testing.T) {
	cv := NewColumnVector([]int64{1, 2, 3})
	assert.Equal(t, 3, cv.Size())
	cv.RawMut()[1] = 99
	assert.Equal(t, int64(99), cv.Raw()[1])
}

func TestMakeColumnVectorZeroed(t *testing.T) {
	cv := MakeColumnVector[float32](4)
	assert.Equal(t, []float32{0, 0, 0, 0}, cv.Raw())
}

func TestBoolBytesRoundTrip(t *testing.T) {
	cv := NewColumnVector([]bool{true, false, true, true, false})
	bytes := BoolBytes(cv)
	assert.Equal(t, []byte{1, 0, 1, 1, 0}, bytes)

	other := MakeColumnVector[bool](5)
	SetBoolBytes(other, bytes)
	assert.Equal(t, cv.Raw(), other.Raw())
}

func TestRowVectorTaggedKinds(t *testing.T) {
	bare := NewBoolRowVector([]byte{1, 0, 1})
	assert.False(t, bare.HasOffsets())
	assert.Equal(t, 3, bare.Len())

	withOffsets := NewBoolAndOffsetsRowVector([]byte{1, 1}, []uint32{4, 9})
	assert.True(t, withOffsets.HasOffsets())
	assert.Equal(t, []uint32{4, 9}, withOffsets.Offsets)
}
