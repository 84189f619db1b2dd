package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

func TestContiguousStrideBroadcastsSizeOneDims(t *testing.T) {
	st := shape.ContiguousStride(shape.Size{2, 1, 3})
	assert.Equal(t, shape.IndexArray{3, 0, 1}, st)
}

func TestTotalSizeAndSubsizeFrom(t *testing.T) {
	s := shape.Size{2, 3, 4}
	assert.Equal(t, 24, shape.TotalSize(s))
	assert.Equal(t, 12, shape.SubsizeFrom(s, 1))
	assert.Equal(t, 1, shape.SubsizeFrom(s, 3))
}

func TestIsContiguous(t *testing.T) {
	s := shape.Size{2, 1, 4}
	assert.True(t, shape.IsContiguous(s, shape.ContiguousStride(s)))
	assert.False(t, shape.IsContiguous(s, shape.IndexArray{99, 0, 1}))
}

func TestOffset(t *testing.T) {
	idx := shape.IndexArray{1, 2}
	st := shape.IndexArray{4, 1}
	assert.Equal(t, 6, shape.Offset(idx, st))
}

func TestIteratorVisitsEveryIndexRowMajor(t *testing.T) {
	it := shape.NewIterator(shape.Size{2, 2})
	var got []shape.IndexArray
	for it.Next() {
		got = append(got, it.Index().Clone())
	}
	want := []shape.IndexArray{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	assert.Equal(t, want, got)
}

func TestIteratorScalarShape(t *testing.T) {
	it := shape.NewIterator(shape.Size{})
	assert.True(t, it.Next())
	assert.False(t, it.Next())
}

func TestIteratorEmptyDimProducesNoIndices(t *testing.T) {
	it := shape.NewIterator(shape.Size{0, 3})
	assert.False(t, it.Next())
}
