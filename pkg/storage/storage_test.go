package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hirogava/tensorgrad/pkg/alloc"
	"github.com/Hirogava/tensorgrad/pkg/storage"
)

func TestWrapCopiesRatherThanAliasing(t *testing.T) {
	raw := []float64{1, 2, 3}
	s := storage.Wrap(raw)
	raw[0] = 99
	assert.Equal(t, float64(1), s.At(0), "Wrap must copy, not alias the caller's slice")
}

func TestSetBumpsVersionSetNoVersionDoesNot(t *testing.T) {
	s := storage.Allocate(2)
	v0 := s.Version()
	s.SetNoVersion(0, 5)
	assert.Equal(t, v0, s.Version())
	s.Set(0, 5)
	assert.Equal(t, v0+1, s.Version())
}

func TestShareWithOffsetSeesSameBlock(t *testing.T) {
	s := storage.Wrap([]float64{10, 20, 30})
	view := storage.ShareWithOffset(s, 1)
	assert.Equal(t, float64(20), view.At(0))
	view.Set(0, 99)
	assert.Equal(t, float64(99), s.At(1), "writes through a shared view must be visible at the original offset")
	assert.Equal(t, s.Version(), view.Version(), "version is shared across views of the same block")
}

func TestAllocatorLeakProbe(t *testing.T) {
	a := alloc.New()
	s := storage.AllocateFrom(a, 4)
	assert.Equal(t, 1, a.Outstanding())
	s.Release()
	assert.Equal(t, 0, a.Outstanding())
}
