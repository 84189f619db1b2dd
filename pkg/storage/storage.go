// Package storage implements the refcounted, offset-and-version-tracked
// float64 buffer tensors are built on top of, grounded in the teacher's
// pkg/tensor.Tensor.Data field plus original_source's tensor/storage.hpp
// (offset + version on top of a shared block).
package storage

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Hirogava/tensorgrad/pkg/alloc"
)

// block is the data shared by every Storage view over the same allocation.
type block struct {
	id      uuid.UUID
	data    []float64
	version int64 // atomic; incremented on every write path
	refs    int64 // atomic; number of live Storage values sharing this block
	b       *alloc.Block
}

// Storage is an owned, reference-counted view of a block of float64 cells
// plus an offset into it. All live Storage views of the same underlying
// block share refcount and version, per spec.md §3.
type Storage struct {
	blk    *block
	offset int
}

// Allocate returns a zero-filled Storage of n cells leased from the default
// allocator.
func Allocate(n int) Storage {
	return AllocateFrom(alloc.Default, n)
}

// AllocateFrom leases n zero-filled cells from a, useful for isolated leak
// tests that want their own allocator.
func AllocateFrom(a *alloc.Allocator, n int) Storage {
	blk := &block{id: uuid.New(), b: a.Get(n)}
	blk.data = blk.b.Data
	blk.refs = 1
	return Storage{blk: blk}
}

// Wrap copies raw into a freshly allocated Storage (the "wrap(raw_pointer,
// n) copying" constructor from spec.md §4.1).
func Wrap(raw []float64) Storage {
	s := Allocate(len(raw))
	copy(s.blk.data, raw)
	return s
}

// ShareWithOffset returns a new Storage sharing the same block as s, with
// its offset shifted by delta. Used by every view operation in pkg/tensor.
func ShareWithOffset(s Storage, delta int) Storage {
	atomic.AddInt64(&s.blk.refs, 1)
	return Storage{blk: s.blk, offset: s.offset + delta}
}

// ID identifies the underlying block, the same for every view sharing it.
// No error message in this module includes it.
func (s Storage) ID() uuid.UUID { return s.blk.id }

// Offset is this view's start index within the shared block.
func (s Storage) Offset() int { return s.offset }

// Len is the number of cells available starting at Offset in the shared
// block (not the view's logical tensor size, which pkg/tensor tracks via
// shape/stride).
func (s Storage) Len() int { return len(s.blk.data) - s.offset }

// Version is the block's monotonic write counter.
func (s Storage) Version() int64 { return atomic.LoadInt64(&s.blk.version) }

// IncrementVersion bumps the shared block's version. Every write path
// (scalar set, tensor assignment, tensor +=) calls this exactly once per call.
func (s Storage) IncrementVersion() {
	atomic.AddInt64(&s.blk.version, 1)
}

// At reads the cell at local index i (relative to Offset).
func (s Storage) At(i int) float64 {
	return s.blk.data[s.offset+i]
}

// Set writes the cell at local index i and bumps the version.
func (s Storage) Set(i int, v float64) {
	s.blk.data[s.offset+i] = v
	s.IncrementVersion()
}

// SetNoVersion writes without touching the version counter — used
// internally by the assignment machinery in pkg/tensor, which bumps the
// version exactly once per `=`/`+=` call rather than once per cell.
func (s Storage) SetNoVersion(i int, v float64) {
	s.blk.data[s.offset+i] = v
}

// AddNoVersion accumulates into the cell at local index i without touching
// the version counter, for the same reason as SetNoVersion.
func (s Storage) AddNoVersion(i int, v float64) {
	s.blk.data[s.offset+i] += v
}

// Release decrements the shared block's refcount; when it reaches zero the
// backing allocation is returned to the allocator. Deterministic,
// reference-counted destruction per spec.md §3 "Lifecycle summary".
func (s Storage) Release() {
	if atomic.AddInt64(&s.blk.refs, -1) == 0 && s.blk.b != nil {
		s.blk.b.Release()
	}
}

// Retain increments the shared block's refcount without changing offset,
// used when a second owner (e.g. a GradMeta alias) needs to keep the block
// alive independently of the Storage value it was copied from.
func (s Storage) Retain() Storage {
	atomic.AddInt64(&s.blk.refs, 1)
	return s
}
