// Package alloc implements a pooled allocator of raw float64 slabs keyed by
// size class, grounded in the teacher's pkg/tensor.TensorPool (per-size
// sync.Pool buckets) and in original_source's utils/allocator.hpp (size-class
// buckets plus an "all freed?" leak probe used by its test harness).
//
// Storage in pkg/storage allocates through the process-wide Default
// allocator; tests that want a clean leak probe construct their own
// *Allocator instead of using Default.
package alloc

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Block is a leased slab of float64 cells. Release returns it to its pool.
type Block struct {
	Data  []float64
	size  int
	owner *Allocator
}

// Release returns the block to the allocator it was leased from. It is safe
// to call Release on a nil *Block.
func (b *Block) Release() {
	if b == nil || b.owner == nil {
		return
	}
	b.owner.release(b)
	b.owner = nil
}

// Allocator pools float64 slabs by exact size, the same size-class strategy
// the teacher's TensorPool uses for *Tensor values, generalized here to raw
// slabs so pkg/storage can share it underneath views of different shape.
type Allocator struct {
	mu          sync.Mutex
	pools       map[int]*sync.Pool
	outstanding int64

	allocs  prometheus.Counter
	inUse   prometheus.Gauge
}

// Default is the process-wide allocator used by pkg/storage unless a caller
// explicitly constructs its own for isolated leak testing.
var Default = New()

// New creates an allocator with its own leak counters and metrics.
func New() *Allocator {
	return &Allocator{
		pools: make(map[int]*sync.Pool),
		allocs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tensorgrad_alloc_blocks_total",
			Help: "Total number of storage blocks leased from the allocator.",
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tensorgrad_alloc_blocks_in_use",
			Help: "Storage blocks currently leased and not yet released.",
		}),
	}
}

// Get leases a zero-filled block of n float64 cells.
func (a *Allocator) Get(n int) *Block {
	a.mu.Lock()
	pool, ok := a.pools[n]
	if !ok {
		pool = &sync.Pool{New: func() interface{} {
			return make([]float64, n)
		}}
		a.pools[n] = pool
	}
	a.mu.Unlock()

	data := pool.Get().([]float64)
	for i := range data {
		data[i] = 0
	}

	a.mu.Lock()
	a.outstanding++
	a.mu.Unlock()
	a.allocs.Inc()
	a.inUse.Inc()

	return &Block{Data: data, size: n, owner: a}
}

func (a *Allocator) release(b *Block) {
	a.mu.Lock()
	pool := a.pools[b.size]
	a.outstanding--
	a.mu.Unlock()
	a.inUse.Dec()
	if pool != nil {
		pool.Put(b.Data) //nolint:staticcheck // pool element type fixed per size class
	}
}

// Outstanding reports the number of blocks leased but not yet released — the
// leak probe spec.md §8's invariant 6 requires ("after releasing all
// tensors, allocator reports no outstanding allocations").
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.outstanding)
}

// Collectors exposes this allocator's prometheus collectors so callers can
// register them in their own registry instead of the global one.
func (a *Allocator) Collectors() []prometheus.Collector {
	return []prometheus.Collector{a.allocs, a.inUse}
}
