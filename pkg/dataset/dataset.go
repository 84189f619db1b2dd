// Package dataset implements spec.md §6's batch-yielding readers (MNIST,
// CIFAR-10), grounded in the teacher's pkg/dataloader.Dataset interface
// (Get/Len) generalized to batch access, and in original_source's
// include/data/data.hpp (DatasetBase's n_samples/n_batchs/get_batch/shuffle
// quartet and the MNIST/Cifar10 binary-format readers it declares).
package dataset

import (
	"math/rand"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// Batch is one contiguous floating-point block of shape (batch, C, H, W)
// plus its parallel integer label array, per spec.md §6.
type Batch struct {
	Shape  shape.Size
	Data   []float64
	Labels []int
}

// Dataset is the batch-yielding contract every reader below satisfies.
type Dataset interface {
	NumSamples() int
	NumBatches() int
	Shuffle(rng *rand.Rand)
	GetBatch(i int) (Batch, error)
}

// cachingDataset wraps a Dataset with an LRU cache of already-materialized
// batches, invalidated wholesale on Shuffle since every batch's contents
// change when the in-memory index is permuted.
type cachingDataset struct {
	inner Dataset
	cache *lru.Cache[int, Batch]
}

// WithBatchCache wraps inner with an LRU cache of up to size recently
// materialized batches.
func WithBatchCache(inner Dataset, size int) Dataset {
	cache, err := lru.New[int, Batch](size)
	if err != nil {
		panic(err) // only returns an error for size <= 0, a caller bug
	}
	return &cachingDataset{inner: inner, cache: cache}
}

func (c *cachingDataset) NumSamples() int { return c.inner.NumSamples() }
func (c *cachingDataset) NumBatches() int { return c.inner.NumBatches() }

func (c *cachingDataset) Shuffle(rng *rand.Rand) {
	c.inner.Shuffle(rng)
	c.cache.Purge()
}

func (c *cachingDataset) GetBatch(i int) (Batch, error) {
	if b, ok := c.cache.Get(i); ok {
		return b, nil
	}
	b, err := c.inner.GetBatch(i)
	if err != nil {
		return Batch{}, err
	}
	c.cache.Add(i, b)
	return b, nil
}
