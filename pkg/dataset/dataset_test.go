package dataset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hirogava/tensorgrad/pkg/dataset"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

// countingDataset hands back a Batch tagged with how many times GetBatch(i)
// has actually been called, letting tests observe whether the cache wrapper
// served a hit without touching the inner reader.
type countingDataset struct {
	calls map[int]int
}

func (c *countingDataset) NumSamples() int { return 10 }
func (c *countingDataset) NumBatches() int { return 2 }
func (c *countingDataset) Shuffle(rng *rand.Rand) {}
func (c *countingDataset) GetBatch(i int) (dataset.Batch, error) {
	c.calls[i]++
	return dataset.Batch{Shape: shape.Size{1}, Data: []float64{float64(c.calls[i])}, Labels: []int{i}}, nil
}

func TestBatchCacheServesRepeatedGetsWithoutRecalling(t *testing.T) {
	inner := &countingDataset{calls: map[int]int{}}
	ds := dataset.WithBatchCache(inner, 4)

	b1, err := ds.GetBatch(0)
	require.NoError(t, err)
	b2, err := ds.GetBatch(0)
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
	assert.Equal(t, 1, inner.calls[0], "a cached batch must not re-invoke the inner reader")
}

func TestBatchCachePurgesOnShuffle(t *testing.T) {
	inner := &countingDataset{calls: map[int]int{}}
	ds := dataset.WithBatchCache(inner, 4)

	_, err := ds.GetBatch(0)
	require.NoError(t, err)
	ds.Shuffle(rand.New(rand.NewSource(1)))
	_, err = ds.GetBatch(0)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls[0], "Shuffle must invalidate the cache so the next GetBatch re-reads")
}
