package dataset

import (
	"math/rand"
	"os"
	"strconv"

	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

const (
	cifarChannels     = 3
	cifarRows         = 32
	cifarCols         = 32
	cifarRecordPixels = cifarChannels * cifarRows * cifarCols
	cifarRecordBytes  = 1 + cifarRecordPixels // 1 label byte + image bytes
)

// Cifar10 reads the CIFAR-10 binary batch format (one label byte followed
// by 3072 image bytes per record, channel-major), grounded in
// original_source's data.hpp Cifar10 class. pathSep is a construction
// parameter, per spec.md §6, so the same reader assembles per-file paths
// under either filesystem convention.
type Cifar10 struct {
	images    [][]float64
	labels    []int
	batchSize int
	order     []int
}

// NewCifar10 reads either the five data_batch_N.bin training files or the
// single test_batch.bin file from dir (joined with pathSep), per the
// standard CIFAR-10 binary layout.
func NewCifar10(dir string, train bool, batchSize int, pathSep string) (*Cifar10, error) {
	var files []string
	if train {
		for i := 1; i <= 5; i++ {
			files = append(files, dir+pathSep+"data_batch_"+strconv.Itoa(i)+".bin")
		}
	} else {
		files = append(files, dir+pathSep+"test_batch.bin")
	}

	var images [][]float64
	var labels []int
	for _, path := range files {
		imgs, lbls, err := readCifarBin(path)
		if err != nil {
			return nil, err
		}
		images = append(images, imgs...)
		labels = append(labels, lbls...)
	}

	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}
	return &Cifar10{images: images, labels: labels, batchSize: batchSize, order: order}, nil
}

func readCifarBin(path string) ([][]float64, []int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(raw)%cifarRecordBytes != 0 {
		return nil, nil, checks.ElementCount("cifar10: %s size %d is not a multiple of the %d-byte record", path, len(raw), cifarRecordBytes)
	}
	n := len(raw) / cifarRecordBytes
	images := make([][]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		rec := raw[i*cifarRecordBytes : (i+1)*cifarRecordBytes]
		labels[i] = int(rec[0])
		img := make([]float64, cifarRecordPixels)
		for p := 0; p < cifarRecordPixels; p++ {
			img[p] = float64(rec[1+p]) / 255.0
		}
		images[i] = img
	}
	return images, labels, nil
}

func (c *Cifar10) NumSamples() int { return len(c.images) }
func (c *Cifar10) NumBatches() int {
	return (len(c.images) + c.batchSize - 1) / c.batchSize
}

// Shuffle permutes the in-memory index, per spec.md §6.
func (c *Cifar10) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(c.order), func(i, j int) { c.order[i], c.order[j] = c.order[j], c.order[i] })
}

func (c *Cifar10) GetBatch(i int) (Batch, error) {
	if i < 0 || i >= c.NumBatches() {
		return Batch{}, checks.IndexOutOfRange("cifar10: batch %d out of range [0,%d)", i, c.NumBatches())
	}
	start := i * c.batchSize
	end := start + c.batchSize
	if end > len(c.order) {
		end = len(c.order)
	}
	n := end - start
	data := make([]float64, n*cifarRecordPixels)
	labels := make([]int, n)
	for k := 0; k < n; k++ {
		srcIdx := c.order[start+k]
		copy(data[k*cifarRecordPixels:(k+1)*cifarRecordPixels], c.images[srcIdx])
		labels[k] = c.labels[srcIdx]
	}
	return Batch{
		Shape:  shape.Size{n, cifarChannels, cifarRows, cifarCols},
		Data:   data,
		Labels: labels,
	}, nil
}
