package dataset

import (
	"encoding/binary"
	"math/rand"
	"os"

	"github.com/Hirogava/tensorgrad/pkg/checks"
	"github.com/Hirogava/tensorgrad/pkg/shape"
)

const (
	mnistImageMagic = 2051
	mnistLabelMagic = 2049
	mnistRows       = 28
	mnistCols       = 28
)

// MNIST reads the IDX-ubyte image/label file pair, grounded in
// original_source's data.hpp MNIST class (read_mnist_images /
// read_mnist_labels, batch_size_, n_batchs_).
type MNIST struct {
	images    [][]float64 // each of length mnistRows*mnistCols, pixel values in [0,1]
	labels    []int
	batchSize int
	order     []int
}

// NewMNIST reads imgPath/labelPath (the standard IDX-ubyte format) and
// builds a batch-yielding reader with the given batch size.
func NewMNIST(imgPath, labelPath string, batchSize int) (*MNIST, error) {
	images, err := readMNISTImages(imgPath)
	if err != nil {
		return nil, err
	}
	labels, err := readMNISTLabels(labelPath)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, checks.ElementCount("mnist: %d images but %d labels", len(images), len(labels))
	}
	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}
	return &MNIST{images: images, labels: labels, batchSize: batchSize, order: order}, nil
}

func readMNISTImages(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header [4]uint32
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if header[0] != mnistImageMagic {
		return nil, checks.Equal(int(header[0]), mnistImageMagic, "mnist image file %s has wrong magic", path)
	}
	n, rows, cols := int(header[1]), int(header[2]), int(header[3])
	pixelsPerImage := rows * cols
	raw := make([]byte, n*pixelsPerImage)
	if _, err := readFull(f, raw); err != nil {
		return nil, err
	}
	images := make([][]float64, n)
	for i := 0; i < n; i++ {
		img := make([]float64, pixelsPerImage)
		base := i * pixelsPerImage
		for p := 0; p < pixelsPerImage; p++ {
			img[p] = float64(raw[base+p]) / 255.0
		}
		images[i] = img
	}
	return images, nil
}

func readMNISTLabels(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header [2]uint32
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		return nil, err
	}
	if header[0] != mnistLabelMagic {
		return nil, checks.Equal(int(header[0]), mnistLabelMagic, "mnist label file %s has wrong magic", path)
	}
	n := int(header[1])
	raw := make([]byte, n)
	if _, err := readFull(f, raw); err != nil {
		return nil, err
	}
	labels := make([]int, n)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *MNIST) NumSamples() int { return len(m.images) }
func (m *MNIST) NumBatches() int {
	return (len(m.images) + m.batchSize - 1) / m.batchSize
}

// Shuffle permutes the in-memory index, per spec.md §6.
func (m *MNIST) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(m.order), func(i, j int) { m.order[i], m.order[j] = m.order[j], m.order[i] })
}

func (m *MNIST) GetBatch(i int) (Batch, error) {
	if i < 0 || i >= m.NumBatches() {
		return Batch{}, checks.IndexOutOfRange("mnist: batch %d out of range [0,%d)", i, m.NumBatches())
	}
	start := i * m.batchSize
	end := start + m.batchSize
	if end > len(m.order) {
		end = len(m.order)
	}
	n := end - start
	pixelsPerImage := mnistRows * mnistCols
	data := make([]float64, n*pixelsPerImage)
	labels := make([]int, n)
	for k := 0; k < n; k++ {
		srcIdx := m.order[start+k]
		copy(data[k*pixelsPerImage:(k+1)*pixelsPerImage], m.images[srcIdx])
		labels[k] = m.labels[srcIdx]
	}
	return Batch{
		Shape:  shape.Size{n, 1, mnistRows, mnistCols},
		Data:   data,
		Labels: labels,
	}, nil
}
