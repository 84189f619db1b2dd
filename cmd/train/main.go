// Command train runs an end-to-end MNIST/CIFAR-10 training loop over this
// engine's Conv2d/MaxPool2d/Linear modules, grounded in the teacher's
// examples/classification/main.go (dataset -> model.Forward -> loss ->
// Backward -> optimizer.Step loop shape) adapted to tensorgrad's
// batch-yielding pkg/dataset readers and config-driven model selection.
package main

import (
	"flag"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/stat"

	"github.com/Hirogava/tensorgrad/internal/telemetry"
	"github.com/Hirogava/tensorgrad/pkg/alloc"
	"github.com/Hirogava/tensorgrad/pkg/autograd"
	"github.com/Hirogava/tensorgrad/pkg/config"
	"github.com/Hirogava/tensorgrad/pkg/dataset"
	"github.com/Hirogava/tensorgrad/pkg/nn"
	"github.com/Hirogava/tensorgrad/pkg/optim"
	"github.com/Hirogava/tensorgrad/pkg/shape"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON config file (defaults applied if empty)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		telemetry.Log.Fatal().Err(err).Msg("loading config")
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(alloc.Default.Collectors()...)
		reg.MustRegister(telemetry.Collectors()...)
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			telemetry.Log.Info().Str("addr", *metricsAddr).Msg("serving prometheus metrics")
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				telemetry.Log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	ds, err := buildDataset(cfg.Data)
	if err != nil {
		telemetry.Log.Fatal().Err(err).Msg("opening dataset")
	}
	ds = dataset.WithBatchCache(ds, cfg.Data.CacheSize)

	rng := rand.New(rand.NewSource(cfg.Training.Seed))
	model := buildModel(cfg.Model, rng)
	loss := nn.NewCrossEntropy()

	opt := buildOptimizer(cfg.Training, model)
	engine := autograd.NewEngine()

	for epoch := 0; epoch < cfg.Training.Epochs; epoch++ {
		if cfg.Data.Shuffle {
			ds.Shuffle(rng)
		}
		batchLosses := make([]float64, 0, ds.NumBatches())
		for b := 0; b < ds.NumBatches(); b++ {
			batch, err := ds.GetBatch(b)
			if err != nil {
				telemetry.Log.Fatal().Err(err).Int("batch", b).Msg("reading batch")
			}
			x, err := tensor.FromData(batch.Data, batch.Shape, false)
			if err != nil {
				telemetry.Log.Fatal().Err(err).Msg("building input tensor")
			}

			logits, err := model.Forward(x)
			if err != nil {
				telemetry.Log.Fatal().Err(err).Msg("forward pass")
			}
			lossTensor, err := loss.Forward(logits, batch.Labels)
			if err != nil {
				telemetry.Log.Fatal().Err(err).Msg("loss forward")
			}

			opt.ZeroGrad()
			if err := engine.Backward(lossTensor); err != nil {
				telemetry.Log.Fatal().Err(err).Msg("backward pass")
			}
			opt.Step()
			telemetry.TrainStepsTotal.Inc()

			v, _ := lossTensor.Item()
			batchLosses = append(batchLosses, v)
		}
		mean, std := stat.MeanStdDev(batchLosses, nil)
		telemetry.Log.Info().
			Int("epoch", epoch).
			Float64("avg_loss", mean).
			Float64("loss_stddev", std).
			Msg("epoch complete")
	}
}

// convModel is the small Conv2dWithReLU -> MaxPool2d -> Linear network
// cfg.Model.Name == "convnet" builds.
type convModel struct {
	conv   *nn.Conv2dWithReLU
	pool   *nn.MaxPool2d
	linear *nn.Linear
	flatIn int
}

func (m *convModel) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	h, err := m.conv.Forward(x)
	if err != nil {
		return nil, err
	}
	h, err = m.pool.Forward(h)
	if err != nil {
		return nil, err
	}
	hs := h.Shape()
	flat, err := h.View(shape.Size{hs[0], m.flatIn})
	if err != nil {
		return nil, err
	}
	return m.linear.Forward(flat)
}

func (m *convModel) Parameters() map[string]*tensor.Tensor {
	merged := map[string]*tensor.Tensor{}
	for k, v := range m.conv.Parameters() {
		merged["conv."+k] = v
	}
	for k, v := range m.linear.Parameters() {
		merged["linear."+k] = v
	}
	return merged
}

// mlpModel is the plain stacked-Linear network cfg.Model.Name == "mlp" builds.
type mlpModel struct {
	layers []*nn.LinearWithReLU
	final  *nn.Linear
	flatIn int
}

func (m *mlpModel) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	xs := x.Shape()
	h, err := x.View(shape.Size{xs[0], m.flatIn})
	if err != nil {
		return nil, err
	}
	cur := h
	for _, l := range m.layers {
		cur, err = l.Forward(cur)
		if err != nil {
			return nil, err
		}
	}
	return m.final.Forward(cur)
}

func (m *mlpModel) Parameters() map[string]*tensor.Tensor {
	merged := map[string]*tensor.Tensor{}
	for i, l := range m.layers {
		for k, v := range l.Parameters() {
			merged["hidden"+strconv.Itoa(i)+"."+k] = v
		}
	}
	for k, v := range m.final.Parameters() {
		merged["final."+k] = v
	}
	return merged
}

type forwardModule interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() map[string]*tensor.Tensor
}

func buildModel(m config.ModelConfig, rng *rand.Rand) forwardModule {
	if m.Name == "mlp" {
		var layers []*nn.LinearWithReLU
		in := m.InputSize
		for _, hidden := range m.HiddenSizes {
			layers = append(layers, nn.NewLinearWithReLU(in, hidden, rng))
			in = hidden
		}
		return &mlpModel{layers: layers, final: nn.NewLinear(in, m.OutputSize, rng), flatIn: m.InputSize}
	}

	conv := nn.NewConv2dWithReLU(m.InChannels, m.HiddenSizes[0], m.ConvKernel, m.ConvKernel, m.ConvStride, m.ConvStride, m.ConvPadding, m.ConvPadding, rng)
	pool := nn.NewMaxPool2d(m.PoolKernel, m.PoolKernel, m.PoolStride, m.PoolStride, 0, 0)
	side := inferSide(m.InputSize)
	convOut := outDim(side, m.ConvKernel, m.ConvStride, m.ConvPadding)
	poolOut := outDim(convOut, m.PoolKernel, m.PoolStride, 0)
	flatIn := m.HiddenSizes[0] * poolOut * poolOut
	return &convModel{conv: conv, pool: pool, linear: nn.NewLinear(flatIn, m.OutputSize, rng), flatIn: flatIn}
}

func outDim(size, k, s, p int) int { return (size+2*p-k)/s + 1 }

// inferSide recovers the square image side length from a flattened pixel
// count (e.g. 784 -> 28), the convention MNIST-shaped configs use.
func inferSide(inputSize int) int {
	side := 1
	for side*side < inputSize {
		side++
	}
	return side
}

func buildOptimizer(t config.TrainingConfig, m forwardModule) optim.Optimizer {
	params := m.Parameters()
	if t.Optimizer == "momentum" {
		return optim.NewSGDWithMomentum(t.LR, t.Momentum, params)
	}
	return optim.NewSGD(t.LR, params)
}

func buildDataset(d config.DataConfig) (dataset.Dataset, error) {
	if d.Kind == "cifar10" {
		return dataset.NewCifar10(d.Path, true, d.BatchSize, d.PathSep)
	}
	return dataset.NewMNIST(d.Path, d.LabelPath, d.BatchSize)
}
