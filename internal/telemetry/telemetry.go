// Package telemetry wires the structured-logging and metrics surface
// cmd/train and pkg/autograd use, grounded in the teacher's
// pkg/logger.Log (a zerolog console logger) extended with the
// prometheus.Collector style pkg/alloc already registers its counters in.
package telemetry

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Log is the process-wide structured logger, a console writer over stderr
// with caller info attached, matching the teacher's logger package.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Caller().Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// BackwardDuration observes how long one backward() traversal took,
// registered by cmd/train alongside pkg/alloc's collectors.
var BackwardDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "tensorgrad_backward_seconds",
	Help:    "Wall-clock duration of a single Tensor.Backward traversal.",
	Buckets: prometheus.DefBuckets,
})

// TrainStepsTotal counts completed optimizer steps.
var TrainStepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "tensorgrad_train_steps_total",
	Help: "Total number of optimizer Step() calls completed.",
})

// Collectors returns every metric this package registers, for cmd/train to
// hand to a prometheus.Registerer alongside pkg/alloc.Default.Collectors().
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{BackwardDuration, TrainStepsTotal}
}
