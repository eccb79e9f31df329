package openpose

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "openpose"

// metrics collected by an engine, labelled with the engine id
type metrics struct {
	frames    *prometheus.CounterVec
	inference prometheus.Histogram
	people    prometheus.Histogram
	poolWait  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, engineID string) (*metrics, error) {

	labels := prometheus.Labels{"engine": engineID}

	m := &metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "frames_total",
			Help:        "Frames processed by result status",
			ConstLabels: labels,
		}, []string{"status"}),
		inference: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "inference_seconds",
			Help:        "Time spent in the network forward pass per batch",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		people: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "skeletons_per_frame",
			Help:        "Number of skeletons decoded per frame",
			ConstLabels: labels,
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		poolWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "pool_wait_seconds",
			Help:        "Time spent waiting for a free backend",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.frames, m.inference, m.people, m.poolWait} {
		if err := reg.Register(c); err != nil {
			m.unregister(reg)
			return nil, err
		}
	}

	return m, nil
}

// frame records the outcome of one frame
func (m *metrics) frame(err error) {
	m.frames.WithLabelValues(status(err)).Inc()
}

func status(err error) string {

	var (
		decodeErr    *DecodeError
		inferenceErr *InferenceError
		assemblyErr  *DecodeAssemblyError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &inferenceErr):
		return "inference_error"
	case errors.As(err, &assemblyErr):
		return "assembly_error"
	}

	return "error"
}

func (m *metrics) unregister(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{m.frames, m.inference, m.people, m.poolWait} {
		reg.Unregister(c)
	}
}
