// SPDX-License-Identifier: MIT
package fft

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the analysis pipelines. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	componentsLive    prometheus.Gauge
	componentsCreated prometheus.Counter
	batchesTotal      *prometheus.CounterVec
	droppedFrames     *prometheus.CounterVec
	unsupportedChunks *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
}

// NewMetrics creates the pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		componentsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shaderfx_fft_components_live",
			Help: "Number of analysis components currently referenced by at least one consumer",
		}),
		componentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shaderfx_fft_components_created_total",
			Help: "Total number of analysis components created, cold restarts included",
		}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shaderfx_fft_batches_total",
			Help: "Total number of completed spectral analyses",
		}, []string{"mix", "channel"}),
		droppedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shaderfx_fft_dropped_frames_total",
			Help: "Frames of audio discarded unanalyzed by the backlog policy",
		}, []string{"mix", "channel"}),
		unsupportedChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shaderfx_fft_unsupported_chunks_total",
			Help: "Audio chunks ignored because of their sample format",
		}, []string{"format"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shaderfx_fft_analysis_duration_seconds",
			Help:    "Time spent in windowing, FFT and damping per batch",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
		}, []string{"mix", "channel"}),
	}

	for _, c := range []prometheus.Collector{
		m.componentsLive,
		m.componentsCreated,
		m.batchesTotal,
		m.droppedFrames,
		m.unsupportedChunks,
		m.analysisDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func labels(d Descriptor) []string {
	return []string{strconv.FormatUint(uint64(d.Mix), 10), strconv.FormatUint(uint64(d.Channel), 10)}
}

func (m *Metrics) componentCreated() {
	if m == nil {
		return
	}
	m.componentsCreated.Inc()
	m.componentsLive.Inc()
}

func (m *Metrics) componentReleased() {
	if m == nil {
		return
	}
	m.componentsLive.Dec()
}

func (m *Metrics) batch(d Descriptor, took time.Duration) {
	if m == nil {
		return
	}
	l := labels(d)
	m.batchesTotal.WithLabelValues(l...).Inc()
	m.analysisDuration.WithLabelValues(l...).Observe(took.Seconds())
}

func (m *Metrics) dropped(d Descriptor, frames int) {
	if m == nil {
		return
	}
	m.droppedFrames.WithLabelValues(labels(d)...).Add(float64(frames))
}

func (m *Metrics) unsupported(f SampleFormat) {
	if m == nil {
		return
	}
	m.unsupportedChunks.WithLabelValues(f.String()).Inc()
}
