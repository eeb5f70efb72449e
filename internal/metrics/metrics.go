package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	segments       prometheus.Counter
	externalCalls  *prometheus.HistogramVec
	bytesPublished prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelai",
			Name:      "operations_total",
			Help:      "Handler invocations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reelai",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"operation", "stage"}),
		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reelai",
			Name:      "audio_segments_encoded_total",
			Help:      "Audio windows encoded by the extraction pipeline.",
		}),
		externalCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reelai",
			Name:      "external_call_duration_seconds",
			Help:      "Latency of calls to speech, chat and identity services.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"service", "outcome"}),
		bytesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reelai",
			Name:      "audio_bytes_published_total",
			Help:      "Bytes of extracted audio written to object storage.",
		}),
	}
	reg.MustRegister(
		m.operations, m.stageDuration, m.segments, m.externalCalls, m.bytesPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Operation counts one handler outcome (success, skipped, or an error kind).
func (m *Metrics) Operation(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// Stage records how long a pipeline stage took since start.
func (m *Metrics) Stage(op, stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(op, stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SegmentEncoded() {
	if m == nil {
		return
	}
	m.segments.Inc()
}

func (m *Metrics) AudioPublished(bytes int64) {
	if m == nil {
		return
	}
	m.bytesPublished.Add(float64(bytes))
}

// ExternalCall records latency of a remote dependency call.
func (m *Metrics) ExternalCall(service string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.externalCalls.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}
