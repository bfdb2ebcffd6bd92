package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ferrycast"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	negativeTotal   *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
	sinkEventsTotal *prometheus.CounterVec
	artifactsLoaded prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a Prometheus recorder registered on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_requests_total",
				Help:      "Forecast requests by mode, target and outcome",
			},
			[]string{"mode", "target", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		backendLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_backend_duration_seconds",
				Help:      "Model server round trip including retries",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"target"},
		),
		negativeTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_negative_predictions_total",
				Help:      "Predictions that denormalized below zero",
			},
			[]string{"target"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_cache_total",
				Help:      "Forecast cache lookups by result",
			},
			[]string{"result"},
		),
		sinkEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_audit_events_total",
				Help:      "Audit events written per backend and outcome",
			},
			[]string{"backend", "status"},
		),
		artifactsLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "forecast_artifacts_loaded",
				Help:      "1 when model artifacts are loaded and predictions can be served",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRequest(mode, target, status string) {
	r.requestsTotal.WithLabelValues(mode, target, status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordBackendLatency(target string, seconds float64) {
	r.backendLatency.WithLabelValues(target).Observe(seconds)
}

func (r *Recorder) RecordNegativePrediction(target string) {
	r.negativeTotal.WithLabelValues(target).Inc()
}

// RecordCache counts a lookup; result is hit, miss or error.
func (r *Recorder) RecordCache(result string) {
	r.cacheTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordSinkWrite(backend string, events int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.sinkEventsTotal.WithLabelValues(backend, status).Add(float64(events))
}

func (r *Recorder) SetArtifactsLoaded(loaded bool) {
	if loaded {
		r.artifactsLoaded.Set(1)
		return
	}
	r.artifactsLoaded.Set(0)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordRequest(string, string, string) {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordBackendLatency(string, float64) {}
func (Nop) RecordNegativePrediction(string)      {}
func (Nop) RecordCache(string)                   {}
func (Nop) RecordSinkWrite(string, int, error)   {}
func (Nop) SetArtifactsLoaded(bool)              {}
func (Nop) RecordLatency(string, float64)        {}
