// Package metrics holds the Prometheus collectors of the adapter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nupi_audio"

// Metrics contains all Prometheus metrics for the audio analysis adapter.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Analysis metrics
	Analyses          *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	DecodeDuration    *prometheus.HistogramVec
	InferenceDuration *prometheus.HistogramVec
	AudioDuration     *prometheus.HistogramVec
	EventsDetected    *prometheus.CounterVec
	SpeechSegments    prometheus.Histogram
	PacingRatio       prometheus.Histogram

	// Model metrics
	ModelLoads  *prometheus.CounterVec
	ModelLoaded *prometheus.GaugeVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default gatherer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by kind and outcome",
		}, []string{"kind", "outcome"}),
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end duration of an analysis",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"kind"}),
		DecodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding and resampling input media",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"model"}),
		InferenceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in model inference",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"model"}),
		AudioDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Duration of analyzed recordings",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		}, []string{"model"}),
		EventsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sound_events_total",
			Help:      "Total number of sound events detected by category",
		}, []string{"category"}),
		SpeechSegments: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speech_segments",
			Help:      "Number of speech segments per recording",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		PacingRatio: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pacing_ratio",
			Help:      "User to reference speech duration ratio",
			Buckets:   []float64{0.75, 0.9, 0.97, 1.03, 1.1, 1.25},
		}),
		ModelLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of model load attempts by outcome",
		}, []string{"model", "outcome"}),
		ModelLoaded: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "Whether a model is currently loaded (1) or not (0)",
		}, []string{"model"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the registry the metrics were created on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordAnalysis records the outcome and duration of one analysis.
func (m *Metrics) RecordAnalysis(kind string, ok bool, durationSeconds float64) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.Analyses.WithLabelValues(kind, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordDecode records decode time and the decoded recording length.
func (m *Metrics) RecordDecode(model string, durationSeconds, audioSeconds float64) {
	m.DecodeDuration.WithLabelValues(model).Observe(durationSeconds)
	m.AudioDuration.WithLabelValues(model).Observe(audioSeconds)
}

// RecordInference records inference time.
func (m *Metrics) RecordInference(model string, durationSeconds float64) {
	m.InferenceDuration.WithLabelValues(model).Observe(durationSeconds)
}

// RecordEvent increments the detected events counter for a category.
func (m *Metrics) RecordEvent(category string) {
	m.EventsDetected.WithLabelValues(category).Inc()
}

// RecordSpeechSegments records the number of segments in one recording.
func (m *Metrics) RecordSpeechSegments(n int) {
	m.SpeechSegments.Observe(float64(n))
}

// RecordPacingRatio records one pacing comparison.
func (m *Metrics) RecordPacingRatio(ratio float64) {
	m.PacingRatio.Observe(ratio)
}

// RecordModelLoad records a model load attempt.
func (m *Metrics) RecordModelLoad(model string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ModelLoads.WithLabelValues(model, outcome).Inc()
	if ok {
		m.ModelLoaded.WithLabelValues(model).Set(1)
	}
}

// RecordModelUnload marks a model as no longer loaded.
func (m *Metrics) RecordModelUnload(model string) {
	m.ModelLoaded.WithLabelValues(model).Set(0)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
