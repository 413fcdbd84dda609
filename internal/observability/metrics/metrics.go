// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ev_faq_dialogue"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsClosed  *prometheus.CounterVec
	SessionDuration prometheus.Histogram

	// Turn metrics
	PartialUpdates       *prometheus.CounterVec
	UtterancesFinalized  *prometheus.CounterVec
	EmptyPartialsIgnored prometheus.Counter

	// Gateway metrics
	IngressFramesRejected prometheus.Counter

	// Retrieval metrics
	RetrievalRequests prometheus.Counter
	RetrievalEmpty    prometheus.Counter
	RetrievalErrors   prometheus.Counter
	RetrievalLatency  prometheus.Histogram

	// Index metrics
	IndexEntries       prometheus.Gauge
	IndexBuilds        *prometheus.CounterVec
	IndexBuildDuration prometheus.Histogram

	// Embedding metrics
	EmbeddingRequests *prometheus.CounterVec
	EmbeddingErrors   *prometheus.CounterVec
	EmbeddingLatency  *prometheus.HistogramVec

	// Generation metrics
	GenerationRequests prometheus.Counter
	GenerationErrors   prometheus.Counter
	GenerationLatency  prometheus.Histogram

	// Signal metrics
	StatusEmitted      *prometheus.CounterVec
	StatusSuppressed   prometheus.Counter
	FarewellsArmed     prometheus.Counter
	FarewellsCancelled prometheus.Counter
	TransfersRequested prometheus.Counter

	// TTS metrics
	TTSRequests prometheus.Counter
	TTSErrors   prometheus.Counter
	TTSLatency  prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of dialogue sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active dialogue sessions",
		}),
		SessionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed",
		}, []string{"reason"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of dialogue sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		// Turn metrics
		PartialUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_updates_total",
			Help:      "Total number of partial transcript updates accepted",
		}, []string{"speaker"}),
		UtterancesFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_finalized_total",
			Help:      "Total number of utterances appended to transcripts",
		}, []string{"speaker"}),
		EmptyPartialsIgnored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_partials_ignored_total",
			Help:      "Total number of empty partial transcripts dropped",
		}),

		// Gateway metrics
		IngressFramesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_frames_rejected_total",
			Help:      "Total number of client frames rejected at the edge",
		}),

		// Retrieval metrics
		RetrievalRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_requests_total",
			Help:      "Total number of FAQ index searches",
		}),
		RetrievalEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_empty_total",
			Help:      "Total number of searches that returned no hits",
		}),
		RetrievalErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_errors_total",
			Help:      "Total number of failed searches",
		}),
		RetrievalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_latency_seconds",
			Help:      "FAQ search latency in seconds, including query embedding",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		// Index metrics
		IndexEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Number of FAQ entries in the active index",
		}),
		IndexBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Total number of index build attempts",
		}, []string{"outcome"}),
		IndexBuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Duration of index builds in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),

		// Embedding metrics
		EmbeddingRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		}, []string{"provider"}),
		EmbeddingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_errors_total",
			Help:      "Total number of embedding errors",
		}, []string{"provider"}),
		EmbeddingLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_latency_seconds",
			Help:      "Embedding request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),

		// Generation metrics
		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of LLM generation requests",
		}),
		GenerationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_errors_total",
			Help:      "Total number of failed LLM generations",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "LLM generation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),

		// Signal metrics
		StatusEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_emitted_total",
			Help:      "Total number of status updates emitted",
		}, []string{"status_type"}),
		StatusSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_suppressed_total",
			Help:      "Total number of duplicate status transitions suppressed",
		}),
		FarewellsArmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "farewells_armed_total",
			Help:      "Total number of goodbye detections that armed the close timer",
		}),
		FarewellsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "farewells_cancelled_total",
			Help:      "Total number of armed farewells cancelled before expiry",
		}),
		TransfersRequested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_requested_total",
			Help:      "Total number of human-transfer requests emitted",
		}),

		// TTS metrics
		TTSRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Total number of speech synthesis requests",
		}),
		TTSErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_errors_total",
			Help:      "Total number of failed speech synthesis requests",
		}),
		TTSLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_latency_seconds",
			Help:      "Speech synthesis latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(reason string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordPartialUpdate records an accepted partial transcript update.
func (m *Metrics) RecordPartialUpdate(speaker string) {
	m.PartialUpdates.WithLabelValues(speaker).Inc()
}

// RecordUtteranceFinalized records an utterance appended to a transcript.
func (m *Metrics) RecordUtteranceFinalized(speaker string) {
	m.UtterancesFinalized.WithLabelValues(speaker).Inc()
}

// RecordEmptyPartialIgnored records an empty partial being dropped.
func (m *Metrics) RecordEmptyPartialIgnored() {
	m.EmptyPartialsIgnored.Inc()
}

// RecordIngressRejected records a client frame rejected by validation.
func (m *Metrics) RecordIngressRejected() {
	m.IngressFramesRejected.Inc()
}

// RecordRetrieval records a FAQ search attempt.
func (m *Metrics) RecordRetrieval(hits int, err error, latencySeconds float64) {
	m.RetrievalRequests.Inc()
	m.RetrievalLatency.Observe(latencySeconds)
	if err != nil {
		m.RetrievalErrors.Inc()
		return
	}
	if hits == 0 {
		m.RetrievalEmpty.Inc()
	}
}

// RecordIndexBuild records an index build attempt.
func (m *Metrics) RecordIndexBuild(entries int, err error, durationSeconds float64) {
	m.IndexBuildDuration.Observe(durationSeconds)
	if err != nil {
		m.IndexBuilds.WithLabelValues("error").Inc()
		return
	}
	m.IndexBuilds.WithLabelValues("success").Inc()
	m.IndexEntries.Set(float64(entries))
}

// RecordEmbedding records an embedding request.
func (m *Metrics) RecordEmbedding(provider string, err error, latencySeconds float64) {
	m.EmbeddingRequests.WithLabelValues(provider).Inc()
	m.EmbeddingLatency.WithLabelValues(provider).Observe(latencySeconds)
	if err != nil {
		m.EmbeddingErrors.WithLabelValues(provider).Inc()
	}
}

// RecordGeneration records an LLM generation attempt.
func (m *Metrics) RecordGeneration(err error, latencySeconds float64) {
	m.GenerationRequests.Inc()
	m.GenerationLatency.Observe(latencySeconds)
	if err != nil {
		m.GenerationErrors.Inc()
	}
}

// RecordStatusEmitted records a status update sent to the client.
func (m *Metrics) RecordStatusEmitted(statusType string) {
	m.StatusEmitted.WithLabelValues(statusType).Inc()
}

// RecordStatusSuppressed records a duplicate status transition being dropped.
func (m *Metrics) RecordStatusSuppressed() {
	m.StatusSuppressed.Inc()
}

// RecordFarewellArmed records a goodbye detection arming the close timer.
func (m *Metrics) RecordFarewellArmed() {
	m.FarewellsArmed.Inc()
}

// RecordFarewellCancelled records an armed farewell being cancelled.
func (m *Metrics) RecordFarewellCancelled() {
	m.FarewellsCancelled.Inc()
}

// RecordTransferRequested records a human-transfer request.
func (m *Metrics) RecordTransferRequested() {
	m.TransfersRequested.Inc()
}

// RecordTTS records a speech synthesis attempt.
func (m *Metrics) RecordTTS(err error, latencySeconds float64) {
	m.TTSRequests.Inc()
	m.TTSLatency.Observe(latencySeconds)
	if err != nil {
		m.TTSErrors.Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
