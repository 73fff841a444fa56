package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec
	SessionEvents     *prometheus.CounterVec
	StoreRetries      prometheus.Counter
	RetrievalChunks   prometheus.Histogram
	RunPolls          *prometheus.CounterVec
	SynthesisDuration prometheus.Histogram
	SynthesisBytes    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Interview turns by outcome.",
		}, []string{"outcome"}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session store events by type.",
		}, []string{"event"}),
		StoreRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_store_retries_total",
			Help:      "Transient session store failures that were retried.",
		}),
		RetrievalChunks: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_chunks",
			Help:      "Reference snippets injected per augmented turn.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		}),
		RunPolls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_runs_total",
			Help:      "Assistant runs by terminal state.",
		}, []string{"state"}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_ms",
			Help:      "Speech synthesis duration in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000},
		}),
		SynthesisBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_audio_bytes",
			Help:      "Synthesized audio payload size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

func (m *Metrics) ObserveSynthesis(d time.Duration, audioBytes int) {
	m.SynthesisDuration.Observe(float64(d.Milliseconds()))
	m.SynthesisBytes.Observe(float64(audioBytes))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
