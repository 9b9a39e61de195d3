// Package metrics holds the tool's Prometheus counters. They live on a private
// registry and are exported to a node-exporter textfile rather than served.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "txrisk"

// Registry collects every metric in this package.
var Registry = prometheus.NewRegistry()

var (
	// RecordsLoadedTotal counts dataset rows read during bootstrap
	RecordsLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_loaded_total",
		Help:      "Historical transaction records loaded from the dataset.",
	})

	// DocumentsIndexedTotal counts documents written to the similarity store
	DocumentsIndexedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_indexed_total",
		Help:      "Documents written to the similarity store.",
	})

	// EmbeddingsGeneratedTotal counts successful embedding generations
	EmbeddingsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embeddings_generated_total",
		Help:      "Texts embedded successfully.",
	})

	// EmbeddingsFailedTotal counts failed embedding requests
	EmbeddingsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embeddings_failed_total",
		Help:      "Embedding requests that failed.",
	})

	// RetrievalsTotal counts context lookups by outcome: ok, empty, error, disabled.
	RetrievalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrievals_total",
		Help:      "Similar-transaction lookups by outcome.",
	}, []string{"result"})

	// InferenceRequestsTotal counts model calls by outcome: ok, error.
	InferenceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inference_requests_total",
		Help:      "Text-generation calls by outcome.",
	}, []string{"result"})

	// InferenceDuration observes model call latency.
	InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Text-generation call duration in seconds.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	})

	// DecisionsTotal counts decisions parsed from model output.
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Decisions found in model output (unparsed output counts as \"unknown\").",
	}, []string{"decision"})

	// InvalidInputTotal counts pasted inputs that were not valid JSON
	InvalidInputTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_input_total",
		Help:      "User inputs rejected as invalid JSON.",
	})
)

func init() {
	Registry.MustRegister(
		RecordsLoadedTotal,
		DocumentsIndexedTotal,
		EmbeddingsGeneratedTotal,
		EmbeddingsFailedTotal,
		RetrievalsTotal,
		InferenceRequestsTotal,
		InferenceDuration,
		DecisionsTotal,
		InvalidInputTotal,
	)
}

// WriteTextfile writes the current values to path in the text exposition
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
