package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and recommendation pipeline metrics.
var (
	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_batches_total",
			Help:      "Ingestion batches by outcome",
		},
		[]string{"status"}, // "ok" / "error" / "skipped"
	)

	IngestItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_items_total",
			Help:      "Catalog items processed by ingestion",
		},
		[]string{"status"},
	)

	IngestRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a full ingestion run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	VectorStoreRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vector_store_records",
			Help:      "Records held by the vector store after the last ingestion run",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation queries by parse status",
		},
		[]string{"status"}, // "ok" / "recovered" / "fallback" / "empty"
	)

	RetrievedMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_matches",
			Help:      "Number of matches returned by similarity search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingestion and recommendation metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(IngestItemsTotal)
	prometheus.MustRegister(IngestRunDuration)
	prometheus.MustRegister(VectorStoreRecords)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(RetrievedMatches)
	pipelineMetricsRegistered = true
}
