package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing pipeline Prometheus metrics.
var (
	WarehouseRowsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "warehouse_rows_fetched_total",
			Help:      "Total warehouse rows fetched, excluding header rows",
		},
		[]string{"extraction"},
	)

	DocumentsIndexed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "documents_indexed_total",
			Help:      "Documents written to the search indices",
		},
		[]string{"index", "outcome"}, // index: metadata|vector; outcome: created|updated
	)

	QueueMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "queue_messages_total",
			Help:      "Queue messages by queue and result",
		},
		[]string{"queue", "result"}, // result: sent|received|retried|dead_lettered
	)

	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "messages_processed_total",
			Help:      "Consumer messages by handler and status",
		},
		[]string{"handler", "status"}, // handler: resume|bfq; status: ok|skipped|error
	)

	EmbeddingChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "embedding_chunks_total",
			Help:      "Resume chunks by embedding outcome",
		},
		[]string{"outcome"}, // embedded|dim_mismatch|error
	)

	SummarizerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "candidate_indexer",
			Name:      "summarizer_fallbacks_total",
			Help:      "Summarization failures that fell back to raw text",
		},
	)

	ExtractionStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "candidate_indexer",
			Name:      "extraction_step_duration_seconds",
			Help:      "Duration of one bounded extraction invocation",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"extraction"},
	)
)

var registered bool

// Register registers the pipeline metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(WarehouseRowsFetched)
	prometheus.MustRegister(DocumentsIndexed)
	prometheus.MustRegister(QueueMessages)
	prometheus.MustRegister(MessagesProcessed)
	prometheus.MustRegister(EmbeddingChunks)
	prometheus.MustRegister(SummarizerFallbacks)
	prometheus.MustRegister(ExtractionStepDuration)
	registered = true
}
