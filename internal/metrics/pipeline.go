package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and retrieval pipeline Prometheus metrics.
var (
	CrawlPagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rura",
			Name:      "crawl_pages_total",
			Help:      "Total number of crawled pages",
		},
		[]string{"status"},
	)

	CrawlDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rura",
			Name:      "crawl_duration_seconds",
			Help:      "Full sitemap crawl duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rura",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rura",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rura",
			Name:      "generation_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"model", "status"},
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rura",
			Name:      "ingest_jobs_total",
			Help:      "Total number of ingestion jobs",
		},
		[]string{"status"},
	)

	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rura",
			Name:      "ingest_documents_total",
			Help:      "Total number of documents pushed through ingestion",
		},
		[]string{"status"},
	)

	EncodeQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rura",
			Name:      "encode_queue_depth",
			Help:      "Documents waiting in the embedding worker queue",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CrawlPagesTotal)
	prometheus.MustRegister(CrawlDuration)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(IngestJobsTotal)
	prometheus.MustRegister(IngestDocumentsTotal)
	prometheus.MustRegister(EncodeQueueDepth)
	pipelineMetricsRegistered = true
}
