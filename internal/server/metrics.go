package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelhub_search_requests_total",
		Help: "Search requests by search type and outcome.",
	}, []string{"search_type", "status"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intelhub_search_duration_seconds",
		Help:    "Search request latency.",
		Buckets: prometheus.DefBuckets,
	})

	searchFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intelhub_search_fallbacks_total",
		Help: "Semantic or hybrid searches answered by the keyword fallback.",
	})

	embeddingsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intelhub_embeddings_generated_total",
		Help: "Embeddings generated, single and batch.",
	})
)
