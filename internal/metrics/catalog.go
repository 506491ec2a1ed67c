package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "searches_total",
			Help:      "Total number of catalog searches by outcome",
		},
		[]string{"outcome"}, // "found" / "aborted" / "error"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardex",
			Name:      "search_duration_seconds",
			Help:      "Catalog search duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"sort"},
	)

	FeedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "feed_requests_total",
			Help:      "Total number of catalog feed requests",
		},
		[]string{"source", "kind", "status"}, // kind: "manifest" / "chunk"
	)

	FeedRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cardex",
			Name:      "feed_request_duration_seconds",
			Help:      "Catalog feed request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source", "kind"},
	)

	ChunkSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "chunk_sync_total",
			Help:      "Chunks processed by load cycles by result",
		},
		[]string{"result"}, // "fetched" / "cached" / "failed" / "deleted"
	)

	LoadCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cardex",
			Name:      "load_cycles_total",
			Help:      "Completed catalog load cycles by mode",
		},
		[]string{"mode"}, // "online" / "offline" / "error"
	)

	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cardex",
			Name:      "load_duration_seconds",
			Help:      "Catalog load cycle duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	CatalogCards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardex",
			Name:      "catalog_cards",
			Help:      "Number of cards in the live catalog snapshot",
		},
	)

	WorkerSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cardex",
			Name:      "worker_sessions",
			Help:      "Number of running worker sessions",
		},
	)
)

var catalogMetricsRegistered bool

// RegisterCatalogMetrics registers Prometheus catalog metrics. Must be called once from main.
func RegisterCatalogMetrics() {
	if catalogMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(FeedRequestsTotal)
	prometheus.MustRegister(FeedRequestDuration)
	prometheus.MustRegister(ChunkSyncTotal)
	prometheus.MustRegister(LoadCyclesTotal)
	prometheus.MustRegister(LoadDuration)
	prometheus.MustRegister(CatalogCards)
	prometheus.MustRegister(WorkerSessions)
	catalogMetricsRegistered = true
}
