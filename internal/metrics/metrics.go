package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoteengine_pool_count",
		Help: "Total number of pools in the routing graph",
	})

	PoolUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_pool_updates_total",
		Help: "Total number of pool updates received",
	})

	ReadyPoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoteengine_ready_pool_count",
		Help: "Number of pools routable for trading",
	})

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteengine_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"trade_type", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoteengine_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trade_type"},
	)

	NoRouteTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_no_route_total",
		Help: "Total number of quote requests with no viable route",
	})

	SplitTradesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_split_trades_evaluated_total",
		Help: "Total number of split allocations that produced a candidate trade",
	})

	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	QuoteCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_quote_cache_misses_total",
		Help: "Total number of quote cache misses",
	})

	QuoteCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoteengine_quote_cache_size",
		Help: "Current number of entries in quote cache",
	})

	GraphSnapshotRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_graph_snapshot_rebuilds_total",
		Help: "Total number of graph snapshot rebuilds",
	})

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoteengine_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	// Gas metrics
	GasEstimateUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quoteengine_gas_estimate_units",
		Help:    "Gas units estimated per trade",
		Buckets: []float64{50000, 100000, 200000, 400000, 800000, 1600000},
	})

	GasProbeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_gas_probe_failures_total",
		Help: "Total number of failed on-chain gas probes",
	})

	GasUnpricedTrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_gas_unpriced_trades_total",
		Help: "Trades returned without gas adjustment because no native price reference existed",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteengine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoteengine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Persistence metrics
	PoolsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoteengine_pools_persisted_total",
		Help: "Total number of pools written to the local store",
	})

	PoolsRestored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quoteengine_pools_restored",
		Help: "Number of pools restored from the local store at startup",
	})
)
