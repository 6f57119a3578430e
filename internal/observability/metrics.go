// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	ListingsReceived     prometheus.Counter
	PriceUpdatesReceived prometheus.Counter
	FeedErrors           *prometheus.CounterVec

	// Detection metrics
	OpportunitiesDetected *prometheus.CounterVec
	ActiveOpportunities   prometheus.Gauge

	// Execution metrics
	TradesExecuted  *prometheus.CounterVec
	TradesConfirmed *prometheus.CounterVec
	TradesFailed    *prometheus.CounterVec
	TradesRejected  *prometheus.CounterVec
	ActiveTrades    prometheus.Gauge

	// Latency metrics
	ConfirmationDuration *prometheus.HistogramVec
	RPCCallLatency       *prometheus.HistogramVec

	// Tracker metrics
	TrackedSubmissions *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpswap_sniper"
	}

	return &Metrics{
		// Feed metrics
		ListingsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "listings_received_total",
			Help:      "Total number of token listings received",
		}),
		PriceUpdatesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "price_updates_received_total",
			Help:      "Total number of price updates received",
		}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed errors by stream",
		}, []string{"stream"}),

		// Detection metrics
		OpportunitiesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "opportunities_detected_total",
			Help:      "Total number of opportunities detected by strategy",
		}, []string{"strategy"}),
		ActiveOpportunities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "active_opportunities",
			Help:      "Current number of live opportunities",
		}),

		// Execution metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_executed_total",
			Help:      "Total number of trades submitted by backend",
		}, []string{"backend"}),
		TradesConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_confirmed_total",
			Help:      "Total number of trades confirmed by backend",
		}, []string{"backend"}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_failed_total",
			Help:      "Total number of trades failed or timed out by backend",
		}, []string{"backend"}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_rejected_total",
			Help:      "Total number of trades rejected before submission by reason",
		}, []string{"reason"}),
		ActiveTrades: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "active_trades",
			Help:      "Current number of in-flight trades",
		}),

		// Latency metrics
		ConfirmationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "confirmation_duration_seconds",
			Help:      "Time from submission to terminal status in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"backend"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Tracker metrics
		TrackedSubmissions: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "submissions",
			Help:      "Number of tracked submissions by backend",
		}, []string{"backend"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts the metrics HTTP server on addr. Blocks until the server
// stops; intended to run in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
