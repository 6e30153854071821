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
	// Command metrics
	CommandsHandled *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	WalletsCreated    prometheus.Counter

	// Network metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	TxNotifications *prometheus.CounterVec
	WSReconnects    prometheus.Counter

	// Pricing metrics
	PriceCacheHits   prometheus.Counter
	PriceCacheMisses prometheus.Counter

	// Transport metrics
	InteractionsReceived *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "l2_tipbot"
	}

	return &Metrics{
		CommandsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_handled_total",
			Help:      "Total number of commands handled by kind and response kind",
		}, []string{"command", "response"}),
		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"command"}),

		ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intent",
			Name:      "executions_total",
			Help:      "Total number of confirmed executions by kind and status",
		}, []string{"kind", "status"}),
		ExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "intent",
			Name:      "execution_duration_seconds",
			Help:      "Time from confirm to submission result in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		WalletsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "created_total",
			Help:      "Total number of custodial wallets created",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "l2",
			Name:      "rpc_call_latency_seconds",
			Help:      "L2 JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "l2",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed L2 JSON-RPC calls",
		}, []string{"method"}),
		TxNotifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "l2",
			Name:      "tx_notifications_total",
			Help:      "Total number of transaction notifications by outcome",
		}, []string{"outcome"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "l2",
			Name:      "ws_reconnects_total",
			Help:      "Total number of notification stream reconnects",
		}),

		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_hits_total",
			Help:      "Total number of price lookups served from cache",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_misses_total",
			Help:      "Total number of price lookups forwarded to the network",
		}),

		InteractionsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "interactions_received_total",
			Help:      "Total number of interactions received by type",
		}, []string{"type"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCommand records one handled command.
func RecordCommand(command, response string, seconds float64) {
	DefaultMetrics.CommandsHandled.WithLabelValues(command, response).Inc()
	DefaultMetrics.CommandDuration.WithLabelValues(command).Observe(seconds)
}

// RecordExecution records one confirmed execution attempt.
func RecordExecution(kind, status string, seconds float64) {
	DefaultMetrics.ExecutionsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.ExecutionDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordWalletCreated increments the wallets created counter.
func RecordWalletCreated() {
	DefaultMetrics.WalletsCreated.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError increments the failed RPC call counter.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordTxNotification records a transaction notification outcome.
func RecordTxNotification(outcome string) {
	DefaultMetrics.TxNotifications.WithLabelValues(outcome).Inc()
}

// RecordWSReconnect increments the reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordPriceLookup records a cache hit or miss.
func RecordPriceLookup(hit bool) {
	if hit {
		DefaultMetrics.PriceCacheHits.Inc()
		return
	}
	DefaultMetrics.PriceCacheMisses.Inc()
}

// RecordInteraction records a received interaction.
func RecordInteraction(kind string) {
	DefaultMetrics.InteractionsReceived.WithLabelValues(kind).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
