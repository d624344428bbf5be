// Package metrics provides Prometheus metrics for the transaction engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (aggregate only)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tx_engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tx_engine_queue_depth",
			Help: "Number of transactions currently in a queue",
		},
		[]string{"queue"}, // "pending" or "processing"
	)

	// Lifecycle counters
	TransactionsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_transactions_enqueued_total",
			Help: "Total number of transactions enqueued",
		},
		[]string{"account"},
	)

	TransactionsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_transactions_submitted_total",
			Help: "Total number of transactions accepted by the gateway for gossip",
		},
		[]string{"account"},
	)

	TransactionsConfirmedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_transactions_confirmed_total",
			Help: "Total number of transactions finalized without error",
		},
		[]string{"account"},
	)

	TransactionsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_transactions_failed_total",
			Help: "Total number of transactions that ended in Failed",
		},
		[]string{"account", "reason"}, // submit_rejected, extrinsic_failed, account_missing, retries_exhausted
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_retries_total",
			Help: "Total number of transactions reissued from Failed back to Pending",
		},
		[]string{"account"},
	)

	NonceRollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_engine_nonce_rollbacks_total",
			Help: "Total number of pre-submission nonce rollbacks",
		},
		[]string{"account"},
	)

	// Per-account nonce gauge, useful for spotting gaps from the outside
	AccountNonce = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tx_engine_account_nonce",
			Help: "Current local next-nonce value for an account",
		},
		[]string{"account"},
	)

	GatewayRPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tx_engine_gateway_rpc_duration_seconds",
			Help:    "Latency of calls made to the chain gateway",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method"},
	)
)
