package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for a harvesting run.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Solana RPC Metrics
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Transaction Processing Metrics
	transactionsFetchedTotal     *prometheus.CounterVec
	transactionsSkippedTotal     *prometheus.CounterVec
	transactionsUnavailableTotal *prometheus.CounterVec
	mintsPerTransaction          *prometheus.HistogramVec

	// Cache Metrics
	cacheEntries     prometheus.Gauge
	cacheWriteErrors prometheus.Counter

	// Export Metrics
	natsMessagesPublished *prometheus.CounterVec
	dbRowsWritten         *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures fetched per getSignaturesForAddress call",
				Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),

		// Transaction Processing Metrics
		transactionsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_fetched_total",
				Help: "Total number of transactions fetched from Solana",
			},
			[]string{"wallet_address", "flow"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_skipped_total",
				Help: "Total number of transactions skipped",
			},
			[]string{"wallet_address", "reason"},
		),
		transactionsUnavailableTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transactions_unavailable_total",
				Help: "Total number of transactions the node returned no result for",
			},
			[]string{"wallet_address"},
		),
		mintsPerTransaction: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mints_per_transaction",
				Help:    "Number of distinct mints extracted per transaction",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
			},
			[]string{"flow"},
		),

		// Cache Metrics
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_entries",
				Help: "Number of signatures held in the transaction cache",
			},
		),
		cacheWriteErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_write_errors_total",
				Help: "Total number of failed cache file writes",
			},
		),

		// Export Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		dbRowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_rows_written_total",
				Help: "Total number of cache entries exported to the database",
			},
			[]string{"table", "status"},
		),
	}
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// Transaction processing metric helpers

// RecordTransactionFetched records one transaction fetched by a flow ("sync" or "dump").
func (m *Metrics) RecordTransactionFetched(walletAddress, flow string) {
	m.transactionsFetchedTotal.WithLabelValues(walletAddress, flow).Inc()
}

// RecordTransactionsSkipped records transactions skipped.
func (m *Metrics) RecordTransactionsSkipped(walletAddress, reason string, count int) {
	m.transactionsSkippedTotal.WithLabelValues(walletAddress, reason).Add(float64(count))
}

// RecordTransactionUnavailable records a transaction with no result.
func (m *Metrics) RecordTransactionUnavailable(walletAddress string) {
	m.transactionsUnavailableTotal.WithLabelValues(walletAddress).Inc()
}

// RecordMintsExtracted records how many mints one transaction referenced.
func (m *Metrics) RecordMintsExtracted(flow string, count int) {
	m.mintsPerTransaction.WithLabelValues(flow).Observe(float64(count))
}

// Cache metric helpers

// SetCacheEntries records the size of the cache.
func (m *Metrics) SetCacheEntries(count int) {
	m.cacheEntries.Set(float64(count))
}

// RecordCacheWriteError records a failed cache write.
func (m *Metrics) RecordCacheWriteError() {
	m.cacheWriteErrors.Inc()
}

// Export metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject string, err error) {
	m.natsMessagesPublished.WithLabelValues(subject, statusOf(err)).Inc()
}

// RecordDBRows records rows written to a table.
func (m *Metrics) RecordDBRows(table string, count int, err error) {
	m.dbRowsWritten.WithLabelValues(table, statusOf(err)).Add(float64(count))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
