// file: internal/metrics/metrics.go
// version: 3.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "playlist_importer"

var (
	registerOnce sync.Once

	operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Finished queue operations by type and final status",
	}, []string{"type", "status"})
	operationsRunning = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "operations_running",
		Help:      "Queue operations currently executing, by type",
	}, []string{"type"})
	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Run time of queue operations by type",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	}, []string{"type"})

	collections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collections_total",
		Help:      "Collections handled by imports, by outcome (created, reused, failed)",
	}, []string{"outcome"})
	tracksImported = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracks_imported_total",
		Help:      "Tracks appended to collections",
	})
	tracksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tracks_skipped_total",
		Help:      "Files not imported, by reason",
	}, []string{"reason"})
	directoryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_failures_total",
		Help:      "Directory level failures during imports, by kind",
	}, []string{"kind"})
	importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "import_duration_seconds",
		Help:      "Duration of complete import runs",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	collectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collections_current",
		Help:      "Current number of collections in the store",
	})
	ledgerGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_entries_current",
		Help:      "Current number of import ledger entries",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(operations, operationsRunning, operationDuration,
			collections, tracksImported, tracksSkipped, directoryFailures, importDuration,
			collectionsGauge, ledgerGauge)
	})
}

// OperationStarted marks an operation of opType as executing.
func OperationStarted(opType string) { operationsRunning.WithLabelValues(opType).Inc() }

// OperationFinished records the final status of an operation that was
// started with OperationStarted.
func OperationFinished(opType, status string, d time.Duration) {
	operationsRunning.WithLabelValues(opType).Dec()
	operations.WithLabelValues(opType, status).Inc()
	operationDuration.WithLabelValues(opType).Observe(d.Seconds())
}

// OperationDropped records an operation that ended before it started.
func OperationDropped(opType, status string) {
	operations.WithLabelValues(opType, status).Inc()
}

// Import helpers
func IncCollection(outcome string)          { collections.WithLabelValues(outcome).Inc() }
func IncTrackImported()                     { tracksImported.Inc() }
func IncTrackSkipped(reason string)         { tracksSkipped.WithLabelValues(reason).Inc() }
func IncDirectoryFailure(kind string)       { directoryFailures.WithLabelValues(kind).Inc() }
func ObserveImportDuration(d time.Duration) { importDuration.Observe(d.Seconds()) }

// Gauges
func SetCollections(n int)   { collectionsGauge.Set(float64(n)) }
func SetLedgerEntries(n int) { ledgerGauge.Set(float64(n)) }
