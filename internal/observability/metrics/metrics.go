package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "caregiving_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	billingRecomputeTotal   *prometheus.CounterVec
	billingRecomputeLatency *prometheus.HistogramVec

	transactionRecordTotal   *prometheus.CounterVec
	transactionRecordLatency *prometheus.HistogramVec

	settlementCompleteTotal   *prometheus.CounterVec
	settlementCompleteLatency *prometheus.HistogramVec

	settlementExportTotal   *prometheus.CounterVec
	settlementExportLatency *prometheus.HistogramVec

	outboxPublishTotal    *prometheus.CounterVec
	outboxPublishLatency  *prometheus.HistogramVec
	outboxDispatchTotal   *prometheus.CounterVec
	outboxDispatchLatency *prometheus.HistogramVec
	outboxDispatchBatch   *prometheus.CounterVec

	consumerLag *prometheus.GaugeVec

	reconcileRunsTotal  *prometheus.CounterVec
	reconcileMismatches prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		billingRecomputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "billing_recompute_total",
				Help: "Total billing charge computations by result",
			},
			[]string{"result"},
		)
		billingRecomputeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "billing_recompute_latency_seconds",
				Help:    "Billing charge computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		transactionRecordTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transaction_record_total",
				Help: "Total ledger transaction recordings by result",
			},
			[]string{"result"},
		)
		transactionRecordLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "transaction_record_latency_seconds",
				Help:    "Ledger transaction recording latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		settlementCompleteTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_complete_total",
				Help: "Total settlement completion operations by result",
			},
			[]string{"result"},
		)
		settlementCompleteLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_complete_latency_seconds",
				Help:    "Settlement completion latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		settlementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_export_total",
				Help: "Total settlement sheet exports by format and result",
			},
			[]string{"format", "result"},
		)
		settlementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_export_latency_seconds",
				Help:    "Settlement sheet export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		outboxPublishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_publish_total",
				Help: "Total outbox publishes by result",
			},
			[]string{"result"},
		)
		outboxPublishLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_publish_latency_seconds",
				Help:    "Outbox publish latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		outboxDispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_total",
				Help: "Total outbox dispatch runs by result",
			},
			[]string{"result"},
		)
		outboxDispatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "outbox_dispatch_latency_seconds",
				Help:    "Outbox dispatch run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		outboxDispatchBatch = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "outbox_dispatch_messages_total",
				Help: "Total dispatched outbox messages by outcome",
			},
			[]string{"outcome"},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "event_consumer_lag_seconds",
				Help: "Consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		reconcileRunsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_runs_total",
				Help: "Total reconcile runs by result",
			},
			[]string{"result"},
		)
		reconcileMismatches = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_mismatches_total",
				Help: "Total amount mismatches found by reconcile runs",
			},
		)

		prometheus.MustRegister(
			billingRecomputeTotal,
			billingRecomputeLatency,
			transactionRecordTotal,
			transactionRecordLatency,
			settlementCompleteTotal,
			settlementCompleteLatency,
			settlementExportTotal,
			settlementExportLatency,
			outboxPublishTotal,
			outboxPublishLatency,
			outboxDispatchTotal,
			outboxDispatchLatency,
			outboxDispatchBatch,
			consumerLag,
			reconcileRunsTotal,
			reconcileMismatches,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveBillingRecompute records a billing charge computation.
func ObserveBillingRecompute(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if billingRecomputeTotal != nil {
		billingRecomputeTotal.WithLabelValues(result).Inc()
	}
	if billingRecomputeLatency != nil {
		billingRecomputeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveTransactionRecord records a ledger transaction recording.
func ObserveTransactionRecord(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if transactionRecordTotal != nil {
		transactionRecordTotal.WithLabelValues(result).Inc()
	}
	if transactionRecordLatency != nil {
		transactionRecordLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSettlementComplete records a settlement completion.
func ObserveSettlementComplete(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementCompleteTotal != nil {
		settlementCompleteTotal.WithLabelValues(result).Inc()
	}
	if settlementCompleteLatency != nil {
		settlementCompleteLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveSettlementExport records a settlement sheet export.
func ObserveSettlementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if settlementExportTotal != nil {
		settlementExportTotal.WithLabelValues(format, result).Inc()
	}
	if settlementExportLatency != nil {
		settlementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveOutboxPublish records an outbox publish.
func ObserveOutboxPublish(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if outboxPublishTotal != nil {
		outboxPublishTotal.WithLabelValues(result).Inc()
	}
	if outboxPublishLatency != nil {
		outboxPublishLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOutboxDispatch records an outbox dispatch run.
func ObserveOutboxDispatch(result string, duration time.Duration, sent, failed, dlq int) {
	if result == "" {
		result = resultSuccess
	}
	if outboxDispatchTotal != nil {
		outboxDispatchTotal.WithLabelValues(result).Inc()
	}
	if outboxDispatchLatency != nil {
		outboxDispatchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if outboxDispatchBatch != nil {
		if sent > 0 {
			outboxDispatchBatch.WithLabelValues("sent").Add(float64(sent))
		}
		if failed > 0 {
			outboxDispatchBatch.WithLabelValues("failed").Add(float64(failed))
		}
		if dlq > 0 {
			outboxDispatchBatch.WithLabelValues("dlq").Add(float64(dlq))
		}
	}
}

// ObserveConsumerLag sets consumer lag in seconds.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumer == "" {
		consumer = "unknown"
	}
	if lag < 0 {
		lag = 0
	}
	if consumerLag != nil {
		consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
	}
}

// ObserveReconcileRun records a reconcile run and its mismatch count.
func ObserveReconcileRun(result string, mismatches int) {
	if result == "" {
		result = resultSuccess
	}
	if reconcileRunsTotal != nil {
		reconcileRunsTotal.WithLabelValues(result).Inc()
	}
	if reconcileMismatches != nil && mismatches > 0 {
		reconcileMismatches.Add(float64(mismatches))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
