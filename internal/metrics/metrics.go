// Package metrics exposes Prometheus instrumentation for the ledger API
// 台帳APIのPrometheus計装を公開
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts ledger operations by name and outcome
	// 操作名と結果毎の台帳操作数
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by operation and status.",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration observes ledger operation latency
	// 台帳操作のレイテンシ
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// ObserveRequest records one operation's outcome and duration
// 操作一件の結果と所要時間を記録
func ObserveRequest(operation string, statusCode int, duration time.Duration) {
	status := "ok"
	if statusCode >= 400 {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
