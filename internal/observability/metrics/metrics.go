package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "opcmap_"

	resultSuccess = "success"
	resultError   = "error"

	rowOutcomeMapped  = "mapped"
	rowOutcomeSkipped = "skipped"
	rowOutcomeMerged  = "merged"
)

var (
	registerOnce sync.Once

	importRequests *prometheus.CounterVec
	importLatency  *prometheus.HistogramVec
	importRows     *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	sessionOps *prometheus.CounterVec
)

// Init registers observability metrics.
func Init() {
	registerOnce.Do(func() {
		importRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_requests_total",
				Help: "Total register import requests by result",
			},
			[]string{"result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Register import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Total imported register rows by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total mapping export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Mapping export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		sessionOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "session_operations_total",
				Help: "Total session operations by op and result",
			},
			[]string{"op", "result"},
		)

		prometheus.MustRegister(
			importRequests,
			importLatency,
			importRows,
			exportTotal,
			exportLatency,
			sessionOps,
		)
	})
}

// ObserveImport records import request duration and result.
func ObserveImport(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if importRequests != nil {
		importRequests.WithLabelValues(result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddImportRows increments the row counter for an outcome by count.
func AddImportRows(outcome string, count int) {
	if count <= 0 {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	if importRows != nil {
		importRows.WithLabelValues(outcome).Add(float64(count))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncSessionOp increments the session operation counter.
func IncSessionOp(op, result string) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if sessionOps != nil {
		sessionOps.WithLabelValues(op, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	RowOutcomeMapped  = rowOutcomeMapped
	RowOutcomeSkipped = rowOutcomeSkipped
	RowOutcomeMerged  = rowOutcomeMerged
)
