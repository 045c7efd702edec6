package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_questions_total",
			Help: "Total number of answered questions by format and outcome.",
		},
		[]string{"format", "outcome"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoptalk_llm_call_duration_seconds",
			Help:    "LLM call latency by operation (generate, summarize).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"operation"},
	)
	warehouseQueryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shoptalk_warehouse_query_duration_seconds",
			Help:    "Warehouse query execution latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	warehouseRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shoptalk_warehouse_rows_returned",
			Help:    "Row counts of materialized result sets.",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000},
		},
	)
	chartRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_chart_renders_total",
			Help: "Total number of chart renders by shape.",
		},
		[]string{"shape"},
	)
	archiveWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_archive_writes_total",
			Help: "Total number of answer archive writes by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		llmCallDurationSeconds,
		warehouseQueryDurationSeconds,
		warehouseRowsReturned,
		chartRendersTotal,
		archiveWritesTotal,
	)
}

func ObserveQuestion(format, outcome string) {
	questionsTotal.WithLabelValues(format, outcome).Inc()
}

func ObserveLLMCall(operation string, elapsed time.Duration) {
	llmCallDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func ObserveWarehouseQuery(rows int, elapsed time.Duration) {
	warehouseQueryDurationSeconds.Observe(elapsed.Seconds())
	warehouseRowsReturned.Observe(float64(rows))
}

func ObserveChartRender(shape string) {
	chartRendersTotal.WithLabelValues(shape).Inc()
}

func ObserveArchiveWrite(outcome string) {
	archiveWritesTotal.WithLabelValues(outcome).Inc()
}
