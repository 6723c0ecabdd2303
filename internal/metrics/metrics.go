// Package metrics holds the Prometheus instruments for the control plane.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all adpilot metrics.
type Registry struct {
	// Engine run metrics.
	RunDuration *prometheus.HistogramVec
	RunRecords  *prometheus.CounterVec
	RunErrors   *prometheus.CounterVec
	ActiveRuns  prometheus.Gauge

	// Decision distribution by engine and action/verdict.
	Decisions *prometheus.CounterVec

	// Apply sink metrics.
	ApplyCalls  *prometheus.CounterVec
	ApplyErrors *prometheus.CounterVec

	// Warehouse metrics.
	WarehouseQueryDuration *prometheus.HistogramVec
}

// NewRegistry creates all instruments.
func NewRegistry() *Registry {
	return &Registry{
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adpilot_run_duration_seconds",
				Help:    "Duration of each engine run in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"engine", "result"},
		),
		RunRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_run_records_total",
				Help: "Total recommendation records produced per engine",
			},
			[]string{"engine"},
		),
		RunErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_run_errors_total",
				Help: "Total failed engine runs by error kind",
			},
			[]string{"engine", "kind"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "adpilot_active_runs",
				Help: "Number of engine runs currently in flight",
			},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_decisions_total",
				Help: "Decision distribution by engine and action",
			},
			[]string{"engine", "action"},
		),
		ApplyCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_apply_calls_total",
				Help: "Apply sink calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		ApplyErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_apply_errors_total",
				Help: "Apply sink failures by operation and error class",
			},
			[]string{"op", "class"},
		),
		WarehouseQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adpilot_warehouse_query_seconds",
				Help:    "Warehouse query duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
			},
			[]string{"query"},
		),
	}
}

// Register adds every instrument to the given Prometheus registry.
func (r *Registry) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		r.RunDuration, r.RunRecords, r.RunErrors, r.ActiveRuns,
		r.Decisions, r.ApplyCalls, r.ApplyErrors, r.WarehouseQueryDuration,
	)
}

// ObserveRun records one finished engine run.
func (r *Registry) ObserveRun(engine string, started time.Time, records int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.RunDuration.WithLabelValues(engine, result).Observe(time.Since(started).Seconds())
	r.RunRecords.WithLabelValues(engine).Add(float64(records))
}
