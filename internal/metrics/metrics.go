package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Record kinds
	KindRecord  = "record"
	KindWorkout = "workout"

	// Skip reasons
	ReasonUnsupportedMetric = "unsupported_metric"
	ReasonInvalidTimeRange  = "invalid_time_range"
	ReasonUntrackedType     = "untracked_type"

	// Run results
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"

	// Warehouse operations
	OpUpsertDailyRows       = "upsert_daily_rows"
	OpUpsertWorkoutSessions = "upsert_workout_sessions"
	OpRecordRun             = "record_run"
)

// Pipeline Metrics
var (
	RecordsReadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthkit_records_read_total",
			Help: "Total number of raw records read from the export",
		},
		[]string{"kind"},
	)

	RecordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthkit_records_skipped_total",
			Help: "Total number of records skipped, by reason",
		},
		[]string{"reason"},
	)

	DailyRowsBuiltTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthkit_daily_rows_built_total",
			Help: "Total number of daily rows built by the transform stage",
		},
	)

	WorkoutSessionsBuiltTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthkit_workout_sessions_built_total",
			Help: "Total number of workout sessions built by the transform stage",
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthkit_runs_total",
			Help: "Total number of pipeline runs, by result",
		},
		[]string{"result"},
	)

	RunDurationSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthkit_run_duration_seconds",
			Help: "Wall-clock duration of the most recent pipeline run",
		},
	)
)

// Warehouse Metrics
var (
	WarehouseOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthkit_warehouse_operation_duration_seconds",
			Help:    "Warehouse operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	WarehouseOpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthkit_warehouse_operation_errors_total",
			Help: "Total number of warehouse operation errors",
		},
		[]string{"operation"},
	)

	RowsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthkit_rows_upserted_total",
			Help: "Total number of rows upserted into the warehouse, by table",
		},
		[]string{"table"},
	)
)
