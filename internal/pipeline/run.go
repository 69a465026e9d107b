// Package pipeline orchestrates one refresh run: extract the export,
// transform it into daily aggregates and workout sessions, and load the
// result into the warehouse.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pabloandrewguevara/healthkit/internal/config"
	"github.com/pabloandrewguevara/healthkit/internal/export"
	"github.com/pabloandrewguevara/healthkit/internal/metrics"
	"github.com/pabloandrewguevara/healthkit/internal/transform"
	"github.com/pabloandrewguevara/healthkit/internal/warehouse"
)

// Options tune one run without touching configuration.
type Options struct {
	// DryRun transforms but skips all warehouse writes.
	DryRun bool
}

// Pipeline wires the extract, transform, and load stages together.
type Pipeline struct {
	cfg    *config.Config
	store  warehouse.Store
	opts   Options
	logger *slog.Logger
}

func New(cfg *config.Config, store warehouse.Store, opts Options) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		opts:   opts,
		logger: slog.Default(),
	}
}

// Result reports what one run read, built, and wrote.
type Result struct {
	RunID            string
	Rows             []transform.DailyRow
	Sessions         []transform.WorkoutSession
	Summary          transform.Summary
	RecordsRead      int
	Untracked        int
	RowsUpserted     int
	SessionsUpserted int
	Duration         time.Duration
}

// Run executes one refresh. Per-record errors never abort the run: they
// are tallied in the result's Summary. A run with no usable records
// completes with empty output.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{RunID: uuid.NewString()}

	logger := p.logger.With("run_id", result.RunID)
	logger.Info("Starting refresh",
		"export", p.cfg.ExportPath,
		"timezone", p.cfg.LocalTimezone,
		"merge_gap", p.cfg.MergeGap,
		"dry_run", p.opts.DryRun)

	// Extract
	reader := export.NewReader(p.cfg.ExportPath)
	raw, stats, err := reader.ReadAll(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("extract failed: %w", err)
	}
	result.RecordsRead = stats.Records + stats.Workouts
	result.Untracked = stats.Untracked
	metrics.RecordsReadTotal.WithLabelValues(metrics.KindRecord).Add(float64(stats.Records))
	metrics.RecordsReadTotal.WithLabelValues(metrics.KindWorkout).Add(float64(stats.Workouts))
	metrics.RecordsSkippedTotal.WithLabelValues(metrics.ReasonUntrackedType).Add(float64(stats.Untracked))

	// Transform
	normalizer, err := transform.NewNormalizer(
		p.cfg.Location,
		transform.MidnightPolicy(p.cfg.MidnightPolicy),
		unitOverrides(p.cfg.CanonicalUnits),
	)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("invalid normalizer configuration: %w", err)
	}

	normalized, summary := normalizer.NormalizeAll(raw)
	result.Summary = summary
	metrics.RecordsSkippedTotal.WithLabelValues(metrics.ReasonUnsupportedMetric).Add(float64(summary.UnsupportedMetric))
	metrics.RecordsSkippedTotal.WithLabelValues(metrics.ReasonInvalidTimeRange).Add(float64(summary.InvalidTimeRange))
	if summary.Skipped() > 0 {
		logger.Warn("Skipped records during normalization",
			"unsupported_metric", summary.UnsupportedMetric,
			"invalid_time_range", summary.InvalidTimeRange)
	}

	normalized = transform.Dedupe(normalized)

	dailyMetrics := transform.Aggregate(normalized)
	sessions := transform.Segment(normalized, p.cfg.MergeGap)
	summaries := transform.SummarizeByDay(sessions)

	rows, err := transform.BuildRows(dailyMetrics, summaries)
	if errors.Is(err, transform.ErrEmptyInput) {
		logger.Warn("No rows to build; run produced no output")
		metrics.RunsTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		result.Duration = time.Since(started)
		p.finishRun(ctx, logger, result, started)
		return result, nil
	}
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("build rows failed: %w", err)
	}

	if p.cfg.StartDate != "" {
		rows, sessions = filterSince(rows, sessions, transform.Date(p.cfg.StartDate))
	}
	result.Rows = rows
	result.Sessions = sessions
	metrics.DailyRowsBuiltTotal.Add(float64(len(rows)))
	metrics.WorkoutSessionsBuiltTotal.Add(float64(len(sessions)))

	logger.Info("Transform complete",
		"daily_metrics", len(dailyMetrics),
		"sessions", len(sessions),
		"rows", len(rows))

	// Load
	if !p.opts.DryRun {
		result.RowsUpserted, err = p.store.UpsertDailyRows(ctx, rows)
		if err != nil {
			metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return nil, fmt.Errorf("load daily rows failed: %w", err)
		}
		result.SessionsUpserted, err = p.store.UpsertWorkoutSessions(ctx, sessions)
		if err != nil {
			metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return nil, fmt.Errorf("load workout sessions failed: %w", err)
		}

		if p.cfg.ParquetDir != "" {
			rowsPath, sessionsPath, err := warehouse.WriteSnapshot(p.cfg.ParquetDir, rows, sessions)
			if err != nil {
				metrics.RunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
				return nil, fmt.Errorf("parquet snapshot failed: %w", err)
			}
			logger.Info("Parquet snapshot written", "rows", rowsPath, "sessions", sessionsPath)
		}
	}

	metrics.RunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	result.Duration = time.Since(started)
	p.finishRun(ctx, logger, result, started)
	return result, nil
}

// finishRun records bookkeeping and pushes metrics; neither failure fails
// the run, the data is already loaded.
func (p *Pipeline) finishRun(ctx context.Context, logger *slog.Logger, result *Result, started time.Time) {
	metrics.RunDurationSeconds.Set(result.Duration.Seconds())

	if !p.opts.DryRun {
		run := warehouse.Run{
			ID:               result.RunID,
			StartedAt:        started,
			FinishedAt:       started.Add(result.Duration),
			RecordsRead:      result.RecordsRead,
			RecordsSkipped:   result.Summary.Skipped() + result.Untracked,
			RowsUpserted:     result.RowsUpserted,
			SessionsUpserted: result.SessionsUpserted,
		}
		if err := p.store.RecordRun(ctx, run); err != nil {
			logger.Error("Failed to record run", "error", err)
		}
	}

	if p.cfg.PushgatewayURL != "" {
		if err := metrics.Push(p.cfg.PushgatewayURL, result.RunID); err != nil {
			logger.Error("Failed to push metrics", "error", err)
		}
	}

	logger.Info("Refresh finished",
		"records_read", result.RecordsRead,
		"skipped", result.Summary.Skipped(),
		"untracked", result.Untracked,
		"rows", len(result.Rows),
		"sessions", len(result.Sessions),
		"rows_upserted", result.RowsUpserted,
		"sessions_upserted", result.SessionsUpserted,
		"duration", result.Duration)
}

func unitOverrides(m map[string]string) map[transform.MetricType]string {
	out := make(map[transform.MetricType]string, len(m))
	for metric, unit := range m {
		out[transform.MetricType(metric)] = unit
	}
	return out
}

// filterSince drops rows and sessions before the start date. ISO dates
// compare lexically.
func filterSince(rows []transform.DailyRow, sessions []transform.WorkoutSession, since transform.Date) ([]transform.DailyRow, []transform.WorkoutSession) {
	keptRows := rows[:0]
	for _, r := range rows {
		if r.Date >= since {
			keptRows = append(keptRows, r)
		}
	}
	keptSessions := sessions[:0]
	for _, s := range sessions {
		if s.Date >= since {
			keptSessions = append(keptSessions, s)
		}
	}
	return keptRows, keptSessions
}
