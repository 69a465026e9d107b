package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pabloandrewguevara/healthkit/internal/metrics"
	"github.com/pabloandrewguevara/healthkit/internal/transform"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS daily_rows (
    date DATE PRIMARY KEY,
    weekday TEXT NOT NULL,
    week_ending_date DATE NOT NULL,
    core_sleep_hours DOUBLE PRECISION,
    deep_sleep_hours DOUBLE PRECISION,
    rem_sleep_hours DOUBLE PRECISION,
    total_sleep_hours DOUBLE PRECISION,
    core_sleep_hours_next_night DOUBLE PRECISION,
    deep_sleep_hours_next_night DOUBLE PRECISION,
    rem_sleep_hours_next_night DOUBLE PRECISION,
    total_sleep_hours_next_night DOUBLE PRECISION,
    resting_heart_rate_bpm DOUBLE PRECISION,
    vo2_max DOUBLE PRECISION,
    active_calories DOUBLE PRECISION,
    basal_calories DOUBLE PRECISION,
    total_calories DOUBLE PRECISION,
    strength_training_minutes DOUBLE PRECISION,
    running_minutes DOUBLE PRECISION,
    hiit_minutes DOUBLE PRECISION,
    core_training_minutes DOUBLE PRECISION,
    other_workout_minutes DOUBLE PRECISION,
    total_workout_minutes DOUBLE PRECISION,
    workout_distance_m DOUBLE PRECISION,
    workout_elevation_gain_m DOUBLE PRECISION,
    strength_trained BOOLEAN NOT NULL DEFAULT FALSE,
    ran BOOLEAN NOT NULL DEFAULT FALSE,
    hiit_trained BOOLEAN NOT NULL DEFAULT FALSE,
    core_trained BOOLEAN NOT NULL DEFAULT FALSE,
    exercised BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workout_sessions (
    workout_type TEXT NOT NULL,
    start_utc TIMESTAMPTZ NOT NULL,
    end_utc TIMESTAMPTZ NOT NULL,
    date DATE NOT NULL,
    duration_seconds DOUBLE PRECISION NOT NULL,
    distance_m DOUBLE PRECISION,
    elevation_gain_m DOUBLE PRECISION,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (workout_type, start_utc)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    records_read INTEGER NOT NULL,
    records_skipped INTEGER NOT NULL,
    rows_upserted INTEGER NOT NULL,
    sessions_upserted INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workout_sessions_date ON workout_sessions(date);
`

// Postgres stores pipeline output in a PostgreSQL warehouse.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the warehouse and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// UpsertDailyRows batches one upsert per row.
func (p *Postgres) UpsertDailyRows(ctx context.Context, rows []transform.DailyRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpUpsertDailyRows))
	defer timer.ObserveDuration()

	query := `INSERT INTO daily_rows (
    date, weekday, week_ending_date,
    core_sleep_hours, deep_sleep_hours, rem_sleep_hours, total_sleep_hours,
    core_sleep_hours_next_night, deep_sleep_hours_next_night,
    rem_sleep_hours_next_night, total_sleep_hours_next_night,
    resting_heart_rate_bpm, vo2_max,
    active_calories, basal_calories, total_calories,
    strength_training_minutes, running_minutes, hiit_minutes,
    core_training_minutes, other_workout_minutes, total_workout_minutes,
    workout_distance_m, workout_elevation_gain_m,
    strength_trained, ran, hiit_trained, core_trained, exercised, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,NOW())
ON CONFLICT (date) DO UPDATE
SET weekday = EXCLUDED.weekday,
    week_ending_date = EXCLUDED.week_ending_date,
    core_sleep_hours = EXCLUDED.core_sleep_hours,
    deep_sleep_hours = EXCLUDED.deep_sleep_hours,
    rem_sleep_hours = EXCLUDED.rem_sleep_hours,
    total_sleep_hours = EXCLUDED.total_sleep_hours,
    core_sleep_hours_next_night = EXCLUDED.core_sleep_hours_next_night,
    deep_sleep_hours_next_night = EXCLUDED.deep_sleep_hours_next_night,
    rem_sleep_hours_next_night = EXCLUDED.rem_sleep_hours_next_night,
    total_sleep_hours_next_night = EXCLUDED.total_sleep_hours_next_night,
    resting_heart_rate_bpm = EXCLUDED.resting_heart_rate_bpm,
    vo2_max = EXCLUDED.vo2_max,
    active_calories = EXCLUDED.active_calories,
    basal_calories = EXCLUDED.basal_calories,
    total_calories = EXCLUDED.total_calories,
    strength_training_minutes = EXCLUDED.strength_training_minutes,
    running_minutes = EXCLUDED.running_minutes,
    hiit_minutes = EXCLUDED.hiit_minutes,
    core_training_minutes = EXCLUDED.core_training_minutes,
    other_workout_minutes = EXCLUDED.other_workout_minutes,
    total_workout_minutes = EXCLUDED.total_workout_minutes,
    workout_distance_m = EXCLUDED.workout_distance_m,
    workout_elevation_gain_m = EXCLUDED.workout_elevation_gain_m,
    strength_trained = EXCLUDED.strength_trained,
    ran = EXCLUDED.ran,
    hiit_trained = EXCLUDED.hiit_trained,
    core_trained = EXCLUDED.core_trained,
    exercised = EXCLUDED.exercised,
    updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, string(row.Date), row.Weekday, string(row.WeekEndingDate),
			row.CoreSleepHours, row.DeepSleepHours, row.REMSleepHours, row.TotalSleepHours,
			row.CoreSleepHoursNextNight, row.DeepSleepHoursNextNight,
			row.REMSleepHoursNextNight, row.TotalSleepHoursNextNight,
			row.RestingHeartRateBPM, row.VO2Max,
			row.ActiveCalories, row.BasalCalories, row.TotalCalories,
			row.StrengthTrainingMinutes, row.RunningMinutes, row.HIITMinutes,
			row.CoreTrainingMinutes, row.OtherWorkoutMinutes, row.TotalWorkoutMinutes,
			row.WorkoutDistanceM, row.WorkoutElevationGainM,
			row.StrengthTrained, row.Ran, row.HIITTrained, row.CoreTrained, row.Exercised)
	}

	res := p.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range rows {
		if _, err := res.Exec(); err != nil {
			metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertDailyRows).Inc()
			return 0, fmt.Errorf("failed to upsert daily rows: %w", err)
		}
	}

	metrics.RowsUpsertedTotal.WithLabelValues("daily_rows").Add(float64(len(rows)))
	return len(rows), nil
}

// UpsertWorkoutSessions batches one upsert per session.
func (p *Postgres) UpsertWorkoutSessions(ctx context.Context, sessions []transform.WorkoutSession) (int, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpUpsertWorkoutSessions))
	defer timer.ObserveDuration()

	query := `INSERT INTO workout_sessions (
    workout_type, start_utc, end_utc, date,
    duration_seconds, distance_m, elevation_gain_m, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (workout_type, start_utc) DO UPDATE
SET end_utc = EXCLUDED.end_utc,
    date = EXCLUDED.date,
    duration_seconds = EXCLUDED.duration_seconds,
    distance_m = EXCLUDED.distance_m,
    elevation_gain_m = EXCLUDED.elevation_gain_m,
    updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, sess := range sessions {
		batch.Queue(query, string(sess.Type), sess.StartUTC, sess.EndUTC, string(sess.Date),
			sess.DurationSeconds, sess.DistanceM, sess.ElevationGainM)
	}

	res := p.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range sessions {
		if _, err := res.Exec(); err != nil {
			metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertWorkoutSessions).Inc()
			return 0, fmt.Errorf("failed to upsert workout sessions: %w", err)
		}
	}

	metrics.RowsUpsertedTotal.WithLabelValues("workout_sessions").Add(float64(len(sessions)))
	return len(sessions), nil
}

// RecordRun stores one pipeline run's bookkeeping entry.
func (p *Postgres) RecordRun(ctx context.Context, run Run) error {
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpRecordRun))
	defer timer.ObserveDuration()

	_, err := p.pool.Exec(ctx, `INSERT INTO pipeline_runs (
    id, started_at, finished_at,
    records_read, records_skipped, rows_upserted, sessions_upserted
) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		run.ID, run.StartedAt, run.FinishedAt,
		run.RecordsRead, run.RecordsSkipped, run.RowsUpserted, run.SessionsUpserted)
	if err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpRecordRun).Inc()
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}
