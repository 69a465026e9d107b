package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/pabloandrewguevara/healthkit/internal/metrics"
	"github.com/pabloandrewguevara/healthkit/internal/transform"
)

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Daily rows table: one wide row per local calendar day
CREATE TABLE IF NOT EXISTS daily_rows (
    date TEXT PRIMARY KEY,
    weekday TEXT NOT NULL,
    week_ending_date TEXT NOT NULL,

    -- Sleep (hours)
    core_sleep_hours REAL,
    deep_sleep_hours REAL,
    rem_sleep_hours REAL,
    total_sleep_hours REAL,
    core_sleep_hours_next_night REAL,
    deep_sleep_hours_next_night REAL,
    rem_sleep_hours_next_night REAL,
    total_sleep_hours_next_night REAL,

    -- Biometrics
    resting_heart_rate_bpm REAL,
    vo2_max REAL,

    -- Energy (kcal)
    active_calories REAL,
    basal_calories REAL,
    total_calories REAL,

    -- Workouts (minutes / meters)
    strength_training_minutes REAL,
    running_minutes REAL,
    hiit_minutes REAL,
    core_training_minutes REAL,
    other_workout_minutes REAL,
    total_workout_minutes REAL,
    workout_distance_m REAL,
    workout_elevation_gain_m REAL,
    strength_trained BOOLEAN NOT NULL DEFAULT 0,
    ran BOOLEAN NOT NULL DEFAULT 0,
    hiit_trained BOOLEAN NOT NULL DEFAULT 0,
    core_trained BOOLEAN NOT NULL DEFAULT 0,
    exercised BOOLEAN NOT NULL DEFAULT 0,

    updated_at INTEGER NOT NULL
);

-- Workout sessions table: one row per contiguous session
CREATE TABLE IF NOT EXISTS workout_sessions (
    workout_type TEXT NOT NULL,
    start_utc INTEGER NOT NULL,
    end_utc INTEGER NOT NULL,
    date TEXT NOT NULL,
    duration_seconds REAL NOT NULL,
    distance_m REAL,
    elevation_gain_m REAL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (workout_type, start_utc)
);

-- Pipeline runs table: bookkeeping for each refresh
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    records_read INTEGER NOT NULL,
    records_skipped INTEGER NOT NULL,
    rows_upserted INTEGER NOT NULL,
    sessions_upserted INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workout_sessions_date ON workout_sessions(date);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON pipeline_runs(started_at DESC);
`

// SQLite stores pipeline output in a local SQLite file.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens the warehouse database at the specified path and
// ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	// Open the database with appropriate pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{conn: conn}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// UpsertDailyRows inserts or updates one row per date. Re-upserting the
// same rows leaves the table unchanged.
func (s *SQLite) UpsertDailyRows(ctx context.Context, rows []transform.DailyRow) (int, error) {
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpUpsertDailyRows))
	defer timer.ObserveDuration()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertDailyRows).Inc()
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO daily_rows (
				date, weekday, week_ending_date,
				core_sleep_hours, deep_sleep_hours, rem_sleep_hours, total_sleep_hours,
				core_sleep_hours_next_night, deep_sleep_hours_next_night,
				rem_sleep_hours_next_night, total_sleep_hours_next_night,
				resting_heart_rate_bpm, vo2_max,
				active_calories, basal_calories, total_calories,
				strength_training_minutes, running_minutes, hiit_minutes,
				core_training_minutes, other_workout_minutes, total_workout_minutes,
				workout_distance_m, workout_elevation_gain_m,
				strength_trained, ran, hiit_trained, core_trained, exercised,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				weekday = excluded.weekday,
				week_ending_date = excluded.week_ending_date,
				core_sleep_hours = excluded.core_sleep_hours,
				deep_sleep_hours = excluded.deep_sleep_hours,
				rem_sleep_hours = excluded.rem_sleep_hours,
				total_sleep_hours = excluded.total_sleep_hours,
				core_sleep_hours_next_night = excluded.core_sleep_hours_next_night,
				deep_sleep_hours_next_night = excluded.deep_sleep_hours_next_night,
				rem_sleep_hours_next_night = excluded.rem_sleep_hours_next_night,
				total_sleep_hours_next_night = excluded.total_sleep_hours_next_night,
				resting_heart_rate_bpm = excluded.resting_heart_rate_bpm,
				vo2_max = excluded.vo2_max,
				active_calories = excluded.active_calories,
				basal_calories = excluded.basal_calories,
				total_calories = excluded.total_calories,
				strength_training_minutes = excluded.strength_training_minutes,
				running_minutes = excluded.running_minutes,
				hiit_minutes = excluded.hiit_minutes,
				core_training_minutes = excluded.core_training_minutes,
				other_workout_minutes = excluded.other_workout_minutes,
				total_workout_minutes = excluded.total_workout_minutes,
				workout_distance_m = excluded.workout_distance_m,
				workout_elevation_gain_m = excluded.workout_elevation_gain_m,
				strength_trained = excluded.strength_trained,
				ran = excluded.ran,
				hiit_trained = excluded.hiit_trained,
				core_trained = excluded.core_trained,
				exercised = excluded.exercised,
				updated_at = excluded.updated_at
		`, string(row.Date), row.Weekday, string(row.WeekEndingDate),
			row.CoreSleepHours, row.DeepSleepHours, row.REMSleepHours, row.TotalSleepHours,
			row.CoreSleepHoursNextNight, row.DeepSleepHoursNextNight,
			row.REMSleepHoursNextNight, row.TotalSleepHoursNextNight,
			row.RestingHeartRateBPM, row.VO2Max,
			row.ActiveCalories, row.BasalCalories, row.TotalCalories,
			row.StrengthTrainingMinutes, row.RunningMinutes, row.HIITMinutes,
			row.CoreTrainingMinutes, row.OtherWorkoutMinutes, row.TotalWorkoutMinutes,
			row.WorkoutDistanceM, row.WorkoutElevationGainM,
			row.StrengthTrained, row.Ran, row.HIITTrained, row.CoreTrained, row.Exercised,
			now)
		if err != nil {
			metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertDailyRows).Inc()
			return 0, fmt.Errorf("failed to upsert daily row %s: %w", row.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertDailyRows).Inc()
		return 0, fmt.Errorf("failed to commit daily rows: %w", err)
	}

	metrics.RowsUpsertedTotal.WithLabelValues("daily_rows").Add(float64(len(rows)))
	return len(rows), nil
}

// UpsertWorkoutSessions inserts or updates sessions keyed on
// (workout_type, start_utc).
func (s *SQLite) UpsertWorkoutSessions(ctx context.Context, sessions []transform.WorkoutSession) (int, error) {
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpUpsertWorkoutSessions))
	defer timer.ObserveDuration()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertWorkoutSessions).Inc()
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, sess := range sessions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workout_sessions (
				workout_type, start_utc, end_utc, date,
				duration_seconds, distance_m, elevation_gain_m, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(workout_type, start_utc) DO UPDATE SET
				end_utc = excluded.end_utc,
				date = excluded.date,
				duration_seconds = excluded.duration_seconds,
				distance_m = excluded.distance_m,
				elevation_gain_m = excluded.elevation_gain_m,
				updated_at = excluded.updated_at
		`, string(sess.Type), sess.StartUTC.Unix(), sess.EndUTC.Unix(), string(sess.Date),
			sess.DurationSeconds, sess.DistanceM, sess.ElevationGainM, now)
		if err != nil {
			metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertWorkoutSessions).Inc()
			return 0, fmt.Errorf("failed to upsert session %s@%d: %w", sess.Type, sess.StartUTC.Unix(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpUpsertWorkoutSessions).Inc()
		return 0, fmt.Errorf("failed to commit workout sessions: %w", err)
	}

	metrics.RowsUpsertedTotal.WithLabelValues("workout_sessions").Add(float64(len(sessions)))
	return len(sessions), nil
}

// RecordRun stores one pipeline run's bookkeeping entry.
func (s *SQLite) RecordRun(ctx context.Context, run Run) error {
	timer := prometheus.NewTimer(metrics.WarehouseOpDuration.WithLabelValues(metrics.OpRecordRun))
	defer timer.ObserveDuration()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			id, started_at, finished_at,
			records_read, records_skipped, rows_upserted, sessions_upserted
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.RecordsRead, run.RecordsSkipped, run.RowsUpserted, run.SessionsUpserted)
	if err != nil {
		metrics.WarehouseOpErrorsTotal.WithLabelValues(metrics.OpRecordRun).Inc()
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when the table
// is empty.
func (s *SQLite) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	var startedAt, finishedAt int64
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at,
		       records_read, records_skipped, rows_upserted, sessions_upserted
		FROM pipeline_runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&run.ID, &startedAt, &finishedAt,
		&run.RecordsRead, &run.RecordsSkipped, &run.RowsUpserted, &run.SessionsUpserted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)
	return &run, nil
}
