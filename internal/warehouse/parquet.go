package warehouse

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/pabloandrewguevara/healthkit/internal/transform"
)

type dailyRowParquet struct {
	Date           string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Weekday        string `parquet:"name=weekday, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WeekEndingDate string `parquet:"name=week_ending_date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`

	CoreSleepHours  *float64 `parquet:"name=core_sleep_hours, type=DOUBLE, repetitiontype=OPTIONAL"`
	DeepSleepHours  *float64 `parquet:"name=deep_sleep_hours, type=DOUBLE, repetitiontype=OPTIONAL"`
	REMSleepHours   *float64 `parquet:"name=rem_sleep_hours, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalSleepHours *float64 `parquet:"name=total_sleep_hours, type=DOUBLE, repetitiontype=OPTIONAL"`

	CoreSleepHoursNextNight  *float64 `parquet:"name=core_sleep_hours_next_night, type=DOUBLE, repetitiontype=OPTIONAL"`
	DeepSleepHoursNextNight  *float64 `parquet:"name=deep_sleep_hours_next_night, type=DOUBLE, repetitiontype=OPTIONAL"`
	REMSleepHoursNextNight   *float64 `parquet:"name=rem_sleep_hours_next_night, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalSleepHoursNextNight *float64 `parquet:"name=total_sleep_hours_next_night, type=DOUBLE, repetitiontype=OPTIONAL"`

	RestingHeartRateBPM *float64 `parquet:"name=resting_heart_rate_bpm, type=DOUBLE, repetitiontype=OPTIONAL"`
	VO2Max              *float64 `parquet:"name=vo2_max, type=DOUBLE, repetitiontype=OPTIONAL"`

	ActiveCalories *float64 `parquet:"name=active_calories, type=DOUBLE, repetitiontype=OPTIONAL"`
	BasalCalories  *float64 `parquet:"name=basal_calories, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalCalories  *float64 `parquet:"name=total_calories, type=DOUBLE, repetitiontype=OPTIONAL"`

	StrengthTrainingMinutes *float64 `parquet:"name=strength_training_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	RunningMinutes          *float64 `parquet:"name=running_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	HIITMinutes             *float64 `parquet:"name=hiit_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	CoreTrainingMinutes     *float64 `parquet:"name=core_training_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	OtherWorkoutMinutes     *float64 `parquet:"name=other_workout_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalWorkoutMinutes     *float64 `parquet:"name=total_workout_minutes, type=DOUBLE, repetitiontype=OPTIONAL"`
	WorkoutDistanceM        *float64 `parquet:"name=workout_distance_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	WorkoutElevationGainM   *float64 `parquet:"name=workout_elevation_gain_m, type=DOUBLE, repetitiontype=OPTIONAL"`

	StrengthTrained bool `parquet:"name=strength_trained, type=BOOLEAN"`
	Ran             bool `parquet:"name=ran, type=BOOLEAN"`
	HIITTrained     bool `parquet:"name=hiit_trained, type=BOOLEAN"`
	CoreTrained     bool `parquet:"name=core_trained, type=BOOLEAN"`
	Exercised       bool `parquet:"name=exercised, type=BOOLEAN"`
}

type workoutSessionParquet struct {
	Date            string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WorkoutType     string   `parquet:"name=workout_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StartUTC        int64    `parquet:"name=start_utc, type=INT64"`
	EndUTC          int64    `parquet:"name=end_utc, type=INT64"`
	DurationSeconds float64  `parquet:"name=duration_seconds, type=DOUBLE"`
	DistanceM       *float64 `parquet:"name=distance_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	ElevationGainM  *float64 `parquet:"name=elevation_gain_m, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// WriteSnapshot writes the run's rows and sessions as parquet files into
// dir, creating it if needed. Returns the written paths.
func WriteSnapshot(dir string, rows []transform.DailyRow, sessions []transform.WorkoutSession) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	rowsPath := filepath.Join(dir, "daily_rows.parquet")
	if err := writeDailyRowsParquet(rowsPath, rows); err != nil {
		return "", "", fmt.Errorf("write daily rows parquet: %w", err)
	}

	sessionsPath := filepath.Join(dir, "workout_sessions.parquet")
	if err := writeSessionsParquet(sessionsPath, sessions); err != nil {
		return "", "", fmt.Errorf("write workout sessions parquet: %w", err)
	}

	return rowsPath, sessionsPath, nil
}

func writeDailyRowsParquet(path string, rows []transform.DailyRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(dailyRowParquet), 4)
	if err != nil {
		fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		row := dailyRowParquet{
			Date:                     string(r.Date),
			Weekday:                  r.Weekday,
			WeekEndingDate:           string(r.WeekEndingDate),
			CoreSleepHours:           r.CoreSleepHours,
			DeepSleepHours:           r.DeepSleepHours,
			REMSleepHours:            r.REMSleepHours,
			TotalSleepHours:          r.TotalSleepHours,
			CoreSleepHoursNextNight:  r.CoreSleepHoursNextNight,
			DeepSleepHoursNextNight:  r.DeepSleepHoursNextNight,
			REMSleepHoursNextNight:   r.REMSleepHoursNextNight,
			TotalSleepHoursNextNight: r.TotalSleepHoursNextNight,
			RestingHeartRateBPM:      r.RestingHeartRateBPM,
			VO2Max:                   r.VO2Max,
			ActiveCalories:           r.ActiveCalories,
			BasalCalories:            r.BasalCalories,
			TotalCalories:            r.TotalCalories,
			StrengthTrainingMinutes:  r.StrengthTrainingMinutes,
			RunningMinutes:           r.RunningMinutes,
			HIITMinutes:              r.HIITMinutes,
			CoreTrainingMinutes:      r.CoreTrainingMinutes,
			OtherWorkoutMinutes:      r.OtherWorkoutMinutes,
			TotalWorkoutMinutes:      r.TotalWorkoutMinutes,
			WorkoutDistanceM:         r.WorkoutDistanceM,
			WorkoutElevationGainM:    r.WorkoutElevationGainM,
			StrengthTrained:          r.StrengthTrained,
			Ran:                      r.Ran,
			HIITTrained:              r.HIITTrained,
			CoreTrained:              r.CoreTrained,
			Exercised:                r.Exercised,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			fw.Close()
			return err
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func writeSessionsParquet(path string, sessions []transform.WorkoutSession) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(workoutSessionParquet), 4)
	if err != nil {
		fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, s := range sessions {
		row := workoutSessionParquet{
			Date:            string(s.Date),
			WorkoutType:     string(s.Type),
			StartUTC:        s.StartUTC.Unix(),
			EndUTC:          s.EndUTC.Unix(),
			DurationSeconds: s.DurationSeconds,
			DistanceM:       s.DistanceM,
			ElevationGainM:  s.ElevationGainM,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			fw.Close()
			return err
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}
