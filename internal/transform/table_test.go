package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRowsEmptyInput(t *testing.T) {
	_, err := BuildRows(nil, nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestBuildRowsNullVsZero(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 523.4},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.NotNil(t, row.ActiveCalories)
	require.InDelta(t, 523, *row.ActiveCalories, 1e-9)

	// No sleep, heart rate, or workout data: all nil, never zero.
	require.Nil(t, row.CoreSleepHours)
	require.Nil(t, row.TotalSleepHours)
	require.Nil(t, row.RestingHeartRateBPM)
	require.Nil(t, row.VO2Max)
	require.Nil(t, row.BasalCalories)
	require.Nil(t, row.TotalWorkoutMinutes)
	require.Nil(t, row.WorkoutDistanceM)
	require.False(t, row.Exercised)
}

func TestBuildRowsSleepHoursAndTotals(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricSleepCore, Value: 4.5 * 3600},
		{Date: "2024-03-10", Type: MetricSleepDeep, Value: 1.2 * 3600},
		{Date: "2024-03-10", Type: MetricSleepREM, Value: 1.8 * 3600},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.InDelta(t, 4.5, *row.CoreSleepHours, 1e-9)
	require.InDelta(t, 1.2, *row.DeepSleepHours, 1e-9)
	require.InDelta(t, 1.8, *row.REMSleepHours, 1e-9)
	require.InDelta(t, 7.5, *row.TotalSleepHours, 1e-9)
}

func TestBuildRowsTotalCaloriesSumsPresent(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 500},
		{Date: "2024-03-10", Type: MetricBasalEnergy, Value: 1500},
		{Date: "2024-03-11", Type: MetricActiveEnergy, Value: 400},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.InDelta(t, 2000, *rows[0].TotalCalories, 1e-9)

	// Only active present: total is the active value, basal stays nil.
	require.Nil(t, rows[1].BasalCalories)
	require.InDelta(t, 400, *rows[1].TotalCalories, 1e-9)
}

func TestBuildRowsWorkoutColumns(t *testing.T) {
	dist := 5000.0
	elev := 31.14
	summaries := map[Date]DailySummary{
		"2024-03-10": {
			Date:            "2024-03-10",
			DurationSeconds: 4200,
			DistanceM:       &dist,
			ElevationGainM:  &elev,
			DurationByType: map[WorkoutType]float64{
				WorkoutRunning:          1800,
				WorkoutStrengthTraining: 2100,
				"Yoga":                  300,
			},
		},
	}

	rows, err := BuildRows(nil, summaries)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.InDelta(t, 30, *row.RunningMinutes, 1e-9)
	require.InDelta(t, 35, *row.StrengthTrainingMinutes, 1e-9)
	require.InDelta(t, 5, *row.OtherWorkoutMinutes, 1e-9)
	require.Nil(t, row.HIITMinutes)
	require.Nil(t, row.CoreTrainingMinutes)
	require.InDelta(t, 70, *row.TotalWorkoutMinutes, 1e-9)
	require.InDelta(t, 5000, *row.WorkoutDistanceM, 1e-9)
	require.InDelta(t, 31.1, *row.WorkoutElevationGainM, 1e-9)
	require.True(t, row.Exercised)
}

func TestBuildRowsUnionOfDatesSorted(t *testing.T) {
	summaries := map[Date]DailySummary{
		"2024-03-12": {
			Date:            "2024-03-12",
			DurationSeconds: 600,
			DurationByType:  map[WorkoutType]float64{WorkoutCoreTraining: 600},
		},
	}
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 100},
		{Date: "2024-03-14", Type: MetricActiveEnergy, Value: 200},
	}, summaries)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	require.Equal(t, Date("2024-03-10"), rows[0].Date)
	require.Equal(t, Date("2024-03-12"), rows[1].Date)
	require.Equal(t, Date("2024-03-14"), rows[2].Date)

	// Gap days produce no row at all.
	for _, row := range rows {
		require.NotEqual(t, Date("2024-03-11"), row.Date)
		require.NotEqual(t, Date("2024-03-13"), row.Date)
	}
}

func TestBuildRowsNextNightSleep(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 100},
		{Date: "2024-03-11", Type: MetricSleepCore, Value: 5 * 3600},
		{Date: "2024-03-11", Type: MetricSleepDeep, Value: 1 * 3600},
		{Date: "2024-03-11", Type: MetricSleepREM, Value: 1.5 * 3600},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// 2024-03-10 sees the following night's sleep.
	first := rows[0]
	require.InDelta(t, 5, *first.CoreSleepHoursNextNight, 1e-9)
	require.InDelta(t, 1, *first.DeepSleepHoursNextNight, 1e-9)
	require.InDelta(t, 1.5, *first.REMSleepHoursNextNight, 1e-9)
	require.InDelta(t, 7.5, *first.TotalSleepHoursNextNight, 1e-9)

	// The last row has no following day.
	require.Nil(t, rows[1].CoreSleepHoursNextNight)
	require.Nil(t, rows[1].TotalSleepHoursNextNight)
}

func TestBuildRowsNextNightSkipsGapDays(t *testing.T) {
	// 2024-03-12 is not the day after 2024-03-10, so its sleep must not
	// leak into the earlier row.
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 100},
		{Date: "2024-03-12", Type: MetricSleepCore, Value: 6 * 3600},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Nil(t, rows[0].CoreSleepHoursNextNight)
	require.Nil(t, rows[0].TotalSleepHoursNextNight)
}

func TestBuildRowsWorkoutIndicators(t *testing.T) {
	summaries := map[Date]DailySummary{
		"2024-03-10": {
			Date:            "2024-03-10",
			DurationSeconds: 2400,
			DurationByType: map[WorkoutType]float64{
				WorkoutRunning:      1800,
				WorkoutCoreTraining: 600,
			},
		},
	}

	rows, err := BuildRows(nil, summaries)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.True(t, row.Ran)
	require.True(t, row.CoreTrained)
	require.False(t, row.StrengthTrained)
	require.False(t, row.HIITTrained)
	require.True(t, row.Exercised)
}

func TestBuildRowsWeekEndingDate(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-08", Type: MetricActiveEnergy, Value: 100}, // Friday
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 100}, // Sunday
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Week ends on Sunday; a Sunday ends its own week.
	require.Equal(t, Date("2024-03-10"), rows[0].WeekEndingDate)
	require.Equal(t, Date("2024-03-10"), rows[1].WeekEndingDate)
}

func TestBuildRowsWeekday(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 100},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "Sunday", rows[0].Weekday)
}

func TestBuildRowsRounding(t *testing.T) {
	rows, err := BuildRows([]DailyMetric{
		{Date: "2024-03-10", Type: MetricRestingHeartRate, Value: 51.666},
		{Date: "2024-03-10", Type: MetricVO2Max, Value: 41.234},
		{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 523.6},
	}, nil)
	require.NoError(t, err)

	row := rows[0]
	require.InDelta(t, 51.7, *row.RestingHeartRateBPM, 1e-9)
	require.InDelta(t, 41.2, *row.VO2Max, 1e-9)
	require.InDelta(t, 524, *row.ActiveCalories, 1e-9)
}
