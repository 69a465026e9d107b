package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rec(t MetricType, date Date, value float64, start, end time.Time) NormalizedRecord {
	return NormalizedRecord{Type: t, LocalDate: date, Value: value, StartUTC: start, EndUTC: end}
}

func TestAggregateSumsEnergy(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	out := Aggregate([]NormalizedRecord{
		rec(MetricActiveEnergy, "2024-03-10", 100, start, start.Add(time.Hour)),
		rec(MetricActiveEnergy, "2024-03-10", 50, start.Add(2*time.Hour), start.Add(3*time.Hour)),
	})

	require.Len(t, out, 1)
	require.Equal(t, DailyMetric{Date: "2024-03-10", Type: MetricActiveEnergy, Value: 150}, out[0])
}

func TestAggregateMeansPointSamples(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	out := Aggregate([]NormalizedRecord{
		rec(MetricRestingHeartRate, "2024-03-10", 48, start, start),
		rec(MetricRestingHeartRate, "2024-03-10", 52, start.Add(time.Hour), start.Add(time.Hour)),
		rec(MetricVO2Max, "2024-03-10", 41.5, start, start),
	})

	require.Len(t, out, 2)
	require.Equal(t, MetricRestingHeartRate, out[0].Type)
	require.InDelta(t, 50, out[0].Value, 1e-9)
	require.Equal(t, MetricVO2Max, out[1].Type)
	require.InDelta(t, 41.5, out[1].Value, 1e-9)
}

func TestAggregateSumsSleepIntervalDurations(t *testing.T) {
	// Sleep stage values come from interval length, not the record value.
	night := time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)

	out := Aggregate([]NormalizedRecord{
		rec(MetricSleepDeep, "2024-03-09", 0, night, night.Add(90*time.Minute)),
		rec(MetricSleepDeep, "2024-03-09", 0, night.Add(4*time.Hour), night.Add(4*time.Hour+30*time.Minute)),
	})

	require.Len(t, out, 1)
	require.InDelta(t, (90+30)*60, out[0].Value, 1e-9)
}

func TestAggregateIsIdempotentUnderDuplication(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	records := []NormalizedRecord{
		rec(MetricActiveEnergy, "2024-03-10", 100, start, start.Add(time.Hour)),
		rec(MetricBasalEnergy, "2024-03-10", 1500, start, start.Add(24*time.Hour)),
	}

	once := Aggregate(records)
	twice := Aggregate(append(append([]NormalizedRecord{}, records...), records...))
	require.Equal(t, once, twice)
}

func TestDedupePreservesDistinctRecords(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	// Same value, different window: both are real observations.
	records := []NormalizedRecord{
		rec(MetricActiveEnergy, "2024-03-10", 100, start, start.Add(time.Hour)),
		rec(MetricActiveEnergy, "2024-03-10", 100, start.Add(2*time.Hour), start.Add(3*time.Hour)),
	}
	require.Len(t, Dedupe(records), 2)

	// Identical in type, window, and value: one survives, order preserved.
	dup := append(records, records[0])
	deduped := Dedupe(dup)
	require.Len(t, deduped, 2)
	require.Equal(t, records, deduped)
}

func TestDedupeKeepsDifferentSources(t *testing.T) {
	// Source is not part of identity: watch and phone reporting the same
	// observation collapse to one record.
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	a := rec(MetricActiveEnergy, "2024-03-10", 100, start, start.Add(time.Hour))
	a.Source = "Watch"
	b := a
	b.Source = "Phone"

	require.Len(t, Dedupe([]NormalizedRecord{a, b}), 1)
}

func TestAggregateOrdersByDateThenType(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	out := Aggregate([]NormalizedRecord{
		rec(MetricVO2Max, "2024-03-11", 40, start, start),
		rec(MetricActiveEnergy, "2024-03-11", 200, start, start.Add(time.Hour)),
		rec(MetricActiveEnergy, "2024-03-10", 100, start, start.Add(time.Hour)),
	})

	require.Len(t, out, 3)
	require.Equal(t, Date("2024-03-10"), out[0].Date)
	require.Equal(t, Date("2024-03-11"), out[1].Date)
	require.Equal(t, MetricActiveEnergy, out[1].Type)
	require.Equal(t, MetricVO2Max, out[2].Type)
}

func TestAggregateIgnoresWorkoutStreams(t *testing.T) {
	start := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	r := rec(MetricWorkoutDuration, "2024-03-10", 1800, start, start.Add(30*time.Minute))
	r.WorkoutType = WorkoutRunning

	require.Empty(t, Aggregate([]NormalizedRecord{r}))
}
