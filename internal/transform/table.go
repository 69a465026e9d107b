package transform

import (
	"math"
	"sort"
)

// BuildRows merges daily metrics and workout summaries into one wide row
// per local day, ordered by date ascending. Every date appearing in either
// input gets a row; fields with no contributing aggregate stay nil so
// downstream consumers can tell "no data" from zero. Returns ErrEmptyInput
// only when both inputs are entirely empty.
func BuildRows(metrics []DailyMetric, summaries map[Date]DailySummary) ([]DailyRow, error) {
	if len(metrics) == 0 && len(summaries) == 0 {
		return nil, ErrEmptyInput
	}

	byDate := make(map[Date]map[MetricType]float64)
	for _, m := range metrics {
		day := byDate[m.Date]
		if day == nil {
			day = make(map[MetricType]float64)
			byDate[m.Date] = day
		}
		day[m.Type] = m.Value
	}

	dateSet := make(map[Date]struct{}, len(byDate)+len(summaries))
	for d := range byDate {
		dateSet[d] = struct{}{}
	}
	for d := range summaries {
		dateSet[d] = struct{}{}
	}
	dates := make([]Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })

	rows := make([]DailyRow, 0, len(dates))
	for _, date := range dates {
		day := byDate[date]
		row := DailyRow{Date: date, Weekday: date.Weekday(), WeekEndingDate: date.WeekEnding()}

		row.CoreSleepHours = hoursOf(day, MetricSleepCore)
		row.DeepSleepHours = hoursOf(day, MetricSleepDeep)
		row.REMSleepHours = hoursOf(day, MetricSleepREM)
		row.TotalSleepHours = sumPresent(row.CoreSleepHours, row.DeepSleepHours, row.REMSleepHours)

		row.RestingHeartRateBPM = roundedOf(day, MetricRestingHeartRate, 1)
		row.VO2Max = roundedOf(day, MetricVO2Max, 1)

		row.ActiveCalories = roundedOf(day, MetricActiveEnergy, 0)
		row.BasalCalories = roundedOf(day, MetricBasalEnergy, 0)
		row.TotalCalories = sumPresent(row.ActiveCalories, row.BasalCalories)

		if sum, ok := summaries[date]; ok {
			row.StrengthTrainingMinutes = minutes(sum.DurationByType, WorkoutStrengthTraining)
			row.RunningMinutes = minutes(sum.DurationByType, WorkoutRunning)
			row.HIITMinutes = minutes(sum.DurationByType, WorkoutHIIT)
			row.CoreTrainingMinutes = minutes(sum.DurationByType, WorkoutCoreTraining)
			row.OtherWorkoutMinutes = otherMinutes(sum.DurationByType)
			total := roundTo(sum.DurationSeconds/60, 0)
			row.TotalWorkoutMinutes = &total
			row.WorkoutDistanceM = roundPtr(sum.DistanceM, 1)
			row.WorkoutElevationGainM = roundPtr(sum.ElevationGainM, 1)
			row.StrengthTrained = sum.DurationByType[WorkoutStrengthTraining] > 0
			row.Ran = sum.DurationByType[WorkoutRunning] > 0
			row.HIITTrained = sum.DurationByType[WorkoutHIIT] > 0
			row.CoreTrained = sum.DurationByType[WorkoutCoreTraining] > 0
			row.Exercised = sum.DurationSeconds > 0
		}

		rows = append(rows, row)
	}

	// Next-night sleep is the following calendar day's sleep; a gap day
	// leaves the fields nil.
	for i := range rows {
		if i+1 == len(rows) || rows[i+1].Date != rows[i].Date.Next() {
			continue
		}
		rows[i].CoreSleepHoursNextNight = rows[i+1].CoreSleepHours
		rows[i].DeepSleepHoursNextNight = rows[i+1].DeepSleepHours
		rows[i].REMSleepHoursNextNight = rows[i+1].REMSleepHours
		rows[i].TotalSleepHoursNextNight = rows[i+1].TotalSleepHours
	}

	return rows, nil
}

// hoursOf converts a summed stage duration in seconds to hours, one
// decimal, or nil when the day has no record for the stage.
func hoursOf(day map[MetricType]float64, t MetricType) *float64 {
	v, ok := day[t]
	if !ok {
		return nil
	}
	h := roundTo(v/3600, 1)
	return &h
}

func roundedOf(day map[MetricType]float64, t MetricType, decimals int) *float64 {
	v, ok := day[t]
	if !ok {
		return nil
	}
	r := roundTo(v, decimals)
	return &r
}

// sumPresent adds the non-nil terms; all-nil yields nil, never zero.
func sumPresent(terms ...*float64) *float64 {
	var out *float64
	for _, t := range terms {
		if t != nil {
			addTo(&out, *t)
		}
	}
	return out
}

func minutes(byType map[WorkoutType]float64, t WorkoutType) *float64 {
	seconds, ok := byType[t]
	if !ok {
		return nil
	}
	m := roundTo(seconds/60, 0)
	return &m
}

// otherMinutes totals workout types that have no dedicated column.
func otherMinutes(byType map[WorkoutType]float64) *float64 {
	var seconds float64
	found := false
	for t, s := range byType {
		switch t {
		case WorkoutStrengthTraining, WorkoutRunning, WorkoutHIIT, WorkoutCoreTraining:
		default:
			seconds += s
			found = true
		}
	}
	if !found {
		return nil
	}
	m := roundTo(seconds/60, 0)
	return &m
}

func roundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v, decimals)
	return &r
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
