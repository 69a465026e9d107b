package transform

import "time"

// MetricType identifies a tracked health metric. The set is closed: every
// type has a fixed canonical unit and a fixed daily reduction policy.
type MetricType string

const (
	MetricActiveEnergy     MetricType = "active_energy_burned"
	MetricBasalEnergy      MetricType = "basal_energy_burned"
	MetricRestingHeartRate MetricType = "resting_heart_rate"
	MetricVO2Max           MetricType = "vo2_max"
	MetricSleepCore        MetricType = "sleep_core"
	MetricSleepDeep        MetricType = "sleep_deep"
	MetricSleepREM         MetricType = "sleep_rem"

	// Workout record streams. These carry a WorkoutType tag and are
	// consumed by the segmenter, not the daily aggregator.
	MetricWorkoutDuration  MetricType = "workout_duration"
	MetricWorkoutDistance  MetricType = "workout_distance"
	MetricWorkoutElevation MetricType = "workout_elevation_gain"
)

// WorkoutType is the activity type of a workout, e.g. "Running". The four
// types below get dedicated columns in the daily row; anything else is
// rolled into the "other" bucket.
type WorkoutType string

const (
	WorkoutStrengthTraining WorkoutType = "TraditionalStrengthTraining"
	WorkoutRunning          WorkoutType = "Running"
	WorkoutHIIT             WorkoutType = "HighIntensityIntervalTraining"
	WorkoutCoreTraining     WorkoutType = "CoreTraining"
)

// Date is a local calendar day in ISO format (2006-01-02). ISO dates sort
// lexically, so Date values can be compared and ordered as strings.
type Date string

const dateLayout = "2006-01-02"

// DateOf returns the calendar date of t in the given location.
func DateOf(t time.Time, loc *time.Location) Date {
	return Date(t.In(loc).Format(dateLayout))
}

// Time returns midnight UTC of the date. The zero value of the error is
// impossible for dates produced by DateOf.
func (d Date) Time() (time.Time, error) {
	return time.Parse(dateLayout, string(d))
}

// Weekday returns the day-of-week name, e.g. "Monday".
func (d Date) Weekday() string {
	t, err := d.Time()
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	t, err := d.Time()
	if err != nil {
		return ""
	}
	return Date(t.AddDate(0, 0, 1).Format(dateLayout))
}

// WeekEnding returns the Sunday on or after the date. A Sunday is its own
// week-ending date.
func (d Date) WeekEnding() Date {
	t, err := d.Time()
	if err != nil {
		return ""
	}
	days := (7 - int(t.Weekday())) % 7
	return Date(t.AddDate(0, 0, days).Format(dateLayout))
}

// RawRecord is one record as produced by the extract stage. Value is in the
// source's unit; Start and End carry the export's embedded offset.
type RawRecord struct {
	Type        MetricType
	WorkoutType WorkoutType
	Value       float64
	Unit        string
	Start       time.Time
	End         time.Time
	Source      string
}

// NormalizedRecord is a RawRecord converted to the metric's canonical unit
// with UTC timestamps and a local calendar date.
type NormalizedRecord struct {
	Type        MetricType
	WorkoutType WorkoutType
	Value       float64
	LocalDate   Date
	StartUTC    time.Time
	EndUTC      time.Time
	Source      string
}

// DailyMetric is one (date, metric) aggregate. Exactly one per pair.
type DailyMetric struct {
	Date  Date
	Type  MetricType
	Value float64
}

// WorkoutSession is a maximal run of temporally contiguous workout records
// of one type. DistanceM and ElevationGainM are nil when the corresponding
// stream contributed nothing ("not tracked", not zero).
type WorkoutSession struct {
	Date            Date
	Type            WorkoutType
	DurationSeconds float64
	DistanceM       *float64
	ElevationGainM  *float64
	StartUTC        time.Time
	EndUTC          time.Time
}

// DailySummary aggregates the sessions of one local day.
type DailySummary struct {
	Date            Date
	DurationSeconds float64
	DistanceM       *float64
	ElevationGainM  *float64
	DurationByType  map[WorkoutType]float64
}

// DailyRow is the wide output row for one local day. All metric fields are
// pointers so downstream consumers can distinguish "no data" from zero.
type DailyRow struct {
	Date           Date
	Weekday        string
	WeekEndingDate Date

	CoreSleepHours  *float64
	DeepSleepHours  *float64
	REMSleepHours   *float64
	TotalSleepHours *float64

	// Sleep of the following calendar night, nil when the next day has no
	// row or no data for the stage.
	CoreSleepHoursNextNight  *float64
	DeepSleepHoursNextNight  *float64
	REMSleepHoursNextNight   *float64
	TotalSleepHoursNextNight *float64

	RestingHeartRateBPM *float64
	VO2Max              *float64

	ActiveCalories *float64
	BasalCalories  *float64
	TotalCalories  *float64

	StrengthTrainingMinutes *float64
	RunningMinutes          *float64
	HIITMinutes             *float64
	CoreTrainingMinutes     *float64
	OtherWorkoutMinutes     *float64
	TotalWorkoutMinutes     *float64
	WorkoutDistanceM        *float64
	WorkoutElevationGainM   *float64

	StrengthTrained bool
	Ran             bool
	HIITTrained     bool
	CoreTrained     bool
	Exercised       bool
}
