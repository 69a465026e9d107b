package transform

import (
	"fmt"
	"time"
)

// MidnightPolicy controls how records straddling a local midnight are
// attributed to calendar days.
type MidnightPolicy string

const (
	// MidnightStartDay attributes the whole record to the day containing
	// its start. Default.
	MidnightStartDay MidnightPolicy = "start_day"
	// MidnightSplit divides the record at each local midnight, prorating
	// additive values by overlap duration.
	MidnightSplit MidnightPolicy = "split"
)

// Per-dimension conversion factors into the dimension's base unit. Unit
// spellings cover what the Apple Health export emits plus common aliases.
var (
	energyUnits = map[string]float64{
		"kcal": 1,
		"Cal":  1,
		"cal":  0.001,
		"kJ":   1 / 4.184,
		"J":    1 / 4184.0,
	}
	lengthUnits = map[string]float64{
		"m":  1,
		"km": 1000,
		"cm": 0.01,
		"ft": 0.3048,
		"yd": 0.9144,
		"mi": 1609.344,
	}
	durationUnits = map[string]float64{
		"s":   1,
		"sec": 1,
		"min": 60,
		"hr":  3600,
	}
	heartRateUnits = map[string]float64{
		"count/min": 1,
		"bpm":       1,
	}
	vo2MaxUnits = map[string]float64{
		"mL/min·kg":   1,
		"mL/kg·min":   1,
		"ml/kg/min":   1,
		"mL/(kg*min)": 1,
	}
)

type metricUnits struct {
	canonical string
	factors   map[string]float64
}

// metricUnitTable fixes each metric's canonical unit and the input units it
// accepts. Metrics absent from this table are unsupported.
var metricUnitTable = map[MetricType]metricUnits{
	MetricActiveEnergy:     {"kcal", energyUnits},
	MetricBasalEnergy:      {"kcal", energyUnits},
	MetricRestingHeartRate: {"count/min", heartRateUnits},
	MetricVO2Max:           {"mL/min·kg", vo2MaxUnits},
	MetricSleepCore:        {"s", durationUnits},
	MetricSleepDeep:        {"s", durationUnits},
	MetricSleepREM:         {"s", durationUnits},
	MetricWorkoutDuration:  {"s", durationUnits},
	MetricWorkoutDistance:  {"m", lengthUnits},
	MetricWorkoutElevation: {"m", lengthUnits},
}

// Normalizer converts raw records into canonical units and UTC timestamps.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	loc     *time.Location
	policy  MidnightPolicy
	targets map[MetricType]string
}

// NewNormalizer builds a Normalizer for the given local timezone and
// midnight policy. overrides maps a metric type to a target unit that
// replaces the metric's default canonical unit; the unit must be a known
// unit of the metric's dimension.
func NewNormalizer(loc *time.Location, policy MidnightPolicy, overrides map[MetricType]string) (*Normalizer, error) {
	if loc == nil {
		return nil, fmt.Errorf("location is required")
	}
	switch policy {
	case "", MidnightStartDay:
		policy = MidnightStartDay
	case MidnightSplit:
	default:
		return nil, fmt.Errorf("unknown midnight policy %q", policy)
	}

	targets := make(map[MetricType]string, len(overrides))
	for metric, unit := range overrides {
		table, ok := metricUnitTable[metric]
		if !ok {
			return nil, fmt.Errorf("canonical unit override for unknown metric %q", metric)
		}
		if _, ok := table.factors[unit]; !ok {
			return nil, fmt.Errorf("canonical unit override %q is not a known unit for metric %q", unit, metric)
		}
		targets[metric] = unit
	}

	return &Normalizer{loc: loc, policy: policy, targets: targets}, nil
}

// Normalize converts one raw record. It returns *UnsupportedMetricError for
// metrics with no canonical unit (or an unknown unit) and
// *InvalidTimeRangeError when the record's end precedes its start. Records
// without a unit assume the metric's canonical unit.
func (n *Normalizer) Normalize(r RawRecord) (NormalizedRecord, error) {
	table, ok := metricUnitTable[r.Type]
	if !ok {
		return NormalizedRecord{}, &UnsupportedMetricError{Type: r.Type}
	}
	if r.End.Before(r.Start) {
		return NormalizedRecord{}, &InvalidTimeRangeError{Type: r.Type, Start: r.Start, End: r.End}
	}

	unit := r.Unit
	if unit == "" {
		unit = table.canonical
	}
	factor, ok := table.factors[unit]
	if !ok {
		return NormalizedRecord{}, &UnsupportedMetricError{Type: r.Type, Unit: unit}
	}

	target := table.canonical
	if override, ok := n.targets[r.Type]; ok {
		target = override
	}
	value := r.Value * factor / table.factors[target]

	start := r.Start.UTC()
	return NormalizedRecord{
		Type:        r.Type,
		WorkoutType: r.WorkoutType,
		Value:       value,
		LocalDate:   DateOf(start, n.loc),
		StartUTC:    start,
		EndUTC:      r.End.UTC(),
		Source:      r.Source,
	}, nil
}

// NormalizeAll converts a batch, collecting per-record errors into the
// returned Summary instead of failing the batch. Under the split midnight
// policy, additive and interval-state records that straddle a local
// midnight become one record per day.
func (n *Normalizer) NormalizeAll(raw []RawRecord) ([]NormalizedRecord, Summary) {
	out := make([]NormalizedRecord, 0, len(raw))
	var summary Summary

	for _, r := range raw {
		rec, err := n.Normalize(r)
		if err != nil {
			switch err.(type) {
			case *UnsupportedMetricError:
				summary.UnsupportedMetric++
			case *InvalidTimeRangeError:
				summary.InvalidTimeRange++
			}
			continue
		}
		summary.Normalized++

		if n.policy == MidnightSplit && splittable(rec.Type) {
			out = append(out, n.split(rec)...)
		} else {
			out = append(out, rec)
		}
	}

	return out, summary
}

// splittable reports whether a metric may be divided at day boundaries.
// Point samples keep their single observation; workout streams belong to
// the segmenter, which owns session windows.
func splittable(t MetricType) bool {
	switch reductionTable[t] {
	case reduceSum, reduceDurationSum:
		return true
	}
	return false
}

// split divides rec at each local midnight it crosses, prorating the value
// by overlap duration. Records entirely within one day pass through.
func (n *Normalizer) split(rec NormalizedRecord) []NormalizedRecord {
	total := rec.EndUTC.Sub(rec.StartUTC)
	if total <= 0 || DateOf(rec.StartUTC, n.loc) == DateOf(rec.EndUTC.Add(-time.Nanosecond), n.loc) {
		return []NormalizedRecord{rec}
	}

	var parts []NormalizedRecord
	cursor := rec.StartUTC
	for cursor.Before(rec.EndUTC) {
		boundary := nextLocalMidnight(cursor, n.loc)
		chunkEnd := boundary
		if chunkEnd.After(rec.EndUTC) {
			chunkEnd = rec.EndUTC
		}

		part := rec
		part.StartUTC = cursor
		part.EndUTC = chunkEnd
		part.LocalDate = DateOf(cursor, n.loc)
		part.Value = rec.Value * float64(chunkEnd.Sub(cursor)) / float64(total)
		parts = append(parts, part)

		cursor = chunkEnd
	}
	return parts
}

// nextLocalMidnight returns the first local midnight strictly after t,
// expressed in UTC.
func nextLocalMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return midnight.UTC()
}
