package transform

import "sort"

type reduction int

const (
	reduceNone reduction = iota
	reduceSum
	reduceMean
	reduceDurationSum
)

// reductionTable fixes the daily reduction policy per metric. Workout
// streams are deliberately absent: the segmenter consumes them.
var reductionTable = map[MetricType]reduction{
	MetricActiveEnergy:     reduceSum,
	MetricBasalEnergy:      reduceSum,
	MetricRestingHeartRate: reduceMean,
	MetricVO2Max:           reduceMean,
	MetricSleepCore:        reduceDurationSum,
	MetricSleepDeep:        reduceDurationSum,
	MetricSleepREM:         reduceDurationSum,
}

// Dedupe removes structural duplicates: records identical in metric type,
// workout type, start, end, and value. Re-exports of the same data reduce
// to one copy, making downstream aggregation idempotent. Order of first
// occurrence is preserved.
func Dedupe(records []NormalizedRecord) []NormalizedRecord {
	type key struct {
		metricType  MetricType
		workoutType WorkoutType
		start       int64
		end         int64
		value       float64
	}

	seen := make(map[key]struct{}, len(records))
	out := make([]NormalizedRecord, 0, len(records))
	for _, r := range records {
		k := key{r.Type, r.WorkoutType, r.StartUTC.UnixNano(), r.EndUTC.UnixNano(), r.Value}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Aggregate groups records by (local date, metric type) and applies the
// metric's reduction policy: sum for additive metrics, arithmetic mean for
// point samples, and summed interval duration for sleep stages. Input is
// deduplicated first, so aggregating the same raw set twice yields the
// same result. Pairs with no records produce no row. Output is sorted by
// date then metric type.
func Aggregate(records []NormalizedRecord) []DailyMetric {
	records = Dedupe(records)

	type key struct {
		date Date
		t    MetricType
	}
	type acc struct {
		sum   float64
		count int
	}

	groups := make(map[key]*acc)
	for _, r := range records {
		policy := reductionTable[r.Type]
		if policy == reduceNone {
			continue
		}

		k := key{r.LocalDate, r.Type}
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}

		switch policy {
		case reduceSum, reduceMean:
			a.sum += r.Value
		case reduceDurationSum:
			a.sum += r.EndUTC.Sub(r.StartUTC).Seconds()
		}
		a.count++
	}

	out := make([]DailyMetric, 0, len(groups))
	for k, a := range groups {
		value := a.sum
		if reductionTable[k.t] == reduceMean {
			value = a.sum / float64(a.count)
		}
		out = append(out, DailyMetric{Date: k.date, Type: k.t, Value: value})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// isWorkoutStream reports whether a metric belongs to the segmenter's
// input rather than the daily aggregator's.
func isWorkoutStream(t MetricType) bool {
	switch t {
	case MetricWorkoutDuration, MetricWorkoutDistance, MetricWorkoutElevation:
		return true
	}
	return false
}
