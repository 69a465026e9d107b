package transform

import (
	"sort"
	"time"
)

// Segment groups workout records into discrete sessions. Records of each
// workout type are sorted by start, then end, then source (so ties resolve
// deterministically) and scanned once; a new session opens whenever the gap
// from the previous session's end exceeds mergeGap. Duration accumulates
// from the duration stream; distance and elevation sum from theirs, or stay
// nil when the stream contributed nothing to the session. Sessions of one
// type never overlap. Output is sorted by start time, then type.
func Segment(records []NormalizedRecord, mergeGap time.Duration) []WorkoutSession {
	byType := make(map[WorkoutType][]NormalizedRecord)
	for _, r := range records {
		if !isWorkoutStream(r.Type) || r.WorkoutType == "" {
			continue
		}
		byType[r.WorkoutType] = append(byType[r.WorkoutType], r)
	}

	var sessions []WorkoutSession
	for workoutType, recs := range byType {
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].StartUTC.Equal(recs[j].StartUTC) {
				return recs[i].StartUTC.Before(recs[j].StartUTC)
			}
			if !recs[i].EndUTC.Equal(recs[j].EndUTC) {
				return recs[i].EndUTC.Before(recs[j].EndUTC)
			}
			return recs[i].Source < recs[j].Source
		})

		var cur *WorkoutSession
		for _, r := range recs {
			if cur == nil || r.StartUTC.Sub(cur.EndUTC) > mergeGap {
				sessions = appendSession(sessions, cur)
				cur = &WorkoutSession{
					Date:     r.LocalDate,
					Type:     workoutType,
					StartUTC: r.StartUTC,
					EndUTC:   r.EndUTC,
				}
			}
			if r.EndUTC.After(cur.EndUTC) {
				cur.EndUTC = r.EndUTC
			}

			switch r.Type {
			case MetricWorkoutDuration:
				cur.DurationSeconds += r.Value
			case MetricWorkoutDistance:
				addTo(&cur.DistanceM, r.Value)
			case MetricWorkoutElevation:
				addTo(&cur.ElevationGainM, r.Value)
			}
		}
		sessions = appendSession(sessions, cur)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartUTC.Equal(sessions[j].StartUTC) {
			return sessions[i].StartUTC.Before(sessions[j].StartUTC)
		}
		return sessions[i].Type < sessions[j].Type
	})
	return sessions
}

func appendSession(sessions []WorkoutSession, s *WorkoutSession) []WorkoutSession {
	if s == nil {
		return sessions
	}
	return append(sessions, *s)
}

// addTo adds v into a nilable accumulator, allocating on first use so that
// absence stays distinguishable from an accumulated zero.
func addTo(acc **float64, v float64) {
	if *acc == nil {
		*acc = new(float64)
	}
	**acc += v
}

// SummarizeByDay groups sessions by local date. Durations sum across all
// sessions; distance and elevation sum with nils excluded, and a day whose
// sessions are all nil for a stream stays nil for that stream.
func SummarizeByDay(sessions []WorkoutSession) map[Date]DailySummary {
	summaries := make(map[Date]DailySummary)
	for _, s := range sessions {
		sum, ok := summaries[s.Date]
		if !ok {
			sum = DailySummary{Date: s.Date, DurationByType: make(map[WorkoutType]float64)}
		}

		sum.DurationSeconds += s.DurationSeconds
		sum.DurationByType[s.Type] += s.DurationSeconds
		if s.DistanceM != nil {
			addTo(&sum.DistanceM, *s.DistanceM)
		}
		if s.ElevationGainM != nil {
			addTo(&sum.ElevationGainM, *s.ElevationGainM)
		}

		summaries[s.Date] = sum
	}
	return summaries
}
