// Package export reads an Apple Health export archive and yields typed raw
// records for the transform stage.
package export

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pabloandrewguevara/healthkit/internal/transform"
)

// Timestamps in the export carry a numeric offset, e.g.
// "2024-01-01 08:00:00 -0500".
const timeLayout = "2006-01-02 15:04:05 -0700"

// HealthKit identifiers for quantity records the pipeline tracks.
var quantityTypes = map[string]transform.MetricType{
	"HKQuantityTypeIdentifierActiveEnergyBurned": transform.MetricActiveEnergy,
	"HKQuantityTypeIdentifierBasalEnergyBurned":  transform.MetricBasalEnergy,
	"HKQuantityTypeIdentifierRestingHeartRate":   transform.MetricRestingHeartRate,
	"HKQuantityTypeIdentifierVO2Max":             transform.MetricVO2Max,
}

// Sleep stages come from the record's value attribute, not its type.
var sleepStages = map[string]transform.MetricType{
	"HKCategoryValueSleepAnalysisAsleepCore": transform.MetricSleepCore,
	"HKCategoryValueSleepAnalysisAsleepDeep": transform.MetricSleepDeep,
	"HKCategoryValueSleepAnalysisAsleepREM":  transform.MetricSleepREM,
}

const (
	sleepAnalysisType = "HKCategoryTypeIdentifierSleepAnalysis"
	workoutTypePrefix = "HKWorkoutActivityType"
	distanceStatType  = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	elevationMetaKey  = "HKElevationAscended"
	archiveXMLSuffix  = "export.xml"
)

// Stats counts what the reader saw. Untracked identifiers are expected in
// any real export and are never errors.
type Stats struct {
	Records   int
	Workouts  int
	Untracked int
}

// Reader streams raw records out of an export.zip archive or a bare
// export.xml file.
type Reader struct {
	path   string
	logger *slog.Logger
}

func NewReader(path string) *Reader {
	return &Reader{path: path, logger: slog.Default()}
}

// ReadAll parses the whole export into memory. The context is checked
// between elements so a caller can abort a large parse.
func (r *Reader) ReadAll(ctx context.Context) ([]transform.RawRecord, Stats, error) {
	var stats Stats

	src, closer, err := r.open()
	if err != nil {
		return nil, stats, err
	}
	defer closer()

	records, stats, err := r.parse(ctx, src)
	if err != nil {
		return nil, stats, err
	}

	r.logger.Info("Export read",
		"path", r.path,
		"records", stats.Records,
		"workouts", stats.Workouts,
		"untracked", stats.Untracked)
	return records, stats, nil
}

// open returns the XML stream, unwrapping a zip archive when given one.
func (r *Reader) open() (io.Reader, func(), error) {
	if !strings.HasSuffix(r.path, ".zip") {
		f, err := os.Open(r.path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open export: %w", err)
		}
		return f, func() { f.Close() }, nil
	}

	archive, err := zip.OpenReader(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open export archive: %w", err)
	}
	for _, f := range archive.File {
		if strings.HasSuffix(f.Name, archiveXMLSuffix) {
			rc, err := f.Open()
			if err != nil {
				archive.Close()
				return nil, nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
			}
			return rc, func() { rc.Close(); archive.Close() }, nil
		}
	}
	archive.Close()
	return nil, nil, fmt.Errorf("no %s found in archive %s", archiveXMLSuffix, r.path)
}

type xmlRecord struct {
	Type       string `xml:"type,attr"`
	SourceName string `xml:"sourceName,attr"`
	Unit       string `xml:"unit,attr"`
	Value      string `xml:"value,attr"`
	StartDate  string `xml:"startDate,attr"`
	EndDate    string `xml:"endDate,attr"`
}

type xmlWorkout struct {
	ActivityType string `xml:"workoutActivityType,attr"`
	Duration     string `xml:"duration,attr"`
	DurationUnit string `xml:"durationUnit,attr"`
	SourceName   string `xml:"sourceName,attr"`
	StartDate    string `xml:"startDate,attr"`
	EndDate      string `xml:"endDate,attr"`
	Statistics   []struct {
		Type string `xml:"type,attr"`
		Sum  string `xml:"sum,attr"`
		Unit string `xml:"unit,attr"`
	} `xml:"WorkoutStatistics"`
	Metadata []struct {
		Key   string `xml:"key,attr"`
		Value string `xml:"value,attr"`
	} `xml:"MetadataEntry"`
}

func (r *Reader) parse(ctx context.Context, src io.Reader) ([]transform.RawRecord, Stats, error) {
	var (
		out   []transform.RawRecord
		stats Stats
	)

	decoder := xml.NewDecoder(src)
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to parse export XML: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Record":
			var el xmlRecord
			if err := decoder.DecodeElement(&el, &start); err != nil {
				return nil, stats, fmt.Errorf("failed to decode Record element: %w", err)
			}
			rec, ok := r.mapRecord(el)
			if !ok {
				stats.Untracked++
				continue
			}
			out = append(out, rec)
			stats.Records++

		case "Workout":
			var el xmlWorkout
			if err := decoder.DecodeElement(&el, &start); err != nil {
				return nil, stats, fmt.Errorf("failed to decode Workout element: %w", err)
			}
			recs, err := r.mapWorkout(el)
			if err != nil {
				r.logger.Warn("Skipping malformed workout", "error", err)
				stats.Untracked++
				continue
			}
			out = append(out, recs...)
			stats.Workouts++
		}
	}

	return out, stats, nil
}

// mapRecord converts a Record element to a raw record, or reports it as
// untracked. Sleep analysis records are keyed by their value attribute and
// carry their interval duration as the value, in seconds.
func (r *Reader) mapRecord(el xmlRecord) (transform.RawRecord, bool) {
	start, err1 := parseTime(el.StartDate)
	end, err2 := parseTime(el.EndDate)
	if err1 != nil || err2 != nil {
		return transform.RawRecord{}, false
	}

	if el.Type == sleepAnalysisType {
		metric, ok := sleepStages[el.Value]
		if !ok {
			// InBed, Awake, Unspecified, and friends are not tracked.
			return transform.RawRecord{}, false
		}
		return transform.RawRecord{
			Type:   metric,
			Value:  end.Sub(start).Seconds(),
			Unit:   "s",
			Start:  start,
			End:    end,
			Source: el.SourceName,
		}, true
	}

	metric, ok := quantityTypes[el.Type]
	if !ok {
		return transform.RawRecord{}, false
	}
	value, err := strconv.ParseFloat(el.Value, 64)
	if err != nil {
		return transform.RawRecord{}, false
	}
	return transform.RawRecord{
		Type:   metric,
		Value:  value,
		Unit:   el.Unit,
		Start:  start,
		End:    end,
		Source: el.SourceName,
	}, true
}

// mapWorkout expands a Workout element into its record streams: always a
// duration record, plus distance and elevation records when the export
// carries them, all sharing the workout's time window.
func (r *Reader) mapWorkout(el xmlWorkout) ([]transform.RawRecord, error) {
	start, err := parseTime(el.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid workout start %q: %w", el.StartDate, err)
	}
	end, err := parseTime(el.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid workout end %q: %w", el.EndDate, err)
	}
	duration, err := strconv.ParseFloat(el.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid workout duration %q: %w", el.Duration, err)
	}

	workoutType := transform.WorkoutType(strings.TrimPrefix(el.ActivityType, workoutTypePrefix))
	base := transform.RawRecord{
		WorkoutType: workoutType,
		Start:       start,
		End:         end,
		Source:      el.SourceName,
	}

	durationRec := base
	durationRec.Type = transform.MetricWorkoutDuration
	durationRec.Value = duration
	durationRec.Unit = el.DurationUnit
	records := []transform.RawRecord{durationRec}

	for _, stat := range el.Statistics {
		if stat.Type != distanceStatType {
			continue
		}
		sum, err := strconv.ParseFloat(stat.Sum, 64)
		if err != nil {
			continue
		}
		rec := base
		rec.Type = transform.MetricWorkoutDistance
		rec.Value = sum
		rec.Unit = stat.Unit
		records = append(records, rec)
	}

	for _, meta := range el.Metadata {
		if meta.Key != elevationMetaKey {
			continue
		}
		// Elevation arrives as a "value unit" pair, e.g. "3110 cm".
		value, unit, ok := splitValueUnit(meta.Value)
		if !ok {
			continue
		}
		rec := base
		rec.Type = transform.MetricWorkoutElevation
		rec.Value = value
		rec.Unit = unit
		records = append(records, rec)
	}

	return records, nil
}

func splitValueUnit(s string) (float64, string, bool) {
	fields := strings.SplitN(strings.TrimSpace(s), " ", 2)
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", false
	}
	unit := ""
	if len(fields) == 2 {
		unit = strings.TrimSpace(fields[1])
	}
	return value, unit, true
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, strings.TrimSpace(s))
}
