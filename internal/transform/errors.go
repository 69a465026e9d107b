package transform

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned by BuildRows when there are no daily metrics
// and no workout summaries at all. A run hitting this has no output; it is
// not a pipeline failure.
var ErrEmptyInput = errors.New("no daily metrics or workout summaries to build")

// UnsupportedMetricError marks a record whose metric type has no canonical
// unit, or whose unit is unknown for its metric. The record is skipped.
type UnsupportedMetricError struct {
	Type MetricType
	Unit string
}

func (e *UnsupportedMetricError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("unsupported unit %q for metric %q", e.Unit, e.Type)
	}
	return fmt.Sprintf("no canonical unit for metric type %q", e.Type)
}

// InvalidTimeRangeError marks a record whose end precedes its start. The
// record is skipped.
type InvalidTimeRangeError struct {
	Type  MetricType
	Start time.Time
	End   time.Time
}

func (e *InvalidTimeRangeError) Error() string {
	return fmt.Sprintf("metric %q: end %s precedes start %s",
		e.Type, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

// Summary counts the outcome of a normalization pass. Per-record errors are
// tallied here instead of aborting the run.
type Summary struct {
	Normalized        int
	UnsupportedMetric int
	InvalidTimeRange  int
}

// Skipped returns the total number of records dropped by normalization.
func (s Summary) Skipped() int {
	return s.UnsupportedMetric + s.InvalidTimeRange
}
