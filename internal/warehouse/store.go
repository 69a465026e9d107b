// Package warehouse loads pipeline output into an analytical store. All
// writes are idempotent upserts: daily rows key on their local date,
// workout sessions on (type, start), so re-running the pipeline on the
// same export converges instead of duplicating.
package warehouse

import (
	"context"
	"time"

	"github.com/pabloandrewguevara/healthkit/internal/transform"
)

// Store is the load-stage surface the pipeline writes to.
type Store interface {
	UpsertDailyRows(ctx context.Context, rows []transform.DailyRow) (int, error)
	UpsertWorkoutSessions(ctx context.Context, sessions []transform.WorkoutSession) (int, error)
	RecordRun(ctx context.Context, run Run) error
	Close() error
}

// Run is one pipeline execution's bookkeeping entry.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	RecordsRead      int
	RecordsSkipped   int
	RowsUpserted     int
	SessionsUpserted int
}
