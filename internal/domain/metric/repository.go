package metric

import (
	"context"
	"time"
)

// RetentionDays is the trailing window kept in the reading history; older
// entries are pruned on every write.
const RetentionDays = 90

// HistoryRepository defines reading history persistence.
type HistoryRepository interface {
	// Append stores a reading and prunes entries older than RetentionDays.
	Append(ctx context.Context, r Reading) error
	// ListSince returns readings for a metric at or after since, oldest first.
	ListSince(ctx context.Context, name string, since time.Time) ([]Reading, error)
	// Names returns the distinct metric names with history.
	Names(ctx context.Context) ([]string, error)
}
