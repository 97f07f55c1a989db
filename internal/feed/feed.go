package feed

import (
	"context"

	"grider-status-alerts/internal/snapshot"
)

// StatusFetcher retrieves the latest status snapshot from the data feed.
// Implementations return an error for transport and decode failures; an
// upstream payload that reports its own failure comes back as an
// error-tagged snapshot with a nil error.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (snapshot.Snapshot, error)
}
