package storage

import (
	"context"
	"time"

	"bymarket/adradar/internal/extractor"
)

// TrackedQuery is a subscriber's saved search URL being polled for new
// listings. Created by the registration flow after a one-shot trial
// extraction succeeds; polled until deactivated or deleted.
type TrackedQuery struct {
	ID           int64
	OwnerID      int64
	URL          string
	Platform     extractor.Platform
	Active       bool
	FailureCount int
	LastPolledAt *time.Time
	CreatedAt    time.Time
}

// PersistedAd is a normalized ad bound to its owning tracked query. The
// existence of a row for a (query id, external id) pair is the sole
// deduplication signal; rows are never mutated.
type PersistedAd struct {
	ID      int64 `json:"id"`
	QueryID int64 `json:"query_id"`
	extractor.NormalizedAd
	CreatedAt time.Time `json:"created_at"`
}

// Gateway is the persistence collaborator consumed by the scheduler.
type Gateway interface {
	// ListActiveQueries returns every tracked query eligible for polling.
	ListActiveQueries(ctx context.Context) ([]TrackedQuery, error)

	// RecordPoll updates the query's last-polled timestamp.
	RecordPoll(ctx context.Context, queryID int64) error

	// ResetFailures zeroes the query's consecutive-failure counter.
	ResetFailures(ctx context.Context, queryID int64) error

	// IncrementFailures bumps the counter and returns the new count.
	IncrementFailures(ctx context.Context, queryID int64) (int, error)

	// Deactivate excludes the query from future cycles until it is
	// manually reactivated by an external action.
	Deactivate(ctx context.Context, queryID int64) error

	// InsertAdIfAbsent stores the ad under (queryID, ad.ExternalID) with
	// insert-or-ignore semantics. It reports whether the row was newly
	// inserted; only newly inserted records count as "new".
	InsertAdIfAbsent(ctx context.Context, queryID int64, ad extractor.NormalizedAd) (bool, *PersistedAd, error)
}
