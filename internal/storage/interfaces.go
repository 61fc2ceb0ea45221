package storage

import (
	"context"

	"car-market-lab/internal/domain"
)

// ListingStore provides access to listings storage.
// Listings are keyed by ID (derived from URL) and returned in insertion order.
type ListingStore interface {
	// Insert adds a new listing. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, l *domain.Listing) error

	// InsertBulk adds multiple listings atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, listings []*domain.Listing) error

	// InsertMissing adds the listings whose ID is not yet stored and skips the rest.
	// Returns the number of listings inserted. Used for repeated imports of the same document.
	InsertMissing(ctx context.Context, listings []*domain.Listing) (int, error)

	// GetByID retrieves a listing by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Listing, error)

	// GetAll retrieves every listing in insertion order.
	GetAll(ctx context.Context) ([]*domain.Listing, error)

	// Count returns the number of stored listings.
	Count(ctx context.Context) (int, error)
}

// SnapshotStore provides access to metrics_snapshots storage.
type SnapshotStore interface {
	// InsertBulk adds all snapshots of one or more runs.
	// Fails entire batch on duplicate (run_id, set_index).
	InsertBulk(ctx context.Context, snapshots []*domain.MetricsSnapshot) error

	// GetByRun retrieves snapshots for a run, ordered by set_index ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.MetricsSnapshot, error)

	// GetAll retrieves every snapshot, ordered by created_at, run_id, set_index.
	GetAll(ctx context.Context) ([]*domain.MetricsSnapshot, error)
}
