package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

const insertListingQuery = `
	INSERT INTO listings (
		id, url, status, price, mileage, model_year, power,
		make, model, fuel_type, drivetrain, transmission, battery_capacity,
		service_history, condition, seller_type,
		sold_date, last_checked, price_per_10k
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`

const selectListingColumns = `
	SELECT id, url, status, price, mileage, model_year, power,
		make, model, fuel_type, drivetrain, transmission, battery_capacity,
		service_history, condition, seller_type,
		sold_date, last_checked, price_per_10k
	FROM listings
`

func listingArgs(l *domain.Listing) []any {
	return []any{
		l.ID, l.URL, string(l.Status), l.Price, l.Mileage, l.ModelYear, l.Power,
		l.Make, l.Model, l.FuelType, l.Drivetrain, l.Transmission, l.BatteryCapacity,
		l.ServiceHistory, l.Condition, l.SellerType,
		l.SoldDate, l.LastCheckedDate, l.PricePer10k,
	}
}

func validListing(l *domain.Listing) bool {
	return l != nil && l.ID != "" && l.URL != ""
}

// Insert adds a new listing. Returns ErrDuplicateKey if the ID exists.
func (s *ListingStore) Insert(ctx context.Context, l *domain.Listing) (err error) {
	defer observe("insert", time.Now(), &err)
	if !validListing(l) {
		return storage.ErrInvalidInput
	}
	if _, err := s.pool.Exec(ctx, insertListingQuery, listingArgs(l)...); err != nil {
		return mapError("insert listing", err)
	}
	return nil
}

// InsertBulk adds multiple listings atomically. Fails entire batch on any duplicate.
func (s *ListingStore) InsertBulk(ctx context.Context, listings []*domain.Listing) (err error) {
	defer observe("insert_bulk", time.Now(), &err)
	if len(listings) == 0 {
		return nil
	}
	for _, l := range listings {
		if !validListing(l) {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range listings {
		if _, err := tx.Exec(ctx, insertListingQuery, listingArgs(l)...); err != nil {
			return mapError("insert listing", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertMissing adds the listings whose ID is not yet stored, in one transaction.
// Conflicting rows (by id or url) are skipped.
func (s *ListingStore) InsertMissing(ctx context.Context, listings []*domain.Listing) (inserted int, err error) {
	defer observe("insert_missing", time.Now(), &err)
	if len(listings) == 0 {
		return 0, nil
	}
	for _, l := range listings {
		if !validListing(l) {
			return 0, storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insertListingQuery+" ON CONFLICT DO NOTHING", listingArgs(l)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range listings {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, mapError("insert listing", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// GetByID retrieves a listing by ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(ctx context.Context, id string) (l *domain.Listing, err error) {
	defer observe("get_by_id", time.Now(), &err)
	l, err = scanListing(s.pool.QueryRow(ctx, selectListingColumns+" WHERE id = $1", id))
	if err != nil {
		return nil, mapError("get listing by id", err)
	}
	return l, nil
}

// GetAll retrieves every listing in insertion order.
func (s *ListingStore) GetAll(ctx context.Context) (listings []*domain.Listing, err error) {
	defer observe("get_all", time.Now(), &err)
	rows, err := s.pool.Query(ctx, selectListingColumns+" ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("get all listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}
	return listings, nil
}

// Count returns the number of stored listings.
func (s *ListingStore) Count(ctx context.Context) (n int, err error) {
	defer observe("count", time.Now(), &err)
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return int(count), nil
}

// scanListing scans a single row into a Listing.
func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var status string

	err := row.Scan(
		&l.ID, &l.URL, &status, &l.Price, &l.Mileage, &l.ModelYear, &l.Power,
		&l.Make, &l.Model, &l.FuelType, &l.Drivetrain, &l.Transmission, &l.BatteryCapacity,
		&l.ServiceHistory, &l.Condition, &l.SellerType,
		&l.SoldDate, &l.LastCheckedDate, &l.PricePer10k,
	)
	if err != nil {
		return nil, err
	}

	l.Status = domain.Status(status)
	if l.SoldDate != nil {
		t := l.SoldDate.UTC()
		l.SoldDate = &t
	}
	if l.LastCheckedDate != nil {
		t := l.LastCheckedDate.UTC()
		l.LastCheckedDate = &t
	}
	return &l, nil
}
