package clickhouse

import (
	"context"
	"fmt"
	"time"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const selectSnapshotColumns = `
	SELECT
		run_id, set_index, description, current_year, sample_size,
		average_price, average_price_per_distance, average_yearly_depreciation, average_time_on_market,
		created_at
	FROM metrics_snapshots FINAL
`

// InsertBulk adds snapshots in one batch. Fails entire batch on duplicate (run_id, set_index).
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.MetricsSnapshot) (err error) {
	defer observe("insert_snapshots", time.Now(), &err)
	if len(snapshots) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID    string
		setIndex int
	}
	seen := make(map[key]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" || snap.SetIndex < 0 || snap.SetIndex > 255 {
			return storage.ErrInvalidInput
		}
		k := key{snap.RunID, snap.SetIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// ReplacingMergeTree would silently replace; keep append-only semantics
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.RunID, snap.SetIndex)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metrics_snapshots (
			run_id, set_index, description, current_year, sample_size,
			average_price, average_price_per_distance, average_yearly_depreciation, average_time_on_market,
			created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		m := snap.Metrics
		err = batch.Append(
			snap.RunID, uint8(snap.SetIndex), snap.Description, uint16(snap.CurrentYear), uint32(m.SampleSize),
			m.AveragePrice, m.AveragePricePerDistance, m.AverageYearlyDepreciation, m.AverageTimeOnMarket,
			snap.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves snapshots for a run, ordered by set_index ASC.
func (s *SnapshotStore) GetByRun(ctx context.Context, runID string) (snapshots []*domain.MetricsSnapshot, err error) {
	defer observe("get_snapshots_by_run", time.Now(), &err)
	rows, err := s.conn.Query(ctx, selectSnapshotColumns+`
		WHERE run_id = ?
		ORDER BY set_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetAll retrieves every snapshot, ordered by created_at, run_id, set_index.
func (s *SnapshotStore) GetAll(ctx context.Context) (snapshots []*domain.MetricsSnapshot, err error) {
	defer observe("get_all_snapshots", time.Now(), &err)
	rows, err := s.conn.Query(ctx, selectSnapshotColumns+`
		ORDER BY created_at ASC, run_id ASC, set_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// exists checks if a snapshot with the given key exists.
func (s *SnapshotStore) exists(ctx context.Context, runID string, setIndex int) (bool, error) {
	query := `
		SELECT count(*) FROM metrics_snapshots
		WHERE run_id = ? AND set_index = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID, uint8(setIndex)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.MetricsSnapshot, error) {
	var snapshots []*domain.MetricsSnapshot

	for rows.Next() {
		var snap domain.MetricsSnapshot
		var setIndex uint8
		var currentYear uint16
		var sampleSize uint32
		var createdAt time.Time

		err := rows.Scan(
			&snap.RunID, &setIndex, &snap.Description, &currentYear, &sampleSize,
			&snap.Metrics.AveragePrice, &snap.Metrics.AveragePricePerDistance,
			&snap.Metrics.AverageYearlyDepreciation, &snap.Metrics.AverageTimeOnMarket,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.SetIndex = int(setIndex)
		snap.CurrentYear = int(currentYear)
		snap.Metrics.SampleSize = int(sampleSize)
		snap.CreatedAt = createdAt.UTC()
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}
