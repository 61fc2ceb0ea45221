package memory

import (
	"context"
	"sort"
	"sync"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
)

type snapshotKey struct {
	runID    string
	setIndex int
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.MetricsSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.MetricsSnapshot),
	}
}

// InsertBulk adds snapshots atomically. Fails entire batch on duplicate (run_id, set_index).
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.MetricsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[snapshotKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" || snap.SetIndex < 0 {
			return storage.ErrInvalidInput
		}
		key := snapshotKey{snap.RunID, snap.SetIndex}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, snap := range snapshots {
		snapCopy := copySnapshot(snap)
		s.data[snapshotKey{snap.RunID, snap.SetIndex}] = snapCopy
	}
	return nil
}

// GetByRun retrieves snapshots for a run, ordered by set_index ASC.
func (s *SnapshotStore) GetByRun(_ context.Context, runID string) ([]*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricsSnapshot
	for key, snap := range s.data {
		if key.runID == runID {
			result = append(result, copySnapshot(snap))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SetIndex < result[j].SetIndex
	})
	return result, nil
}

// GetAll retrieves every snapshot, ordered by created_at, run_id, set_index.
func (s *SnapshotStore) GetAll(_ context.Context) ([]*domain.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MetricsSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, copySnapshot(snap))
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		return a.SetIndex < b.SetIndex
	})
	return result, nil
}

// copySnapshot deep-copies the nullable metric fields.
func copySnapshot(snap *domain.MetricsSnapshot) *domain.MetricsSnapshot {
	c := *snap
	c.Metrics.AveragePrice = copyFloat(snap.Metrics.AveragePrice)
	c.Metrics.AveragePricePerDistance = copyFloat(snap.Metrics.AveragePricePerDistance)
	c.Metrics.AverageYearlyDepreciation = copyFloat(snap.Metrics.AverageYearlyDepreciation)
	c.Metrics.AverageTimeOnMarket = copyFloat(snap.Metrics.AverageTimeOnMarket)
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
