package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
)

func newSnapshot(runID string, setIndex int, createdAt time.Time) *domain.MetricsSnapshot {
	price := 250000.0
	return &domain.MetricsSnapshot{
		RunID:       runID,
		SetIndex:    setIndex,
		Description: "all listings",
		CurrentYear: 2024,
		Metrics:     domain.Metrics{AveragePrice: &price, SampleSize: 4},
		CreatedAt:   createdAt,
	}
}

func TestSnapshotStore_InsertAndGetByRun(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	batch := []*domain.MetricsSnapshot{
		newSnapshot("run-1", 2, now),
		newSnapshot("run-1", 0, now),
		newSnapshot("run-1", 1, now),
		newSnapshot("run-2", 0, now),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(got))
	}
	for i, snap := range got {
		if snap.SetIndex != i {
			t.Errorf("Expected set index %d at position %d, got %d", i, i, snap.SetIndex)
		}
	}
	if got[0].Metrics.AveragePrice == nil || *got[0].Metrics.AveragePrice != 250000 {
		t.Errorf("AveragePrice mismatch: %v", got[0].Metrics.AveragePrice)
	}
}

func TestSnapshotStore_Duplicate(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{newSnapshot("run-1", 0, now)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{
		newSnapshot("run-1", 1, now),
		newSnapshot("run-1", 0, now),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRun(ctx, "run-1")
	if len(got) != 1 {
		t.Errorf("Expected failed batch to insert nothing, got %d snapshots", len(got))
	}
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	store := NewSnapshotStore()
	err := store.InsertBulk(context.Background(), []*domain.MetricsSnapshot{newSnapshot("", 0, time.Now())})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSnapshotStore_GetAllOrdering(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	t1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{
		newSnapshot("run-b", 1, t2),
		newSnapshot("run-b", 0, t2),
		newSnapshot("run-a", 0, t1),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	want := []struct {
		run string
		idx int
	}{{"run-a", 0}, {"run-b", 0}, {"run-b", 1}}
	for i, w := range want {
		if all[i].RunID != w.run || all[i].SetIndex != w.idx {
			t.Errorf("Position %d: got %s/%d, want %s/%d", i, all[i].RunID, all[i].SetIndex, w.run, w.idx)
		}
	}
}

func TestSnapshotStore_ReturnsCopies(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snap := newSnapshot("run-1", 0, time.Now())
	if err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{snap}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	*snap.Metrics.AveragePrice = 1

	got, _ := store.GetByRun(ctx, "run-1")
	if *got[0].Metrics.AveragePrice != 250000 {
		t.Error("Store shares metric pointers with caller")
	}
}
