package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-market-lab/internal/domain"
	"car-market-lab/internal/storage"
	"car-market-lab/internal/storage/clickhouse"
)

func snapshot(runID string, setIndex int, createdAt time.Time) *domain.MetricsSnapshot {
	return &domain.MetricsSnapshot{
		RunID:       runID,
		SetIndex:    setIndex,
		Description: "model=Model 3",
		CurrentYear: 2024,
		Metrics: domain.Metrics{
			AveragePrice:            ptr(289450.0),
			AveragePricePerDistance: ptr(812.5),
			SampleSize:              2,
		},
		CreatedAt: createdAt,
	}
}

func TestSnapshotStore_InsertAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewSnapshotStore(conn)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{
		snapshot("run-1", 1, now),
		snapshot("run-1", 0, now),
	})
	require.NoError(t, err)

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].SetIndex)
	assert.Equal(t, 1, got[1].SetIndex)
	assert.Equal(t, "model=Model 3", got[0].Description)
	assert.Equal(t, 2024, got[0].CurrentYear)
	assert.Equal(t, 2, got[0].Metrics.SampleSize)
	require.NotNil(t, got[0].Metrics.AveragePrice)
	assert.InDelta(t, 289450.0, *got[0].Metrics.AveragePrice, 1e-9)
	assert.Nil(t, got[0].Metrics.AverageYearlyDepreciation)
	assert.Nil(t, got[0].Metrics.AverageTimeOnMarket)
	assert.True(t, now.Equal(got[0].CreatedAt))
}

func TestSnapshotStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewSnapshotStore(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.InsertBulk(ctx, []*domain.MetricsSnapshot{snapshot("run-1", 0, now)}))

	err := store.InsertBulk(ctx, []*domain.MetricsSnapshot{snapshot("run-1", 0, now)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.MetricsSnapshot{
		snapshot("run-2", 0, now),
		snapshot("run-2", 0, now),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSnapshotStore_GetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewSnapshotStore(conn)
	ctx := context.Background()
	t1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, store.InsertBulk(ctx, []*domain.MetricsSnapshot{
		snapshot("run-b", 0, t2),
		snapshot("run-a", 1, t1),
		snapshot("run-a", 0, t1),
	}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "run-a", all[0].RunID)
	assert.Equal(t, 0, all[0].SetIndex)
	assert.Equal(t, "run-a", all[1].RunID)
	assert.Equal(t, 1, all[1].SetIndex)
	assert.Equal(t, "run-b", all[2].RunID)
}

func TestSnapshotStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewSnapshotStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.MetricsSnapshot{snapshot("", 0, time.Now())})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
