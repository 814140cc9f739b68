package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "file::memory:?cache=shared", 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &Record{
		ID:        "layup-1",
		Sequence:  []float64{0, 45, -45, 90, 90, -45, 45, 0},
		Objective: 0.042,
		PlyCount:  8,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Get(ctx, "layup-1")
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Sequence, got.Sequence)
	assert.Equal(t, rec.Objective, got.Objective)
	assert.Equal(t, rec.PlyCount, got.PlyCount)
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, &Record{
			ID:        id,
			Sequence:  []float64{0, 0},
			Objective: float64(i),
			PlyCount:  2,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	records, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].ID, "most recent first")
	assert.Equal(t, "b", records[1].ID)
}

func TestSaveDuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &Record{ID: "dup", Sequence: []float64{0, 0}, Objective: 1, PlyCount: 2}
	require.NoError(t, s.Save(ctx, rec))
	assert.Error(t, s.Save(ctx, rec))
}
