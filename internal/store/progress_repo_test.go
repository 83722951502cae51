package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/domain"
)

func TestProgressRepo_RecordAndList(t *testing.T) {
	db := openTestDB(t)
	repo := &ProgressRepo{}
	ctx := context.Background()

	entries := []domain.ProgressEntry{
		{ID: "01A", Owner: "ana", Date: testCreated, WeightKg: 82, HeightCm: 180, IMC: 25.31},
		{ID: "01B", Owner: "ana", Date: testCreated.Add(7 * 24 * time.Hour), WeightKg: 80.5, HeightCm: 180, IMC: 24.85},
		{ID: "01C", Owner: "bia", Date: testCreated, WeightKg: 60, HeightCm: 165, IMC: 22.04},
	}
	for _, e := range entries {
		require.NoError(t, repo.Record(ctx, db, e))
	}

	got, err := repo.ListByOwner(ctx, db, "ana")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entries[1], got[0])
	assert.Equal(t, entries[0], got[1])

	none, err := repo.ListByOwner(ctx, db, "caio")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProgressRepo_DuplicateID(t *testing.T) {
	db := openTestDB(t)
	repo := &ProgressRepo{}
	ctx := context.Background()

	e := domain.ProgressEntry{ID: "01A", Owner: "ana", Date: testCreated, WeightKg: 82, HeightCm: 180, IMC: 25.31}
	require.NoError(t, repo.Record(ctx, db, e))
	assert.Error(t, repo.Record(ctx, db, e))
}
