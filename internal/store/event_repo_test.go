package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/domain"
)

func TestEventRepo_AppendAndList(t *testing.T) {
	db := openTestDB(t)
	repo := &EventRepo{}
	ctx := context.Background()
	createPlan(t, db, samplePlan("p-1", "ana", testCreated))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	for i, typ := range []string{domain.EventPlanGenerated, domain.EventMealSubstituted, domain.EventMealSubstituted} {
		require.NoError(t, repo.AppendTx(ctx, tx, domain.PlanEvent{
			PlanID:      "p-1",
			SeqNo:       int64(i + 1),
			EventType:   typ,
			PayloadJSON: "{}",
			CreatedAt:   int64(1000 + i),
		}))
	}
	require.NoError(t, tx.Commit())

	all, err := repo.ListByPlan(ctx, db, "p-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.EventPlanGenerated, all[0].EventType)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.SeqNo)
	}

	since, err := repo.ListByPlan(ctx, db, "p-1", 2)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, int64(3), since[0].SeqNo)
}

func TestEventRepo_DuplicateSeqRejected(t *testing.T) {
	db := openTestDB(t)
	repo := &EventRepo{}
	ctx := context.Background()
	createPlan(t, db, samplePlan("p-1", "ana", testCreated))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	e := domain.PlanEvent{PlanID: "p-1", SeqNo: 1, EventType: domain.EventPlanGenerated, PayloadJSON: "{}", CreatedAt: 1}
	require.NoError(t, repo.AppendTx(ctx, tx, e))
	assert.Error(t, repo.AppendTx(ctx, tx, e))
}

func TestEventRepo_UnknownPlanRejected(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = (&EventRepo{}).AppendTx(ctx, tx, domain.PlanEvent{PlanID: "ghost", SeqNo: 1, EventType: domain.EventPlanGenerated, PayloadJSON: "{}"})
	assert.Error(t, err, "foreign key enforced")
}
