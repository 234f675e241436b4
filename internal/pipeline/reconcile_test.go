package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reai/reai-backend/internal/data/repos/testutil"
)

func TestReconcileReplaysProcessedReviews(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, positiveUX())

	company := testutil.SeedCompany(t, ctx, env.db, "kr.co.kbstar")
	testutil.SeedDepartment(t, ctx, env.db, "UX팀", []string{"UX"})

	var ids []int64
	for i := 0; i < 3; i++ {
		review := testutil.SeedReview(t, ctx, env.db, company.ID, "앱이 정말 편리해요")
		_, err := env.pipeline.Process(ctx, review.ID)
		require.NoError(t, err)
		ids = append(ids, review.ID)
	}
	// One review never reaches processed state and must not be swept.
	testutil.SeedReview(t, ctx, env.db, company.ID, "아직 처리 전")

	// Simulate lost propagation: derived stores start empty.
	env.cache.sets = nil
	env.search.docs = nil

	report, err := env.pipeline.Reconcile(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Zero(t, report.CacheErrors)
	assert.Zero(t, report.SearchErrors)

	assert.ElementsMatch(t, ids, env.cache.sets)
	require.Len(t, env.search.docs, 3)
	for _, id := range ids {
		doc, ok := env.search.docs[id]
		require.True(t, ok)
		assert.Equal(t, "UX팀", doc.Department)
	}
}

func TestReconcileCountsDerivedStoreErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, positiveUX())

	company := testutil.SeedCompany(t, ctx, env.db, "kr.co.kbstar")
	testutil.SeedDepartment(t, ctx, env.db, "UX팀", []string{"UX"})
	review := testutil.SeedReview(t, ctx, env.db, company.ID, "앱이 정말 편리해요")
	_, err := env.pipeline.Process(ctx, review.ID)
	require.NoError(t, err)

	env.cache.failSet = true
	env.search.failUp = true

	report, err := env.pipeline.Reconcile(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, int64(1), report.CacheErrors)
	assert.Equal(t, int64(1), report.SearchErrors)
}

func TestRemoveReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, positiveUX())

	env.pipeline.RemoveReview(ctx, 42)
	assert.Equal(t, []int64{42}, env.cache.deletes)
	assert.Equal(t, []int64{42}, env.search.deletes)
}
