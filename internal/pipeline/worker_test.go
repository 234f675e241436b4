package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/data/repos/testutil"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/types"
)

func TestWorkerProcessesBacklog(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := newTestEnv(t, positiveUX())
	company := testutil.SeedCompany(t, ctx, env.db, "kr.co.kbstar")
	testutil.SeedDepartment(t, ctx, env.db, "UX팀", []string{"UX"})
	for i := 0; i < 3; i++ {
		testutil.SeedReview(t, ctx, env.db, company.ID, "앱이 정말 편리해요")
	}

	worker, err := NewWorker(env.pipeline, env.reviews, app.PipelineConfig{
		MaxAttempts:     5,
		RetryDelay:      time.Minute,
		StaleProcessing: time.Hour,
		ProcessTimeout:  5 * time.Second,
		WorkerPoolSize:  2,
		PollInterval:    20 * time.Millisecond,
	}, testutil.Logger(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		processed, err := env.reviews.List(dbctx.Context{Ctx: context.Background()}, repos.ReviewListFilter{
			State: types.ReviewStateProcessed,
		})
		return err == nil && len(processed) == 3
	}, 5*time.Second, 25*time.Millisecond, "worker drains the backlog")

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
