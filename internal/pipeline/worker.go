package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/clients/llm"
	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/platform/logger"
)

// Worker polls for runnable reviews and runs them through the pipeline on a
// bounded goroutine pool. Claiming flips a review to processing, so multiple
// worker processes can poll the same database without double work.
type Worker struct {
	pipeline *Pipeline
	reviews  repos.ReviewRepo
	cfg      app.PipelineConfig
	pool     *ants.Pool
	log      *logger.Logger

	wg sync.WaitGroup
}

func NewWorker(p *Pipeline, reviews repos.ReviewRepo, cfg app.PipelineConfig, baseLog *logger.Logger) (*Worker, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	return &Worker{
		pipeline: p,
		reviews:  reviews,
		cfg:      cfg,
		pool:     pool,
		log:      baseLog.With("component", "Worker"),
	}, nil
}

// Run blocks until ctx is cancelled, polling every PollInterval and
// draining the runnable backlog each tick. In-flight reviews finish before
// Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker started",
		"pool_size", w.cfg.WorkerPoolSize,
		"poll_interval", w.cfg.PollInterval,
	)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.pool.Release()
			w.log.Info("Worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain claims runnable reviews until the backlog is empty, the pool pushes
// back, or ctx ends. Submit blocks when every pool worker is busy, which
// naturally throttles claiming.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		review, err := w.reviews.ClaimNextPending(ctx, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleProcessing)
		if err != nil {
			w.log.Error("Claim failed", "error", err)
			return
		}
		if review == nil {
			return
		}

		id := review.ID
		w.wg.Add(1)
		if err := w.pool.Submit(func() {
			defer w.wg.Done()
			w.processOne(ctx, id)
		}); err != nil {
			w.wg.Done()
			w.log.Error("Pool submit failed", "review_id", id, "error", err)
			return
		}
	}
}

func (w *Worker) processOne(ctx context.Context, reviewID int64) {
	processCtx := ctx
	if w.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, w.cfg.ProcessTimeout)
		defer cancel()
	}

	if _, err := w.pipeline.Process(processCtx, reviewID); err != nil {
		// Process already recorded the failure; retryable ones come back
		// through the next poll once the retry delay passes.
		w.log.Debug("Processing attempt failed",
			"review_id", reviewID,
			"retryable", llm.IsRetryable(err),
		)
	}
}
