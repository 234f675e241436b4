package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/search"
)

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	Scanned      int   `json:"scanned"`
	CacheErrors  int64 `json:"cache_errors"`
	SearchErrors int64 `json:"search_errors"`
}

const reconcileConcurrency = 4

// Reconcile replays every processed review updated since the given time
// into the cache and the search index. The record store is authoritative,
// so replaying is always safe; stale or missing derived entries converge
// to the stored result. A zero since sweeps everything.
func (p *Pipeline) Reconcile(ctx context.Context, since time.Time) (*ReconcileReport, error) {
	reviews, err := p.reviews.ListProcessedSince(dbctx.Context{Ctx: ctx}, since)
	if err != nil {
		return nil, err
	}

	departmentNames, err := p.departmentNames(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{Scanned: len(reviews)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, review := range reviews {
		review := review
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			var departmentName string
			if review.DepartmentID != nil {
				departmentName = departmentNames[*review.DepartmentID]
			}

			if p.cache != nil {
				if err := p.cache.SetReview(gctx, review); err != nil {
					atomic.AddInt64(&report.CacheErrors, 1)
					p.log.Warn("Reconcile cache write failed", "review_id", review.ID, "error", err)
				}
			}
			if p.search != nil {
				if err := p.search.Upsert(gctx, search.DocumentFromReview(review, departmentName)); err != nil {
					atomic.AddInt64(&report.SearchErrors, 1)
					p.log.Warn("Reconcile search write failed", "review_id", review.ID, "error", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	p.log.Info("Reconciliation sweep finished",
		"scanned", report.Scanned,
		"cache_errors", report.CacheErrors,
		"search_errors", report.SearchErrors,
	)
	return report, nil
}

func (p *Pipeline) departmentNames(dbc dbctx.Context) (map[int64]string, error) {
	all, err := p.departments.List(dbc)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(all))
	for _, d := range all {
		names[d.ID] = d.Name
	}
	return names, nil
}

// RemoveReview clears a deleted review out of the cache and the search
// index. Best effort, same contract as propagation after classification.
func (p *Pipeline) RemoveReview(ctx context.Context, reviewID int64) {
	if p.cache != nil {
		if err := p.cache.InvalidateReview(ctx, reviewID); err != nil {
			p.log.Warn("Cache invalidation failed", "review_id", reviewID, "error", err)
		}
	}
	if p.search != nil {
		if err := p.search.Delete(ctx, reviewID); err != nil {
			p.log.Warn("Search delete failed", "review_id", reviewID, "error", err)
		}
	}
}
