package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reai/reai-backend/internal/data/repos"
	"github.com/reai/reai-backend/internal/pipeline"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/search"
	"github.com/reai/reai-backend/internal/types"
)

// ReviewCache is the read-through cache surface the service needs. A nil
// cache degrades every read to the record store.
type ReviewCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ReviewKey(id int64) string
	ReviewListKey(companyID int64, sentiment string, departmentID int64, state string, limit int) string
	StatsKey(companyID int64) string
	SetReview(ctx context.Context, review *types.Review) error
	InvalidateReview(ctx context.Context, id int64) error
	InvalidateDerived(ctx context.Context) error
}

// ReviewSearcher runs full-text queries against the search index.
type ReviewSearcher interface {
	Search(ctx context.Context, query string, f search.SearchFilter) ([]search.SearchHit, error)
}

type SubmitReviewInput struct {
	CompanyID  int64     `json:"company_id"`
	Content    string    `json:"content"`
	Rating     int       `json:"rating"`
	Platform   string    `json:"platform"`
	ReviewDate time.Time `json:"review_date"`
}

type ReviewService interface {
	Submit(ctx context.Context, input SubmitReviewInput) (*types.Review, error)
	Get(ctx context.Context, id int64) (*types.Review, error)
	List(ctx context.Context, filter repos.ReviewListFilter) ([]*types.Review, error)
	Search(ctx context.Context, query string, filter search.SearchFilter) ([]search.SearchHit, error)
	Delete(ctx context.Context, id int64) error
	Process(ctx context.Context, id int64) (*pipeline.Outcome, error)
	Reconcile(ctx context.Context, since time.Time) (*pipeline.ReconcileReport, error)
	SentimentStats(ctx context.Context, companyID int64) (map[string]int64, error)
}

type reviewService struct {
	db        *gorm.DB
	log       *logger.Logger
	reviews   repos.ReviewRepo
	companies repos.CompanyRepo
	pipeline  *pipeline.Pipeline
	cache     ReviewCache
	searcher  ReviewSearcher
}

func NewReviewService(
	db *gorm.DB,
	log *logger.Logger,
	reviews repos.ReviewRepo,
	companies repos.CompanyRepo,
	p *pipeline.Pipeline,
	cache ReviewCache,
	searcher ReviewSearcher,
) ReviewService {
	serviceLog := log.With("service", "ReviewService")
	return &reviewService{
		db:        db,
		log:       serviceLog,
		reviews:   reviews,
		companies: companies,
		pipeline:  p,
		cache:     cache,
		searcher:  searcher,
	}
}

func (s *reviewService) Submit(ctx context.Context, input SubmitReviewInput) (*types.Review, error) {
	if input.Content == "" {
		return nil, fmt.Errorf("%w: content is required", pkgerr.ErrInvalidArgument)
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", pkgerr.ErrInvalidArgument)
	}
	if !types.ValidPlatform(input.Platform) {
		return nil, fmt.Errorf("%w: unknown platform %q", pkgerr.ErrInvalidArgument, input.Platform)
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.companies.GetByID(dbc, input.CompanyID); err != nil {
		if errors.Is(err, pkgerr.ErrNotFound) {
			return nil, fmt.Errorf("%w: company %d", pkgerr.ErrNotFound, input.CompanyID)
		}
		return nil, err
	}

	reviewDate := input.ReviewDate
	if reviewDate.IsZero() {
		reviewDate = time.Now()
	}
	review, err := s.reviews.Create(dbc, &types.Review{
		CompanyID:  input.CompanyID,
		Content:    input.Content,
		Rating:     input.Rating,
		Platform:   input.Platform,
		ReviewDate: reviewDate,
		State:      types.ReviewStateUnprocessed,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateDerived(ctx); err != nil {
			s.log.Warn("Derived cache invalidation failed", "review_id", review.ID, "error", err)
		}
	}
	s.log.Info("Review submitted", "review_id", review.ID, "company_id", review.CompanyID)
	return review, nil
}

func (s *reviewService) Get(ctx context.Context, id int64) (*types.Review, error) {
	if s.cache != nil {
		var cached types.Review
		hit, err := s.cache.Get(ctx, s.cache.ReviewKey(id), &cached)
		if err != nil {
			s.log.Warn("Cache read failed", "review_id", id, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	review, err := s.reviews.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetReview(ctx, review); err != nil {
			s.log.Warn("Cache write failed", "review_id", id, "error", err)
		}
	}
	return review, nil
}

func (s *reviewService) List(ctx context.Context, filter repos.ReviewListFilter) ([]*types.Review, error) {
	var key string
	if s.cache != nil {
		key = s.cache.ReviewListKey(filter.CompanyID, filter.Sentiment, filter.DepartmentID, filter.State, filter.Limit)
		var cached []*types.Review
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("Cache read failed", "key", key, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	results, err := s.reviews.List(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, results, 0); err != nil {
			s.log.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return results, nil
}

func (s *reviewService) Search(ctx context.Context, query string, filter search.SearchFilter) ([]search.SearchHit, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("search index is not configured")
	}
	return s.searcher.Search(ctx, query, filter)
}

// Delete removes the review and its audit rows from the record store, then
// clears the derived stores. Derived cleanup is best effort; a review that
// lingers in the index until the next sweep is acceptable, a resurrected
// one is not, so the record store delete comes first.
func (s *reviewService) Delete(ctx context.Context, id int64) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.reviews.GetByID(dbc, id); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.reviews.Delete(dbctx.Context{Ctx: ctx, Tx: tx}, id)
	})
	if err != nil {
		return err
	}

	s.pipeline.RemoveReview(ctx, id)
	if s.cache != nil {
		if err := s.cache.InvalidateDerived(ctx); err != nil {
			s.log.Warn("Derived cache invalidation failed", "review_id", id, "error", err)
		}
	}
	s.log.Info("Review deleted", "review_id", id)
	return nil
}

func (s *reviewService) Process(ctx context.Context, id int64) (*pipeline.Outcome, error) {
	return s.pipeline.Process(ctx, id)
}

func (s *reviewService) Reconcile(ctx context.Context, since time.Time) (*pipeline.ReconcileReport, error) {
	return s.pipeline.Reconcile(ctx, since)
}

func (s *reviewService) SentimentStats(ctx context.Context, companyID int64) (map[string]int64, error) {
	var key string
	if s.cache != nil {
		key = s.cache.StatsKey(companyID)
		var cached map[string]int64
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("Cache read failed", "key", key, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	counts, err := s.reviews.CountBySentiment(dbctx.Context{Ctx: ctx}, companyID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, counts, 0); err != nil {
			s.log.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return counts, nil
}
