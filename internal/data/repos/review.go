package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

// ReviewListFilter narrows List results. Zero values mean "no constraint".
type ReviewListFilter struct {
	CompanyID    int64
	Sentiment    string
	DepartmentID int64
	State        string
	Limit        int
}

type ReviewRepo interface {
	Create(dbc dbctx.Context, review *types.Review) (*types.Review, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Review, error)
	List(dbc dbctx.Context, filter ReviewListFilter) ([]*types.Review, error)
	ListProcessedSince(dbc dbctx.Context, since time.Time) ([]*types.Review, error)

	// MarkClassified performs the terminal state transition for a successful
	// classification. The update is conditional on the review not being
	// processed yet; it reports false when a concurrent attempt won.
	MarkClassified(dbc dbctx.Context, id int64, sentiment string, score float64, departmentID int64) (bool, error)

	// MarkFailed records an exhausted attempt. It increments the attempt
	// counter and reports false when a concurrent attempt already reached the
	// processed state.
	MarkFailed(dbc dbctx.Context, id int64, reason string) (bool, error)

	// ClaimNextPending picks the oldest runnable review (unprocessed, retryable
	// failed, or stale processing) and flips it to processing. Returns nil when
	// nothing is runnable. Safe to call from concurrent workers.
	ClaimNextPending(ctx context.Context, maxAttempts int, retryDelay, staleProcessing time.Duration) (*types.Review, error)

	// CountBySentiment aggregates processed reviews per sentiment label.
	// companyID zero counts across all companies.
	CountBySentiment(dbc dbctx.Context, companyID int64) (map[string]int64, error)

	Delete(dbc dbctx.Context, id int64) error
}

type reviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRepo {
	repoLog := baseLog.With("repo", "ReviewRepo")
	return &reviewRepo{db: db, log: repoLog}
}

func (r *reviewRepo) Create(dbc dbctx.Context, review *types.Review) (*types.Review, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if review.State == "" {
		review.State = types.ReviewStateUnprocessed
	}
	if err := transaction.WithContext(dbc.Ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *reviewRepo) GetByID(dbc dbctx.Context, id int64) (*types.Review, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var review types.Review
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerr.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepo) List(dbc dbctx.Context, filter ReviewListFilter) ([]*types.Review, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(dbc.Ctx).Model(&types.Review{})
	if filter.CompanyID != 0 {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Sentiment != "" {
		q = q.Where("sentiment = ?", filter.Sentiment)
	}
	if filter.DepartmentID != 0 {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var results []*types.Review
	if err := q.Order("created_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewRepo) ListProcessedSince(dbc dbctx.Context, since time.Time) ([]*types.Review, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(dbc.Ctx).
		Where("state = ?", types.ReviewStateProcessed)
	if !since.IsZero() {
		q = q.Where("updated_at >= ?", since)
	}

	var results []*types.Review
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewRepo) MarkClassified(dbc dbctx.Context, id int64, sentiment string, score float64, departmentID int64) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Review{}).
		Where("id = ? AND state IN ?", id, []string{
			types.ReviewStateUnprocessed,
			types.ReviewStateProcessing,
			types.ReviewStateFailed,
		}).
		Updates(map[string]interface{}{
			"state":           types.ReviewStateProcessed,
			"sentiment":       sentiment,
			"sentiment_score": score,
			"department_id":   departmentID,
			"processed":       true,
			"last_error":      "",
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reviewRepo) MarkFailed(dbc dbctx.Context, id int64, reason string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Review{}).
		Where("id = ? AND state IN ?", id, []string{
			types.ReviewStateUnprocessed,
			types.ReviewStateProcessing,
			types.ReviewStateFailed,
		}).
		Updates(map[string]interface{}{
			"state":         types.ReviewStateFailed,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    reason,
			"last_error_at": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *reviewRepo) ClaimNextPending(ctx context.Context, maxAttempts int, retryDelay, staleProcessing time.Duration) (*types.Review, error) {
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleProcessing)

	// A lost race on the conditional update just means another worker claimed
	// the same candidate; try the next few before giving up until the next poll.
	for i := 0; i < 3; i++ {
		var review types.Review
		err := r.db.WithContext(ctx).
			Where(`
				state = ?
				OR (
					state = ?
					AND attempts < ?
					AND (last_error_at IS NULL OR last_error_at < ?)
				)
				OR (
					state = ?
					AND updated_at < ?
				)
			`,
				types.ReviewStateUnprocessed,
				types.ReviewStateFailed, maxAttempts, retryCutoff,
				types.ReviewStateProcessing, staleCutoff,
			).
			Order("created_at ASC").
			First(&review).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		res := r.db.WithContext(ctx).
			Model(&types.Review{}).
			Where("id = ? AND state = ? AND updated_at = ?", review.ID, review.State, review.UpdatedAt).
			Updates(map[string]interface{}{
				"state":      types.ReviewStateProcessing,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			review.State = types.ReviewStateProcessing
			review.UpdatedAt = now
			return &review, nil
		}
	}
	return nil, nil
}

func (r *reviewRepo) CountBySentiment(dbc dbctx.Context, companyID int64) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Review{}).
		Where("state = ?", types.ReviewStateProcessed)
	if companyID != 0 {
		q = q.Where("company_id = ?", companyID)
	}

	var rows []struct {
		Sentiment string
		Total     int64
	}
	if err := q.Select("sentiment, COUNT(*) AS total").Group("sentiment").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Sentiment] = row.Total
	}
	return counts, nil
}

func (r *reviewRepo) Delete(dbc dbctx.Context, id int64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("review_id = ?", id).
		Delete(&types.AgentLog{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.Review{}).Error
}
