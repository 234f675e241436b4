package cache

import (
	"context"
	"fmt"

	"github.com/reai/reai-backend/internal/types"
)

func (c *Cache) ReviewKey(id int64) string {
	return fmt.Sprintf("%s:review:%d", c.prefix, id)
}

func (c *Cache) ReviewListKey(companyID int64, sentiment string, departmentID int64, state string, limit int) string {
	return fmt.Sprintf("%s:reviews:list:%d:%s:%d:%s:%d", c.prefix, companyID, sentiment, departmentID, state, limit)
}

func (c *Cache) ReviewListPrefix() string {
	return c.prefix + ":reviews:list:"
}

func (c *Cache) StatsKey(companyID int64) string {
	return fmt.Sprintf("%s:reviews:stats:%d", c.prefix, companyID)
}

func (c *Cache) StatsPrefix() string {
	return c.prefix + ":reviews:stats:"
}

// SetReview writes the single-review entry and drops derived list/stats
// payloads that may now be stale.
func (c *Cache) SetReview(ctx context.Context, review *types.Review) error {
	if err := c.Set(ctx, c.ReviewKey(review.ID), review, 0); err != nil {
		return err
	}
	return c.InvalidateDerived(ctx)
}

// InvalidateReview removes a single review entry plus derived payloads; the
// external deletion path calls this as its cleanup hook.
func (c *Cache) InvalidateReview(ctx context.Context, id int64) error {
	if err := c.Invalidate(ctx, c.ReviewKey(id)); err != nil {
		return err
	}
	return c.InvalidateDerived(ctx)
}

// InvalidateDerived drops list and stats entries. Review writes of any kind
// invalidate these wholesale rather than tracking which filters each write
// affects.
func (c *Cache) InvalidateDerived(ctx context.Context) error {
	if err := c.InvalidatePrefix(ctx, c.ReviewListPrefix()); err != nil {
		return err
	}
	return c.InvalidatePrefix(ctx, c.StatsPrefix())
}
