package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/reai/reai-backend/internal/clients/llm"
	"github.com/reai/reai-backend/internal/data/repos"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
)

// AnalyzeReviewsInput selects the batch and the angle of the analysis.
type AnalyzeReviewsInput struct {
	ReviewIDs    []int64 `json:"review_ids"`
	AnalysisType string  `json:"analysis_type"`
}

// AnalysisService runs a multi-perspective report over a batch of stored
// reviews.
type AnalysisService interface {
	Analyze(ctx context.Context, input AnalyzeReviewsInput) (*llm.Analysis, error)
}

type analysisService struct {
	log     *logger.Logger
	reviews repos.ReviewRepo
	analyst llm.Analyst
}

func NewAnalysisService(log *logger.Logger, reviews repos.ReviewRepo, analyst llm.Analyst) AnalysisService {
	serviceLog := log.With("service", "AnalysisService")
	return &analysisService{
		log:     serviceLog,
		reviews: reviews,
		analyst: analyst,
	}
}

func (as *analysisService) Analyze(ctx context.Context, input AnalyzeReviewsInput) (*llm.Analysis, error) {
	if len(input.ReviewIDs) == 0 {
		return nil, fmt.Errorf("%w: review_ids is required", pkgerr.ErrInvalidArgument)
	}

	dbc := dbctx.Context{Ctx: ctx}
	summaries := make([]llm.ReviewSummary, 0, len(input.ReviewIDs))
	for _, id := range input.ReviewIDs {
		review, err := as.reviews.GetByID(dbc, id)
		if err != nil {
			if errors.Is(err, pkgerr.ErrNotFound) {
				// Stale ids in the request are skipped, not fatal.
				continue
			}
			return nil, fmt.Errorf("load review %d: %w", id, err)
		}
		summary := llm.ReviewSummary{
			ID:       review.ID,
			Rating:   review.Rating,
			Platform: review.Platform,
			Content:  review.Content,
		}
		if review.Sentiment != nil {
			summary.Sentiment = *review.Sentiment
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no reviews found for analysis", pkgerr.ErrNotFound)
	}

	result, err := as.analyst.Analyze(ctx, summaries, input.AnalysisType)
	if err != nil {
		return nil, err
	}

	as.log.Info("Analysis completed",
		"analysis_type", result.Type,
		"requested", len(input.ReviewIDs),
		"analyzed", len(summaries),
	)
	return &result, nil
}
