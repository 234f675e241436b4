package search

import (
	"time"

	"github.com/reai/reai-backend/internal/types"
)

// ReviewDocument mirrors a processed review's searchable attributes. The
// record store stays authoritative; every document can be rebuilt from it.
type ReviewDocument struct {
	ReviewID       int64     `json:"review_id"`
	CompanyID      int64     `json:"company_id"`
	Content        string    `json:"content"`
	Rating         int       `json:"rating"`
	ReviewDate     time.Time `json:"review_date"`
	Platform       string    `json:"platform"`
	Sentiment      string    `json:"sentiment,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	Department     string    `json:"department,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentFromReview flattens a review row into its index document.
// departmentName may be empty when the review has no assignment.
func DocumentFromReview(review *types.Review, departmentName string) ReviewDocument {
	doc := ReviewDocument{
		ReviewID:   review.ID,
		CompanyID:  review.CompanyID,
		Content:    review.Content,
		Rating:     review.Rating,
		ReviewDate: review.ReviewDate,
		Platform:   review.Platform,
		Department: departmentName,
		CreatedAt:  review.CreatedAt,
	}
	if review.Sentiment != nil {
		doc.Sentiment = *review.Sentiment
	}
	if review.SentimentScore != nil {
		doc.SentimentScore = *review.SentimentScore
	}
	return doc
}
