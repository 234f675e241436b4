package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reai/reai-backend/internal/clients/llm"
	"github.com/reai/reai-backend/internal/data/repos"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/search"
	"github.com/reai/reai-backend/internal/services"
)

type ReviewHandler struct {
	reviewService services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (rh *ReviewHandler) Submit(c *gin.Context) {
	var input services.SubmitReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	review, err := rh.reviewService.Submit(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (rh *ReviewHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	review, err := rh.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"review": review})
}

func (rh *ReviewHandler) List(c *gin.Context) {
	filter := repos.ReviewListFilter{
		CompanyID:    queryInt64(c, "company_id"),
		Sentiment:    c.Query("sentiment"),
		DepartmentID: queryInt64(c, "department_id"),
		State:        c.Query("state"),
		Limit:        int(queryInt64(c, "limit")),
	}
	reviews, err := rh.reviewService.List(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reviews": reviews})
}

func (rh *ReviewHandler) Search(c *gin.Context) {
	filter := search.SearchFilter{
		CompanyID:  queryInt64(c, "company_id"),
		Sentiment:  c.Query("sentiment"),
		Platform:   c.Query("platform"),
		Department: c.Query("department"),
		Size:       int(queryInt64(c, "size")),
	}
	hits, err := rh.reviewService.Search(c.Request.Context(), c.Query("q"), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"hits": hits})
}

func (rh *ReviewHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := rh.reviewService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Process runs the classification pipeline synchronously. Retryable
// failures come back as 503 so callers know re-invoking can succeed;
// permanent ones as 422.
func (rh *ReviewHandler) Process(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	outcome, err := rh.reviewService.Process(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerr.ErrNotFound) {
			RespondServiceError(c, err)
		} else if llm.IsRetryable(err) {
			RespondError(c, http.StatusServiceUnavailable, "classification_retryable", err)
		} else {
			RespondError(c, http.StatusUnprocessableEntity, "classification_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"outcome": outcome})
}

func (rh *ReviewHandler) Reconcile(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_since", err)
			return
		}
		since = parsed
	}
	report, err := rh.reviewService.Reconcile(c.Request.Context(), since)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"report": report})
}

func (rh *ReviewHandler) SentimentStats(c *gin.Context) {
	stats, err := rh.reviewService.SentimentStats(c.Request.Context(), queryInt64(c, "company_id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func pathID(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func queryInt64(c *gin.Context, name string) int64 {
	v, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return v
}
