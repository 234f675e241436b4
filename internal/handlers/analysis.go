package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reai/reai-backend/internal/clients/llm"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/services"
)

type AnalysisHandler struct {
	analysisService services.AnalysisService
}

func NewAnalysisHandler(analysisService services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Analyze runs the multi-perspective batch report synchronously. Provider
// failures map the same way classification does: 503 when retrying can
// succeed, 422 when it cannot.
func (ah *AnalysisHandler) Analyze(c *gin.Context) {
	var input services.AnalyzeReviewsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := ah.analysisService.Analyze(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, pkgerr.ErrInvalidArgument) || errors.Is(err, pkgerr.ErrNotFound) {
			RespondServiceError(c, err)
		} else if llm.IsRetryable(err) {
			RespondError(c, http.StatusServiceUnavailable, "analysis_retryable", err)
		} else {
			RespondError(c, http.StatusUnprocessableEntity, "analysis_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"analysis": result})
}
