package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummaries() []ReviewSummary {
	return []ReviewSummary{
		{ID: 1, Rating: 2, Platform: "app_store", Sentiment: "negative", Content: "이체가 계속 실패해요"},
		{ID: 2, Rating: 5, Platform: "play_store", Sentiment: "positive", Content: "UI가 깔끔하고 좋아요"},
	}
}

func TestAnalyzeAggregatesPerspectives(t *testing.T) {
	model := &fakeModel{responses: []string{
		"금융 상품 관점에서 이체 실패가 핵심 이슈입니다.",
		`정리하면 다음과 같습니다. {"주요 이슈": ["이체 실패"], "만족도": "중간", "우선순위": ["이체 안정화"]}`,
	}}
	a := newModelAnalyst(model, "fake", testLLMConfig(3), testLogger(t))

	result, err := a.Analyze(context.Background(), sampleSummaries(), AnalysisComprehensive)
	require.NoError(t, err)
	assert.Equal(t, AnalysisComprehensive, result.Type)
	assert.EqualValues(t, 2, model.calls.Load())

	require.Len(t, result.Perspectives, 2)
	assert.Equal(t, "financial_analyst", result.Perspectives[0].Perspective)
	assert.Equal(t, "customer_service", result.Perspectives[1].Perspective)

	require.NotNil(t, result.Insights)
	assert.Equal(t, "중간", result.Insights["만족도"])
}

func TestAnalyzeTechnicalUsesTechPerspectives(t *testing.T) {
	model := &fakeModel{responses: []string{
		`{"주요 이슈": ["앱 크래시"]}`,
		"고객 응대 관점 의견입니다.",
	}}
	a := newModelAnalyst(model, "fake", testLLMConfig(3), testLogger(t))

	result, err := a.Analyze(context.Background(), sampleSummaries(), AnalysisTechnical)
	require.NoError(t, err)
	assert.Equal(t, AnalysisTechnical, result.Type)
	require.Len(t, result.Perspectives, 2)
	assert.Equal(t, "tech_analyst", result.Perspectives[0].Perspective)

	// The earlier perspective's object is used when later ones stay prose.
	require.NotNil(t, result.Insights)
	assert.Contains(t, result.Insights, "주요 이슈")
}

func TestAnalyzeUnknownTypeDefaultsToComprehensive(t *testing.T) {
	model := &fakeModel{responses: []string{"의견1", "의견2"}}
	a := newModelAnalyst(model, "fake", testLLMConfig(3), testLogger(t))

	result, err := a.Analyze(context.Background(), sampleSummaries(), "어쩌구")
	require.NoError(t, err)
	assert.Equal(t, AnalysisComprehensive, result.Type)
	assert.Equal(t, "financial_analyst", result.Perspectives[0].Perspective)
	// No perspective produced structured output.
	assert.Nil(t, result.Insights)
}

func TestAnalyzeEmptyBatchIsPermanent(t *testing.T) {
	model := &fakeModel{responses: []string{"unused"}}
	a := newModelAnalyst(model, "fake", testLLMConfig(3), testLogger(t))

	_, err := a.Analyze(context.Background(), nil, AnalysisComprehensive)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 0, model.calls.Load())
}

func TestAnalyzeRejectedRequestIsPermanent(t *testing.T) {
	badReq := &providerStatusError{code: 400}
	model := &fakeModel{errs: []error{badReq}, responses: []string{""}}
	a := newModelAnalyst(model, "fake", testLLMConfig(3), testLogger(t))

	_, err := a.Analyze(context.Background(), sampleSummaries(), AnalysisFinancial)
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable)
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestSummarizeBatchCapsAndTruncates(t *testing.T) {
	long := strings.Repeat("가", 300)
	reviews := make([]ReviewSummary, 0, 25)
	for i := 0; i < 25; i++ {
		reviews = append(reviews, ReviewSummary{ID: int64(i + 1), Rating: 3, Platform: "app_store", Content: long})
	}

	batch := summarizeBatch(reviews)
	assert.Equal(t, maxAnalysisReviews, strings.Count(batch, "리뷰 ID:"))
	assert.NotContains(t, batch, "리뷰 ID: 21")
	assert.NotContains(t, batch, strings.Repeat("가", 201))
	assert.Contains(t, batch, strings.Repeat("가", 200))
	// Unclassified reviews surface as N/A rather than an empty field.
	assert.Contains(t, batch, "감정: N/A")
}
