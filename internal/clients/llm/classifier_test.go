package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/platform/logger"
)

type fakeModel struct {
	calls     atomic.Int64
	responses []string
	errs      []error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	resp := f.responses[0]
	if n < len(f.responses) {
		resp = f.responses[n]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func testLLMConfig(maxRetries int) app.LLMConfig {
	return app.LLMConfig{
		Provider:    "openai",
		Temperature: 0,
		MaxTokens:   256,
		Timeout:     30 * time.Second,
		MaxRetries:  maxRetries,
	}
}

func TestClassifySuccess(t *testing.T) {
	model := &fakeModel{responses: []string{`{"sentiment":"positive","confidence":0.92,"department":"UX"}`}}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	cls, err := c.Classify(context.Background(), "앱이 정말 편리해요")
	require.NoError(t, err)
	assert.Equal(t, "positive", cls.Sentiment)
	assert.Equal(t, 0.92, cls.Confidence)
	assert.Equal(t, "UX", cls.DepartmentSignal)
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestClassifyRetriesTransientThenSucceeds(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("rate limited"), nil},
		responses: []string{"", `{"sentiment":"negative","confidence":0.8,"department":"이체"}`},
	}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	cls, err := c.Classify(context.Background(), "이체가 안돼요")
	require.NoError(t, err)
	assert.Equal(t, "negative", cls.Sentiment)
	assert.EqualValues(t, 2, model.calls.Load())
}

func TestClassifyExhaustsRetryBudget(t *testing.T) {
	boom := errors.New("upstream unavailable")
	model := &fakeModel{errs: []error{boom, boom}, responses: []string{""}}
	c := newModelClassifier(model, "fake", testLLMConfig(1), testLogger(t))

	_, err := c.Classify(context.Background(), "앱 실행이 안됩니다")
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Retryable)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, model.calls.Load())
}

type providerStatusError struct {
	code int
}

func (e *providerStatusError) Error() string {
	return fmt.Sprintf("provider rejected request: status %d", e.code)
}

func (e *providerStatusError) HTTPStatusCode() int { return e.code }

func TestClassifyRejectedRequestIsPermanent(t *testing.T) {
	badReq := &providerStatusError{code: 400}
	model := &fakeModel{errs: []error{badReq, badReq, badReq, badReq}, responses: []string{""}}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	_, err := c.Classify(context.Background(), "로그인이 안돼요")
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable)
	assert.False(t, IsRetryable(err))
	assert.ErrorIs(t, err, badReq)
	// A definitive rejection must not consume the retry budget.
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestClassifyRetriesThrottledRequests(t *testing.T) {
	throttled := &providerStatusError{code: 429}
	model := &fakeModel{
		errs:      []error{throttled, nil},
		responses: []string{"", `{"sentiment":"neutral","confidence":0.6,"department":"고객지원"}`},
	}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	cls, err := c.Classify(context.Background(), "상담 연결이 오래 걸려요")
	require.NoError(t, err)
	assert.Equal(t, "neutral", cls.Sentiment)
	assert.EqualValues(t, 2, model.calls.Load())
}

func TestClassifyMalformedResponseIsPermanent(t *testing.T) {
	model := &fakeModel{responses: []string{"I cannot classify this"}}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	_, err := c.Classify(context.Background(), "수수료가 너무 비싸요")
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable)
	assert.False(t, IsRetryable(err))
	// Permanent errors must not consume the retry budget.
	assert.EqualValues(t, 1, model.calls.Load())
}

func TestClassifyEmptyTextIsPermanent(t *testing.T) {
	model := &fakeModel{responses: []string{`{}`}}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	_, err := c.Classify(context.Background(), "   ")
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.EqualValues(t, 0, model.calls.Load())
}

func TestClassifyHonorsContextCancellation(t *testing.T) {
	boom := errors.New("slow upstream")
	model := &fakeModel{errs: []error{boom, boom, boom, boom}, responses: []string{""}}
	c := newModelClassifier(model, "fake", testLLMConfig(3), testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Classify(ctx, "무한 로딩")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}
