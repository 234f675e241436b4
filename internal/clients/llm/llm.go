package llm

import (
	"context"
	"errors"
	"fmt"
)

// Classification is the combined sentiment and routing signal produced for one
// review text.
type Classification struct {
	// Sentiment is one of positive, negative, neutral.
	Sentiment string
	// Confidence is the provider's confidence in the label, clamped to [0,1].
	Confidence float64
	// DepartmentSignal is a free-text routing hint ("UX", "대출", ...). The
	// department router turns it into a department id; the classifier itself
	// never resolves departments.
	DepartmentSignal string
}

// Classifier is the pluggable language-model capability. Implementations own
// their provider-specific retry and timeout policy and must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// ProviderError wraps a classifier failure. Retryable distinguishes transient
// provider conditions (timeout, rate limit, 5xx) from permanent ones
// (malformed response, unusable input); permanent errors must not be retried.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("llm provider %s: %s: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient provider error. Errors that
// are not ProviderErrors are considered retryable; only an explicit permanent
// classification stops the retry loop upstream.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}
