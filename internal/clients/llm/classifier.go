package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/observability"
	"github.com/reai/reai-backend/internal/platform/httpx"
	"github.com/reai/reai-backend/internal/platform/logger"
)

type modelClassifier struct {
	model       llms.Model
	provider    string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	maxRetries  int
	log         *logger.Logger
}

// NewClassifier builds the configured provider once at startup. The provider
// is not switchable per call; swapping providers means constructing a new
// classifier.
func NewClassifier(ctx context.Context, cfg app.LLMConfig, baseLog *logger.Logger) (Classifier, error) {
	model, provider, err := newProviderModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newModelClassifier(model, provider, cfg, baseLog), nil
}

// newProviderModel constructs the langchaingo model for the configured
// provider. Shared by the classifier and the analyst.
func newProviderModel(ctx context.Context, cfg app.LLMConfig) (llms.Model, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var model llms.Model
	var err error
	switch provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, "", fmt.Errorf("missing OPENAI_API_KEY")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.OpenAIModel),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, "", fmt.Errorf("missing GOOGLE_API_KEY")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GoogleAPIKey),
			googleai.WithDefaultModel(cfg.GeminiModel),
		)
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(cfg.OllamaBaseURL),
			ollama.WithModel(cfg.OllamaModel),
		)
	default:
		return nil, "", fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, "", fmt.Errorf("init llm provider %s: %w", provider, err)
	}
	return model, provider, nil
}

// newModelClassifier wraps an already-constructed model. Split out so tests
// can inject a fake llms.Model.
func newModelClassifier(model llms.Model, provider string, cfg app.LLMConfig, baseLog *logger.Logger) *modelClassifier {
	return &modelClassifier{
		model:       model,
		provider:    provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		log:         baseLog.With("service", "LLMClassifier", "provider", provider),
	}
}

func (c *modelClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	ctx, span := observability.Tracer().Start(ctx, "llm.classify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.provider", c.provider)),
	)
	defer span.End()

	cls, err := c.classify(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return cls, err
	}
	span.SetAttributes(
		attribute.String("llm.sentiment", cls.Sentiment),
		attribute.Float64("llm.confidence", cls.Confidence),
	)
	return cls, nil
}

func (c *modelClassifier) classify(ctx context.Context, text string) (Classification, error) {
	if strings.TrimSpace(text) == "" {
		return Classification{}, &ProviderError{
			Provider:  c.provider,
			Retryable: false,
			Err:       fmt.Errorf("empty review text"),
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(classifySystemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart("리뷰 텍스트: " + text)},
		},
	}

	backoff := 1 * time.Second
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return Classification{}, &ProviderError{Provider: c.provider, Retryable: true, Err: ctx.Err()}
		}

		resp, err := c.model.GenerateContent(ctx, messages,
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
			llms.WithJSONMode(),
		)
		if err == nil {
			if len(resp.Choices) == 0 {
				return Classification{}, &ProviderError{
					Provider:  c.provider,
					Retryable: false,
					Err:       fmt.Errorf("provider returned no choices"),
				}
			}
			cls, parseErr := parseClassification(resp.Choices[0].Content)
			if parseErr != nil {
				return Classification{}, &ProviderError{
					Provider:  c.provider,
					Retryable: false,
					Err:       fmt.Errorf("malformed classifier response: %w", parseErr),
				}
			}
			return cls, nil
		}

		lastErr = err
		if isPermanentProviderError(err) {
			// The provider told us exactly why it refused (bad request,
			// auth, quota). Retrying the same payload cannot help.
			return Classification{}, &ProviderError{Provider: c.provider, Retryable: false, Err: err}
		}
		if attempt == c.maxRetries {
			break
		}

		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Classifier request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Classification{}, &ProviderError{Provider: c.provider, Retryable: true, Err: ctx.Err()}
		case <-timer.C:
		}
		backoff *= 2
	}

	return Classification{}, &ProviderError{Provider: c.provider, Retryable: true, Err: lastErr}
}

// isPermanentProviderError reports whether the provider definitively rejected
// the request. Only an explicit non-retryable HTTP status qualifies; unknown
// transport failures stay retryable.
func isPermanentProviderError(err error) bool {
	if httpx.IsRetryableError(err) {
		return false
	}
	var sc httpx.HTTPStatusCoder
	return errors.As(err, &sc)
}
