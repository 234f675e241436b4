package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/observability"
	"github.com/reai/reai-backend/internal/platform/logger"
)

// Analysis types select which perspectives read the batch. Financial and
// comprehensive analyses run the finance perspectives; technical runs the
// tech ones.
const (
	AnalysisFinancial     = "financial"
	AnalysisTechnical     = "technical"
	AnalysisComprehensive = "comprehensive"
)

// maxAnalysisReviews caps the batch; anything beyond it is silently dropped
// so the prompt stays inside the context window.
const maxAnalysisReviews = 20

// maxSummaryContentLen is the per-review content cut, in runes.
const maxSummaryContentLen = 200

// ReviewSummary is the slice of a review the analyst sees.
type ReviewSummary struct {
	ID        int64
	Rating    int
	Platform  string
	Sentiment string
	Content   string
}

// PerspectiveResult is one perspective's raw contribution to the analysis.
type PerspectiveResult struct {
	Perspective string `json:"perspective"`
	Content     string `json:"content"`
}

// Analysis is the combined multi-perspective result for a review batch.
type Analysis struct {
	Type string `json:"analysis_type"`
	// Insights is the structured result extracted from the last perspective
	// that produced a JSON object; nil when no perspective did.
	Insights     map[string]any      `json:"insights,omitempty"`
	Perspectives []PerspectiveResult `json:"perspectives"`
}

// Analyst runs a batch of review summaries past several specialist
// perspectives and aggregates what they report.
type Analyst interface {
	Analyze(ctx context.Context, reviews []ReviewSummary, analysisType string) (Analysis, error)
}

type perspective struct {
	name   string
	prompt string
}

var (
	financialAnalyst = perspective{
		name: "financial_analyst",
		prompt: `당신은 금융 전문 분석가입니다.
금융사 앱 리뷰를 분석하여 다음을 수행합니다:
1. 금융 상품 관련 이슈 식별
2. 고객 만족도 분석
3. 경쟁사 대비 강약점 분석
4. 개선 방안 제시`,
	}
	customerService = perspective{
		name: "customer_service",
		prompt: `당신은 고객 서비스 전문가입니다.
고객 리뷰를 분석하여 다음을 수행합니다:
1. 고객 불만사항 분류
2. 긴급도 평가
3. 대응 방안 제시
4. 고객 만족도 개선 방안 제안`,
	}
	techAnalyst = perspective{
		name: "tech_analyst",
		prompt: `당신은 기술 분석 전문가입니다.
앱 관련 기술적 이슈를 분석하여 다음을 수행합니다:
1. 기술적 문제 식별 및 분류
2. 버그 및 성능 이슈 분석
3. 기술적 개선 방안 제시
4. 개발 우선순위 제안`,
	}
)

func perspectivesFor(analysisType string) []perspective {
	if analysisType == AnalysisTechnical {
		return []perspective{techAnalyst, customerService}
	}
	return []perspective{financialAnalyst, customerService}
}

type modelAnalyst struct {
	model       llms.Model
	provider    string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	log         *logger.Logger
}

// NewAnalyst builds the batch analyst on the same provider configuration as
// the classifier.
func NewAnalyst(ctx context.Context, cfg app.LLMConfig, baseLog *logger.Logger) (Analyst, error) {
	model, provider, err := newProviderModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newModelAnalyst(model, provider, cfg, baseLog), nil
}

func newModelAnalyst(model llms.Model, provider string, cfg app.LLMConfig, baseLog *logger.Logger) *modelAnalyst {
	return &modelAnalyst{
		model:       model,
		provider:    provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		log:         baseLog.With("service", "LLMAnalyst", "provider", provider),
	}
}

func (a *modelAnalyst) Analyze(ctx context.Context, reviews []ReviewSummary, analysisType string) (Analysis, error) {
	ctx, span := observability.Tracer().Start(ctx, "llm.analyze",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", a.provider),
			attribute.String("analysis.type", analysisType),
			attribute.Int("analysis.review_count", len(reviews)),
		),
	)
	defer span.End()

	result, err := a.analyze(ctx, reviews, analysisType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return result, err
	}
	return result, nil
}

func (a *modelAnalyst) analyze(ctx context.Context, reviews []ReviewSummary, analysisType string) (Analysis, error) {
	if len(reviews) == 0 {
		return Analysis{}, &ProviderError{
			Provider:  a.provider,
			Retryable: false,
			Err:       fmt.Errorf("no reviews to analyze"),
		}
	}
	analysisType = normalizeAnalysisType(analysisType)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	batch := summarizeBatch(reviews)
	prompt := analysisPrompt(batch)

	result := Analysis{Type: analysisType}
	for _, p := range perspectivesFor(analysisType) {
		content, err := a.runPerspective(ctx, p, prompt)
		if err != nil {
			return Analysis{}, err
		}
		result.Perspectives = append(result.Perspectives, PerspectiveResult{
			Perspective: p.name,
			Content:     content,
		})
	}

	// The perspectives build on each other's conclusions; the last JSON
	// object wins, matching how the aggregate is read downstream.
	for i := len(result.Perspectives) - 1; i >= 0; i-- {
		if insights, ok := extractJSONObject(result.Perspectives[i].Content); ok {
			result.Insights = insights
			break
		}
	}

	a.log.Info("Review batch analyzed",
		"analysis_type", analysisType,
		"reviews", len(reviews),
		"perspectives", len(result.Perspectives),
		"structured", result.Insights != nil,
	)
	return result, nil
}

func (a *modelAnalyst) runPerspective(ctx context.Context, p perspective, prompt string) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "llm.perspective",
		trace.WithAttributes(attribute.String("analysis.perspective", p.name)),
	)
	defer span.End()

	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		{Role: schema.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(p.prompt)}},
		{Role: schema.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prompt)}},
	},
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "perspective failed")
		return "", &ProviderError{
			Provider:  a.provider,
			Retryable: !isPermanentProviderError(err),
			Err:       fmt.Errorf("perspective %s: %w", p.name, err),
		}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Provider:  a.provider,
			Retryable: false,
			Err:       fmt.Errorf("perspective %s: provider returned no choices", p.name),
		}
	}
	return resp.Choices[0].Content, nil
}

func normalizeAnalysisType(analysisType string) string {
	switch strings.ToLower(strings.TrimSpace(analysisType)) {
	case AnalysisFinancial:
		return AnalysisFinancial
	case AnalysisTechnical:
		return AnalysisTechnical
	default:
		return AnalysisComprehensive
	}
}

// summarizeBatch renders the reviews into the block format the analysis
// prompt embeds, capping batch size and per-review content length.
func summarizeBatch(reviews []ReviewSummary) string {
	if len(reviews) > maxAnalysisReviews {
		reviews = reviews[:maxAnalysisReviews]
	}
	blocks := make([]string, 0, len(reviews))
	for _, r := range reviews {
		sentiment := r.Sentiment
		if sentiment == "" {
			sentiment = "N/A"
		}
		content := []rune(r.Content)
		if len(content) > maxSummaryContentLen {
			content = content[:maxSummaryContentLen]
		}
		blocks = append(blocks, fmt.Sprintf(
			"리뷰 ID: %d\n평점: %d/5\n플랫폼: %s\n감정: %s\n내용: %s",
			r.ID, r.Rating, r.Platform, sentiment, string(content),
		))
	}
	return strings.Join(blocks, "\n\n")
}

func analysisPrompt(batch string) string {
	return fmt.Sprintf(`다음 리뷰 데이터를 분석해주세요:

%s

분석 요청사항:
1. 주요 이슈 및 트렌드 식별
2. 고객 만족도 평가
3. 개선 방안 제시
4. 우선순위 제안

분석 결과를 JSON 형태로 정리해주세요.`, batch)
}

// extractJSONObject cuts the outermost JSON object out of a prose response
// and decodes it. ok is false when there is no decodable object.
func extractJSONObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, false
	}
	return payload, true
}
