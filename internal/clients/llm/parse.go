package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reai/reai-backend/internal/types"
)

type classificationPayload struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Department string  `json:"department"`
}

// parseClassification decodes the model's response. Models wrap JSON in
// markdown fences or prose often enough that we cut to the outermost object
// before unmarshaling.
func parseClassification(raw string) (Classification, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Classification{}, fmt.Errorf("no JSON object in response: %q", raw)
	}
	text = text[start : end+1]

	var payload classificationPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Classification{}, fmt.Errorf("decode response: %w", err)
	}

	sentiment := strings.ToLower(strings.TrimSpace(payload.Sentiment))
	if !types.ValidSentiment(sentiment) {
		return Classification{}, fmt.Errorf("invalid sentiment %q", payload.Sentiment)
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Classification{
		Sentiment:        sentiment,
		Confidence:       confidence,
		DepartmentSignal: strings.TrimSpace(payload.Department),
	}, nil
}
