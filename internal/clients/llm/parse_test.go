package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	cls, err := parseClassification(`{"sentiment":"positive","confidence":0.92,"department":"UX"}`)
	require.NoError(t, err)
	assert.Equal(t, "positive", cls.Sentiment)
	assert.Equal(t, 0.92, cls.Confidence)
	assert.Equal(t, "UX", cls.DepartmentSignal)
}

func TestParseClassificationCodeFence(t *testing.T) {
	raw := "```json\n{\"sentiment\": \"NEGATIVE\", \"confidence\": 0.7, \"department\": \"이체\"}\n```"
	cls, err := parseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, "negative", cls.Sentiment)
	assert.Equal(t, "이체", cls.DepartmentSignal)
}

func TestParseClassificationSurroundingProse(t *testing.T) {
	raw := "분석 결과는 다음과 같습니다: {\"sentiment\":\"neutral\",\"confidence\":0.5,\"department\":\"\"} 감사합니다."
	cls, err := parseClassification(raw)
	require.NoError(t, err)
	assert.Equal(t, "neutral", cls.Sentiment)
	assert.Empty(t, cls.DepartmentSignal)
}

func TestParseClassificationClampsConfidence(t *testing.T) {
	cls, err := parseClassification(`{"sentiment":"positive","confidence":1.7,"department":"UX"}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cls.Confidence)

	cls, err = parseClassification(`{"sentiment":"positive","confidence":-0.3,"department":"UX"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cls.Confidence)
}

func TestParseClassificationErrors(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"no object":         "positive",
		"bad json":          `{"sentiment": "positive",`,
		"invalid sentiment": `{"sentiment":"angry","confidence":0.9,"department":"UX"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseClassification(raw)
			assert.Error(t, err)
		})
	}
}
