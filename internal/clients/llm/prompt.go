package llm

// classifySystemPrompt asks for one JSON object per review. The department
// field is a short free-text signal, not a department name lookup; routing
// against the configured department set happens after classification.
const classifySystemPrompt = `당신은 금융 앱 리뷰의 감정을 분석하는 전문가입니다.
주어진 리뷰 텍스트를 분석하여 아래 형식의 JSON 객체 하나만 응답하세요.

{
  "sentiment": "positive | negative | neutral 중 하나",
  "confidence": 0.0에서 1.0 사이의 실수,
  "department": "리뷰가 다루는 주제를 나타내는 짧은 키워드 (예: UX, 대출, 이체, 보안, 고객지원)"
}

JSON 외의 다른 텍스트는 출력하지 마세요.`
