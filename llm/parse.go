package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"content-radar/domain"
)

// responsePayload mirrors the JSON the prompt asks for, with sentiment left
// as a plain string until it has been validated.
type responsePayload struct {
	Themes         []domain.Theme `json:"themes"`
	Sentiment      string         `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"`
	Summary        string         `json:"summary"`
	KeyPoints      []string       `json:"key_points"`
	Entities       []string       `json:"entities"`
}

// ParseAnalysisResponse turns a raw model response into an Analysis. Models
// sometimes wrap JSON in markdown code fences despite instructions, so fences
// are stripped first. An unrecognized sentiment label fails the parse; missing
// list fields default to empty.
func ParseAnalysisResponse(response string) (*domain.Analysis, error) {
	cleaned := stripCodeFences(response)

	var payload responsePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal analysis response: %w", err)
	}

	sentiment, err := domain.ParseSentiment(payload.Sentiment)
	if err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		Themes:         payload.Themes,
		Sentiment:      sentiment,
		SentimentScore: payload.SentimentScore,
		Summary:        payload.Summary,
		KeyPoints:      payload.KeyPoints,
		Entities:       payload.Entities,
	}
	if analysis.Themes == nil {
		analysis.Themes = []domain.Theme{}
	}
	for i := range analysis.Themes {
		if analysis.Themes[i].Keywords == nil {
			analysis.Themes[i].Keywords = []string{}
		}
	}
	if analysis.KeyPoints == nil {
		analysis.KeyPoints = []string{}
	}
	if analysis.Entities == nil {
		analysis.Entities = []string{}
	}

	return analysis, nil
}

// stripCodeFences extracts the body of a ```json or ``` fenced block when
// present, otherwise returns the trimmed input.
func stripCodeFences(s string) string {
	if _, after, ok := strings.Cut(s, "```json"); ok {
		if body, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(s, "```"); ok {
		if body, _, ok := strings.Cut(after, "```"); ok {
			return strings.TrimSpace(body)
		}
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}
