package domain

import (
	"fmt"
	"time"
)

// Sentiment is the categorical sentiment label produced by the LLM.
type Sentiment string

// Sentiment labels, most negative to most positive.
const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

var validSentiments = map[Sentiment]bool{
	SentimentVeryNegative: true,
	SentimentNegative:     true,
	SentimentNeutral:      true,
	SentimentPositive:     true,
	SentimentVeryPositive: true,
}

// IsValid returns true if the sentiment is a known label.
func (s Sentiment) IsValid() bool {
	return validSentiments[s]
}

// String returns the string representation of the sentiment.
func (s Sentiment) String() string {
	return string(s)
}

// ParseSentiment maps a string to a Sentiment. Unknown values are an error:
// the processor fails the item rather than guessing.
func ParseSentiment(s string) (Sentiment, error) {
	sentiment := Sentiment(s)
	if !sentiment.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSentiment, s)
	}
	return sentiment, nil
}

// Theme is one theme the LLM extracted from a piece of content.
type Theme struct {
	// Name is a short descriptive name, 2-4 words.
	Name string `json:"name"`
	// Confidence is how confident the model is the theme is present, 0.0-1.0.
	Confidence float64 `json:"confidence"`
	// Keywords are 2-5 keywords associated with the theme.
	Keywords []string `json:"keywords"`
}

// Analysis is the structured result of LLM analysis on one content item.
type Analysis struct {
	Themes    []Theme   `json:"themes"`
	Sentiment Sentiment `json:"sentiment"`
	// SentimentScore is in [-1, 1]. It is not forced to agree with the
	// categorical label; consumers tolerate mild inconsistency.
	SentimentScore float64  `json:"sentiment_score"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	// Entities are people, organizations and locations, undifferentiated.
	Entities []string `json:"entities"`
}

// ProcessedItem is a CollectedItem joined with its Analysis and the archival
// reference, as persisted in the relational store.
type ProcessedItem struct {
	ID           string     `json:"id"`
	SourceType   SourceType `json:"source_type"`
	SourceName   string     `json:"source_name"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  time.Time  `json:"published_at"`
	CollectedAt  time.Time  `json:"collected_at"`
	ProcessedAt  time.Time  `json:"processed_at"`
	SearchPhrase string     `json:"search_phrase"`
	Analysis     Analysis   `json:"analysis"`
	// RawStoragePath points to the blob holding the raw CollectedItem JSON
	// that produced this row.
	RawStoragePath string `json:"raw_storage_path"`
}

// RawStorageKey builds the object-store key for an item's raw payload.
func RawStorageKey(sourceType SourceType, id string) string {
	return fmt.Sprintf("raw/%s/%s.json", sourceType, id)
}
