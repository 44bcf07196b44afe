package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSentiment(t *testing.T) {
	for _, label := range []string{
		"very_negative", "negative", "neutral", "positive", "very_positive",
	} {
		s, err := ParseSentiment(label)
		require.NoError(t, err, label)
		assert.Equal(t, label, s.String())
	}
}

func TestParseSentimentRejectsUnknownLabels(t *testing.T) {
	for _, label := range []string{"", "Positive", "mixed", "ecstatic"} {
		_, err := ParseSentiment(label)
		require.ErrorIs(t, err, ErrUnknownSentiment, label)
	}
}

func TestRawStorageKey(t *testing.T) {
	assert.Equal(t, "raw/reddit/abcd1234abcd1234.json",
		RawStorageKey(SourceTypeReddit, "abcd1234abcd1234"))
}
