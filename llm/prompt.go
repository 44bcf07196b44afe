// Package llm provides content analysis clients for the supported LLM
// providers. All providers share one prompt and one response parser so the
// analysis schema stays identical regardless of backend.
package llm

import "fmt"

const analysisPromptTemplate = `Analyze the following content that was collected while searching for "%s".

Title: %s

Content:
%s

Provide a structured analysis with:

1. THEMES: Identify 1-5 main themes. For each theme provide:
   - name: A short descriptive name (2-4 words)
   - confidence: How confident you are this theme is present (0.0-1.0)
   - keywords: 2-5 keywords associated with this theme

2. SENTIMENT: Classify the overall sentiment as one of:
   - very_negative, negative, neutral, positive, very_positive
   Also provide a sentiment_score from -1.0 (most negative) to 1.0 (most positive)

3. SUMMARY: A 1-2 sentence summary of the content

4. KEY_POINTS: 2-5 bullet points capturing the main takeaways

5. ENTITIES: List any people, organizations, or locations mentioned

Respond in JSON format:
{
  "themes": [
    {"name": "...", "confidence": 0.0, "keywords": ["...", "..."]}
  ],
  "sentiment": "neutral",
  "sentiment_score": 0.0,
  "summary": "...",
  "key_points": ["...", "..."],
  "entities": ["...", "..."]
}`

// BuildAnalysisPrompt renders the shared analysis prompt for one item.
func BuildAnalysisPrompt(title, content, searchPhrase string) string {
	return fmt.Sprintf(analysisPromptTemplate, searchPhrase, title, content)
}
