package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"content-radar/domain"
)

const defaultOpenAIModel = openai.GPT4o

// OpenAIClient implements port.AnalysisClient on the OpenAI API. It requests
// JSON mode, so the response needs no fence stripping in practice; the shared
// parser tolerates it either way.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIClient creates an OpenAI-backed analysis client.
func NewOpenAIClient(apiKey, model string, maxTokens int) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Analyze sends the item to the model and parses the structured result.
func (c *OpenAIClient) Analyze(ctx context.Context, title, content, searchPhrase string) (*domain.Analysis, error) {
	prompt := BuildAnalysisPrompt(title, content, searchPhrase)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: empty response")
	}
	return ParseAnalysisResponse(resp.Choices[0].Message.Content)
}

// HealthCheck sends a minimal completion to verify API access.
func (c *OpenAIClient) HealthCheck(ctx context.Context) bool {
	_, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	})
	return err == nil
}
