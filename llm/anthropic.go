package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"content-radar/domain"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient implements port.AnalysisClient on the Anthropic API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient creates an Anthropic-backed analysis client.
func NewAnthropicClient(apiKey, model string, maxTokens int) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Analyze sends the item to the model and parses the structured result.
func (c *AnthropicClient) Analyze(ctx context.Context, title, content, searchPhrase string) (*domain.Analysis, error) {
	prompt := BuildAnalysisPrompt(title, content, searchPhrase)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("anthropic message: empty response")
	}
	return ParseAnalysisResponse(message.Content[0].Text)
}

// HealthCheck sends a minimal message to verify API access.
func (c *AnthropicClient) HealthCheck(ctx context.Context) bool {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Hi")),
		},
	})
	return err == nil
}
