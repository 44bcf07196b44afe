package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/vertex"

	"content-radar/domain"
)

const defaultVertexModel = "claude-sonnet-4-5"

// VertexClient implements port.AnalysisClient on Claude models served through
// Vertex AI. Authentication uses Application Default Credentials and billing
// goes through the GCP project, so no Anthropic API key is involved.
type VertexClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewVertexClient creates a Vertex-backed analysis client.
func NewVertexClient(ctx context.Context, projectID, region, model string, maxTokens int) *VertexClient {
	if model == "" {
		model = defaultVertexModel
	}
	return &VertexClient{
		client:    anthropic.NewClient(vertex.WithGoogleAuth(ctx, region, projectID)),
		model:     model,
		maxTokens: maxTokens,
	}
}

// Analyze sends the item to the model and parses the structured result.
func (c *VertexClient) Analyze(ctx context.Context, title, content, searchPhrase string) (*domain.Analysis, error) {
	prompt := BuildAnalysisPrompt(title, content, searchPhrase)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex message: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("vertex message: empty response")
	}
	return ParseAnalysisResponse(message.Content[0].Text)
}

// HealthCheck sends a minimal message to verify credentials and access.
func (c *VertexClient) HealthCheck(ctx context.Context) bool {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Hi")),
		},
	})
	return err == nil
}
