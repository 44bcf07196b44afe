package llm

import (
	"context"
	"fmt"

	"content-radar/config"
	"content-radar/port"
)

// NewClient builds the analysis client selected by configuration.
func NewClient(ctx context.Context, cfg config.LLMConfig) (port.AnalysisClient, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.MaxTokens), nil
	case "vertex":
		if cfg.VertexProject == "" {
			return nil, fmt.Errorf("VERTEX_PROJECT_ID is required for the vertex provider")
		}
		return NewVertexClient(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
