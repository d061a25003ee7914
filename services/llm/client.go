package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any text-generation backend.
// The agent issues exactly one Generate call per interpreted walk: a
// system instruction plus a single user prompt.
type Client interface {
	Generate(ctx context.Context, system, prompt string, params GenerationParams) (string, error)
}
