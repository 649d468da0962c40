package domain

import "context"

// Generator produces a grounded natural-language answer from a query and its
// ordered context documents.
type Generator interface {
	Generate(ctx context.Context, query Query, docs []RankedDocument) (GenerationResult, error)
}

// GenerationResult carries the generated text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
