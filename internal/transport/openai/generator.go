package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/metrics"
)

const systemPreamble = `You are the website's assistant. Answer the visitor's question using ONLY the context passages below. If the context does not contain the answer, say you don't have that information. Answer in the language of the question. Cite sources as [source].`

// Generator produces grounded answers via an OpenAI-compatible chat API.
type Generator struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float32
	promptBudget int
	logger       *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	PromptBudgetChars int
	Logger            *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		promptBudget: cfg.PromptBudgetChars,
		logger:       cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(
	ctx context.Context, query domain.Query, docs []domain.RankedDocument,
) (domain.GenerationResult, error) {
	system := buildSystemPrompt(docs, g.promptBudget)

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: query.Text()},
		},
	})

	duration := time.Since(start)

	if err != nil {
		mapped := mapAPIError("generate", err)
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, errorType(mapped)).Inc()
		return domain.GenerationResult{}, mapped
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "unavailable").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrUpstreamUnavailable)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return domain.GenerationResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// buildSystemPrompt assembles the grounding prompt from context documents,
// highest final score first, bounded to budget characters. The top-ranked
// document is always included, truncated rather than dropped when the budget
// is smaller than its block; lower-ranked documents are added only while the
// whole block still fits.
func buildSystemPrompt(docs []domain.RankedDocument, budget int) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\nContext:\n")

	remaining := budget
	for i, d := range docs {
		block := contextBlock(d)
		switch {
		case len(block) <= remaining:
			b.WriteString(block)
			remaining -= len(block)
		case i == 0:
			b.WriteString(truncateRunes(block, remaining))
			remaining = 0
		}
		if remaining <= 0 {
			break
		}
	}

	return b.String()
}

func contextBlock(d domain.RankedDocument) string {
	doc := d.Document()
	return fmt.Sprintf("[%s]\n%s\n\n", doc.Source(), doc.Content())
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary.
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
