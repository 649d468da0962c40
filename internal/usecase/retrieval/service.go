// Package retrieval applies the relevance policy on top of the vector store:
// similarity threshold, result limit, and metadata narrowing.
package retrieval

import (
	"context"
	"fmt"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/domain/search/filter"
)

// Options bounds a single retrieval pass.
type Options struct {
	Limit     int
	Threshold float64
	Filters   domain.Filters
}

// Service retrieves candidate documents for a query embedding.
type Service struct {
	repo Repository
}

// New creates a retrieval service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Retrieve returns at most opts.Limit documents ordered by descending
// similarity. Documents strictly below opts.Threshold are excluded; a
// similarity exactly at the threshold is kept. An empty result is valid, not
// an error. Store failures propagate without retry; retry is orchestrator
// policy.
func (s *Service) Retrieve(
	ctx context.Context, vector []float32, opts Options,
) ([]domain.ScoredDocument, error) {
	expr, err := buildExpression(opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("build filters: %w", err)
	}

	docs, err := s.repo.SearchKNN(ctx, vector, expr, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	kept := docs[:0]
	for _, d := range docs {
		if d.Similarity() >= opts.Threshold {
			kept = append(kept, d)
		}
	}

	if len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}

	return kept, nil
}

// buildExpression translates metadata filters into an AND filter expression.
func buildExpression(f domain.Filters) (filter.Expression, error) {
	var must []filter.Condition

	if f.Source != "" {
		cond, err := filter.NewMatch("source", f.Source)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}
	if f.Category != "" {
		cond, err := filter.NewMatch("category", f.Category)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}
	if f.IsPublic != nil {
		value := "false"
		if *f.IsPublic {
			value = "true"
		}
		cond, err := filter.NewMatch("is_public", value)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}

	return filter.MustAll(must...)
}
