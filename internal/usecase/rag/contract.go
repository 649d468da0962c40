package rag

import (
	"context"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/usecase/retrieval"
)

// Classifier labels a raw question with intent and metadata filters.
type Classifier interface {
	Classify(text string) domain.Query
}

// Retriever fetches candidate documents for a query embedding.
type Retriever interface {
	Retrieve(ctx context.Context, vector []float32, opts retrieval.Options) ([]domain.ScoredDocument, error)
}

// Reranker re-scores retrieved candidates. It must preserve length and order
// by non-increasing final score.
type Reranker interface {
	Rerank(query domain.Query, docs []domain.ScoredDocument) []domain.RankedDocument
}
