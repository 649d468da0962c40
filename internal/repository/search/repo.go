package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Waterproof82/smart-connect-assistant/internal/db"
	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
	"github.com/Waterproof82/smart-connect-assistant/internal/domain/search/filter"
	"github.com/Waterproof82/smart-connect-assistant/internal/logger"
	"go.uber.org/zap"
)

// Document hash fields written by the ingestion side.
const (
	fieldContent   = "__content"
	fieldSource    = "source"
	fieldCategory  = "category"
	fieldIsPublic  = "is_public"
	fieldCreatedAt = "created_at"
	fieldScore     = "__vector_score"
)

// store is the consumer interface for search operations.
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo maps store search hits onto scored knowledge-base documents.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates a search repository over the named FT index. keyPrefix
// namespaces the index and document keys; empty falls back to the default
// assistant namespace.
func New(s store, keyPrefix, indexName string) *Repo {
	if keyPrefix == "" {
		keyPrefix = domain.KeyPrefix
	}
	return &Repo{
		store:     s,
		indexName: fmt.Sprintf("%s%s:idx", keyPrefix, indexName),
		keyPrefix: fmt.Sprintf("%s%s:", keyPrefix, indexName),
	}
}

// SearchKNN performs a vector similarity search with metadata pre-filtering.
// Results come back ordered by descending similarity. Store failures surface
// as ErrUpstreamUnavailable so the orchestrator can apply its retry policy.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, filters filter.Expression, topK int,
) ([]domain.ScoredDocument, error) {
	q := &db.KNNQuery{
		IndexName: r.indexName,
		Filters:   filters,
		Vector:    vector,
		K:         topK,
		ReturnFields: []string{
			fieldContent, fieldSource, fieldCategory, fieldIsPublic, fieldCreatedAt, fieldScore,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]domain.ScoredDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc, err := r.entryToDocument(entry)
		if err != nil {
			// Malformed entries are skipped, not fatal: one bad document must
			// not take down the whole retrieval.
			logger.FromContext(ctx).Warn("Skipping malformed search entry",
				zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (r *Repo) entryToDocument(entry db.SearchEntry) (domain.ScoredDocument, error) {
	id := strings.TrimPrefix(entry.Key, r.keyPrefix)

	isPublic := entry.Fields[fieldIsPublic] == "true"

	var createdAt time.Time
	if ts, err := strconv.ParseInt(entry.Fields[fieldCreatedAt], 10, 64); err == nil {
		createdAt = time.Unix(ts, 0).UTC()
	}

	raw, err := domain.NewRawDocument(
		id,
		entry.Fields[fieldContent],
		entry.Fields[fieldSource],
		entry.Fields[fieldCategory],
		isPublic,
		createdAt,
	)
	if err != nil {
		return domain.ScoredDocument{}, fmt.Errorf("document %q: %w", entry.Key, err)
	}

	scored, err := domain.NewScoredDocument(raw, entry.Score)
	if err != nil {
		return domain.ScoredDocument{}, fmt.Errorf("document %q: %w", entry.Key, err)
	}
	return scored, nil
}
