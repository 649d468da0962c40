// Package rerank re-scores retrieved documents against the original query
// using signals the vector store does not see: lexical overlap, recency, and
// per-source trust.
package rerank

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
)

// Weights combines the rerank signals into a final score. All weights are
// non-negative and sum to 1, so the result stays in [0,1]. The similarity
// weight is strictly positive, which keeps the combination monotonic in the
// store similarity.
type Weights struct {
	Similarity float64
	Lexical    float64
	Recency    float64
	Trust      float64
}

// DefaultWeights favors the store similarity while letting the auxiliary
// signals break near-ties.
func DefaultWeights() Weights {
	return Weights{Similarity: 0.7, Lexical: 0.15, Recency: 0.1, Trust: 0.05}
}

// recencyHalfLife is the document age at which the recency signal drops to 0.5.
const recencyHalfLife = 180 * 24 * time.Hour

// defaultTrust applies to sources without an explicit trust weight.
const defaultTrust = 0.5

// Reranker deterministically re-scores and re-orders documents. It never
// drops documents and never calls out to the network.
type Reranker struct {
	weights     Weights
	sourceTrust map[string]float64
	now         func() time.Time
}

// New creates a Reranker. sourceTrust maps source names to trust weights in
// [0,1]; unknown sources get defaultTrust.
func New(weights Weights, sourceTrust map[string]float64) *Reranker {
	return &Reranker{
		weights:     weights,
		sourceTrust: sourceTrust,
		now:         time.Now,
	}
}

// WithClock overrides the time source (test-only).
func (r *Reranker) WithClock(now func() time.Time) *Reranker {
	r.now = now
	return r
}

// Rerank returns every input document re-scored, strictly ordered by
// non-increasing final score. Ties break on document ID so the output is
// reproducible for fixed input.
func (r *Reranker) Rerank(query domain.Query, docs []domain.ScoredDocument) []domain.RankedDocument {
	if len(docs) == 0 {
		return nil
	}

	queryTokens := tokenize(query.Text())
	now := r.now()

	ranked := make([]domain.RankedDocument, 0, len(docs))
	for _, d := range docs {
		ranked = append(ranked, r.score(d, queryTokens, now))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore() != ranked[j].FinalScore() {
			return ranked[i].FinalScore() > ranked[j].FinalScore()
		}
		return ranked[i].Document().ID() < ranked[j].Document().ID()
	})

	return ranked
}

func (r *Reranker) score(
	d domain.ScoredDocument, queryTokens map[string]struct{}, now time.Time,
) domain.RankedDocument {
	// Map the [-1,1] cosine similarity into [0,1] before weighting.
	sim01 := (d.Similarity() + 1) / 2
	lexical := lexicalOverlap(queryTokens, d.Document().Content())
	recency := recencyScore(d.Document().CreatedAt(), now)
	trust := r.trustFor(d.Document().Source())

	final := r.weights.Similarity*sim01 +
		r.weights.Lexical*lexical +
		r.weights.Recency*recency +
		r.weights.Trust*trust
	final = clamp01(final)

	reason := fmt.Sprintf("similarity=%.2f lexical=%.2f recency=%.2f trust=%.2f",
		sim01, lexical, recency, trust)

	ranked, err := domain.NewRankedDocument(d, final, reason)
	if err != nil {
		// clamp01 guarantees the range; construction cannot fail here.
		panic(err)
	}
	return ranked
}

func (r *Reranker) trustFor(source string) float64 {
	if t, ok := r.sourceTrust[source]; ok {
		return clamp01(t)
	}
	return defaultTrust
}

// lexicalOverlap is the fraction of query tokens present in the content.
func lexicalOverlap(queryTokens map[string]struct{}, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenize(content)
	hits := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// recencyScore decays hyperbolically with document age: 1 for brand-new, 0.5
// at the half-life, approaching 0 for very old documents. Unknown timestamps
// score 0.
func recencyScore(createdAt, now time.Time) float64 {
	if createdAt.IsZero() || createdAt.After(now) {
		return 0
	}
	age := now.Sub(createdAt)
	return 1 / (1 + float64(age)/float64(recencyHalfLife))
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
