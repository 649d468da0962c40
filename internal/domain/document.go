package domain

import (
	"fmt"
	"math"
	"time"
)

// RawDocument is a knowledge-base passage before retrieval scoring. The store
// owns the document; the pipeline holds a read-only copy for one request.
type RawDocument struct {
	id        string
	content   string
	source    string
	category  string
	isPublic  bool
	createdAt time.Time
}

// NewRawDocument validates and creates a document copy.
func NewRawDocument(id, content, source, category string, isPublic bool, createdAt time.Time) (RawDocument, error) {
	if id == "" {
		return RawDocument{}, fmt.Errorf("document id is required")
	}
	return RawDocument{
		id: id, content: content, source: source,
		category: category, isPublic: isPublic, createdAt: createdAt,
	}, nil
}

// ID returns the unique document identifier.
func (d RawDocument) ID() string { return d.id }

// Content returns the passage text.
func (d RawDocument) Content() string { return d.content }

// Source returns the ingestion source name.
func (d RawDocument) Source() string { return d.source }

// Category returns the document category.
func (d RawDocument) Category() string { return d.category }

// IsPublic reports whether anonymous callers may see the document.
func (d RawDocument) IsPublic() bool { return d.isPublic }

// CreatedAt returns the document creation timestamp.
func (d RawDocument) CreatedAt() time.Time { return d.createdAt }

// ScoredDocument is a document with its store similarity populated (post-retrieval).
type ScoredDocument struct {
	doc        RawDocument
	similarity float64
}

// NewScoredDocument attaches a store similarity to a document.
// Similarity must be finite and within [-1,1] (cosine).
func NewScoredDocument(doc RawDocument, similarity float64) (ScoredDocument, error) {
	if math.IsNaN(similarity) || math.IsInf(similarity, 0) {
		return ScoredDocument{}, fmt.Errorf("similarity must be finite")
	}
	if similarity < -1 || similarity > 1 {
		return ScoredDocument{}, fmt.Errorf("similarity must be in [-1,1], got %g", similarity)
	}
	return ScoredDocument{doc: doc, similarity: similarity}, nil
}

// Document returns the underlying document.
func (d ScoredDocument) Document() RawDocument { return d.doc }

// Similarity returns the store similarity in [-1,1].
func (d ScoredDocument) Similarity() float64 { return d.similarity }

// RankedDocument is a document with its final rerank score populated (post-rerank).
// Derived and ephemeral; consumed only by the generator and the response.
type RankedDocument struct {
	doc        ScoredDocument
	finalScore float64
	reason     string
}

// NewRankedDocument attaches a final score and a human-readable rerank reason.
// The final score must be finite and within [0,1].
func NewRankedDocument(doc ScoredDocument, finalScore float64, reason string) (RankedDocument, error) {
	if math.IsNaN(finalScore) || math.IsInf(finalScore, 0) {
		return RankedDocument{}, fmt.Errorf("final score must be finite")
	}
	if finalScore < 0 || finalScore > 1 {
		return RankedDocument{}, fmt.Errorf("final score must be in [0,1], got %g", finalScore)
	}
	return RankedDocument{doc: doc, finalScore: finalScore, reason: reason}, nil
}

// Scored returns the underlying scored document.
func (d RankedDocument) Scored() ScoredDocument { return d.doc }

// Document returns the underlying raw document.
func (d RankedDocument) Document() RawDocument { return d.doc.doc }

// Similarity returns the store similarity.
func (d RankedDocument) Similarity() float64 { return d.doc.similarity }

// FinalScore returns the rerank score in [0,1].
func (d RankedDocument) FinalScore() float64 { return d.finalScore }

// Reason returns the rerank justification. Observability only, never used downstream.
func (d RankedDocument) Reason() string { return d.reason }
