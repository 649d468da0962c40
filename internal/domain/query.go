package domain

import "fmt"

// Intent is the coarse category assigned to an incoming question.
type Intent string

const (
	// IntentPricing covers price and cost questions.
	IntentPricing Intent = "pricing"
	// IntentHours covers opening hours and availability questions.
	IntentHours Intent = "hours"
	// IntentLocation covers address and directions questions.
	IntentLocation Intent = "location"
	// IntentGeneral is the catch-all intent, also used for unclassifiable text.
	IntentGeneral Intent = "general"
)

// Filters narrows retrieval by document metadata. Zero values mean "no constraint".
type Filters struct {
	Source   string
	Category string
	IsPublic *bool
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.Source == "" && f.Category == "" && f.IsPublic == nil
}

// WithoutNarrowing returns a copy with the category and source constraints
// removed, keeping only the visibility constraint. Used for broadened retrieval.
func (f Filters) WithoutNarrowing() Filters {
	return Filters{IsPublic: f.IsPublic}
}

// Query is a classified incoming question. Immutable once created; never persisted.
type Query struct {
	text       string
	intent     Intent
	tags       []string
	confidence float64
	filters    Filters
}

// NewQuery validates and creates a classified query.
func NewQuery(text string, intent Intent, tags []string, confidence float64, filters Filters) (Query, error) {
	switch intent {
	case IntentPricing, IntentHours, IntentLocation, IntentGeneral:
	default:
		return Query{}, fmt.Errorf("unknown intent %q", intent)
	}
	if confidence < 0 || confidence > 1 {
		return Query{}, fmt.Errorf("confidence must be in [0,1], got %g", confidence)
	}
	return Query{text: text, intent: intent, tags: tags, confidence: confidence, filters: filters}, nil
}

// Text returns the (possibly truncated) query text.
func (q Query) Text() string { return q.text }

// Intent returns the classified intent.
func (q Query) Intent() Intent { return q.intent }

// Tags returns the keywords that drove the classification.
func (q Query) Tags() []string { return q.tags }

// Confidence returns the classifier certainty in [0,1].
func (q Query) Confidence() float64 { return q.confidence }

// Filters returns the metadata filters derived from the intent.
func (q Query) Filters() Filters { return q.filters }
