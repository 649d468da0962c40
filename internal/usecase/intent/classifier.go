// Package intent labels incoming questions with a coarse intent and derives
// metadata filters to narrow retrieval.
package intent

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
)

// intentKeywords maps each intent to the keywords that signal it, in Spanish
// and English since the site serves both.
var intentKeywords = map[domain.Intent][]string{
	domain.IntentPricing: {
		"precio", "precios", "cuesta", "cuestan", "cuanto", "coste", "costes",
		"tarifa", "tarifas", "presupuesto", "pagar",
		"price", "prices", "cost", "costs", "pricing", "pay", "fee", "fees", "quote",
	},
	domain.IntentHours: {
		"horario", "horarios", "hora", "horas", "abierto", "abren", "cierran", "cierre",
		"hours", "open", "opening", "close", "closing", "schedule", "when",
	},
	domain.IntentLocation: {
		"donde", "direccion", "ubicacion", "llegar", "mapa", "zona",
		"where", "address", "location", "directions", "map", "area",
	},
}

// Classifier assigns an intent to free text. Pure and deterministic: it never
// fails and performs no I/O.
type Classifier struct {
	maxQueryLength int
}

// New creates a Classifier. maxQueryLength bounds the text in runes; overlong
// input is truncated, not rejected.
func New(maxQueryLength int) *Classifier {
	return &Classifier{maxQueryLength: maxQueryLength}
}

// Classify labels the query text. Empty or unmatchable text yields
// IntentGeneral with confidence 0.
func (c *Classifier) Classify(text string) domain.Query {
	text = c.truncate(strings.TrimSpace(text))

	tokens := tokenize(text)
	if len(tokens) == 0 {
		q, _ := domain.NewQuery(text, domain.IntentGeneral, nil, 0, publicOnly())
		return q
	}

	intent, matched := bestIntent(tokens)

	confidence := 0.2 // non-empty text with no signal still carries some
	if len(matched) > 0 {
		// One keyword hit is a solid signal; each extra hit tightens it.
		confidence = 0.6 + 0.15*float64(len(matched)-1)
		if confidence > 0.95 {
			confidence = 0.95
		}
	}

	filters := publicOnly()
	if intent != domain.IntentGeneral {
		filters.Category = string(intent)
	}

	q, _ := domain.NewQuery(text, intent, matched, confidence, filters)
	return q
}

func (c *Classifier) truncate(text string) string {
	if c.maxQueryLength <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= c.maxQueryLength {
		return text
	}
	return string(runes[:c.maxQueryLength])
}

// bestIntent returns the intent with the most keyword hits and the matched
// keywords. Ties resolve in fixed intent order for determinism.
func bestIntent(tokens map[string]struct{}) (domain.Intent, []string) {
	order := []domain.Intent{domain.IntentPricing, domain.IntentHours, domain.IntentLocation}

	best := domain.IntentGeneral
	var bestMatched []string

	for _, intent := range order {
		var matched []string
		for _, kw := range intentKeywords[intent] {
			if _, ok := tokens[kw]; ok {
				matched = append(matched, kw)
			}
		}
		if len(matched) > len(bestMatched) {
			best = intent
			bestMatched = matched
		}
	}

	sort.Strings(bestMatched)
	return best, bestMatched
}

// tokenize lowercases, strips accents common in Spanish, and splits on
// non-letter/digit runes.
func tokenize(text string) map[string]struct{} {
	normalized := strings.Map(stripAccent, strings.ToLower(text))

	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

var accentMap = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u', 'ü': 'u', 'ñ': 'n',
}

func stripAccent(r rune) rune {
	if plain, ok := accentMap[r]; ok {
		return plain
	}
	return r
}

func publicOnly() domain.Filters {
	public := true
	return domain.Filters{IsPublic: &public}
}
