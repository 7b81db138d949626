package engine

import "strings"

// IntentKind classifies the temporal slant of a query.
type IntentKind int

const (
	// NoTemporalBias: relevance-focused query, semantic weight dominates.
	NoTemporalBias IntentKind = iota
	// RecencyBias: the query explicitly asks for recent content; time
	// weight dominates and candidates older than the horizon are dropped.
	RecencyBias
)

// Intent is the result of temporal classification. HorizonDays is a hard
// filter: candidates whose age exceeds it are excluded, not down-weighted.
type Intent struct {
	Kind        IntentKind
	HorizonDays int
}

// Scoring weights. A pure semantic nearest-neighbor search over a
// short-lived corpus systematically favors older, more typical documents
// over breaking ones, so recency is an explicit second axis.
const (
	recencyTimeWeight     = 0.75
	recencySemanticWeight = 0.25
	neutralTimeWeight     = 0.35
	neutralSemanticWeight = 0.65
)

// Weights returns (timeWeight, semanticWeight) for the intent.
func (i Intent) Weights() (float64, float64) {
	if i.Kind == RecencyBias {
		return recencyTimeWeight, recencySemanticWeight
	}
	return neutralTimeWeight, neutralSemanticWeight
}

// recencyKeywords maps query phrases to day-count horizons. Longer phrases
// are checked first so "this week" wins over "this".
var recencyKeywords = []struct {
	phrase  string
	horizon int
}{
	{"this morning", 1},
	{"this week", 7},
	{"just now", 1},
	{"today", 1},
	{"yesterday", 2},
	{"latest", 2},
	{"recent", 2},
	{"newest", 2},
}

// ClassifyIntent inspects the lower-cased query for recency keywords and
// returns the matching horizon. The loosest (largest) matched horizon wins
// so "recent emails from this week" keeps the full week in play.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(query)
	intent := Intent{Kind: NoTemporalBias}
	for _, kw := range recencyKeywords {
		if !strings.Contains(q, kw.phrase) {
			continue
		}
		intent.Kind = RecencyBias
		if kw.horizon > intent.HorizonDays {
			intent.HorizonDays = kw.horizon
		}
	}
	return intent
}
