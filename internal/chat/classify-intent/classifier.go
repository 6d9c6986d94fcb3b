// internal/chat/classify-intent/classifier.go
package classifyintent

import (
	"regexp"
	"strings"
)

// aggregateVocabulary is the broad rule-2 keyword list. Substring matching
// is deliberate ("sam" also hits inside "same"); the rule order and the
// matching semantics are behavioral contract inherited from the production
// dispatcher, not something to tighten.
var aggregateVocabulary = []string{
	"how many", "total", "count", "analytics", "statistics", "data",
	"dashboard", "users", "system", "edema", "malnutrition", "sam", "mam",
	"cases", "risk", "health", "screening",
}

var personalVocabulary = []string{"my risk", "my score", "my data", "personal", "profile"}

// Single-word extractors. Multi-word names and places are a documented
// limitation: the capture stops at the first non-alphanumeric rune.
var (
	nameRe  = regexp.MustCompile(`(?:tell me|what is|show me)\s+([a-z0-9]+)`)
	placeRe = regexp.MustCompile(`\bin\s+([a-z0-9]+)`)
)

// rule pairs a predicate with an intent builder. ok=false means fall
// through to the next rule.
type rule func(q string) (Intent, bool)

// rules is evaluated in order, first match wins. The order is load-bearing:
// rule 2's vocabulary intentionally shadows rules 3-5 whenever both match
// (e.g. "show me my risk score" resolves to aggregate_stats because "risk"
// hits rule 2 before the personal-data and named-lookup rules run).
var rules = []rule{
	matchSystemInfo,
	matchAggregate,
	matchPersonalData,
	matchNamedUser,
	matchLocation,
}

// Classify routes a free-text query to exactly one Intent. Pure function
// of the lower-cased query text; no I/O, no side effects.
func Classify(query string) Intent {
	q := strings.ToLower(query)
	for _, r := range rules {
		if intent, ok := r(q); ok {
			return intent
		}
	}
	return Intent{Kind: KindGenericAdvice}
}

func matchSystemInfo(q string) (Intent, bool) {
	if containsAny(q, "system", "nutrisaur", "about") {
		return Intent{Kind: KindSystemInfo}, true
	}
	return Intent{}, false
}

func matchAggregate(q string) (Intent, bool) {
	if !containsAny(q, aggregateVocabulary...) {
		return Intent{}, false
	}
	// Condition counts take precedence inside the aggregate branch, but
	// only for explicit "how many" questions.
	if strings.Contains(q, "how many") {
		if containsAny(q, "edema", "swelling") {
			return Intent{Kind: KindHealthCondition, Condition: "edema"}, true
		}
		if containsAny(q, "malnutrition", "sam", "mam") {
			return Intent{Kind: KindHealthCondition, Condition: "malnutrition"}, true
		}
	}
	return Intent{Kind: KindAggregateStats}, true
}

func matchPersonalData(q string) (Intent, bool) {
	if containsAny(q, personalVocabulary...) {
		return Intent{Kind: KindPersonalData}, true
	}
	return Intent{}, false
}

func matchNamedUser(q string) (Intent, bool) {
	if !containsAny(q, "tell me", "what is", "show me") {
		return Intent{}, false
	}
	m := nameRe.FindStringSubmatch(q)
	if m == nil {
		// Phrase present but no extractable name: fall through.
		return Intent{}, false
	}
	return Intent{Kind: KindNamedUserLookup, Name: m[1]}, true
}

func matchLocation(q string) (Intent, bool) {
	if !strings.Contains(q, "in ") || !containsAny(q, "risk", "users", "data") {
		return Intent{}, false
	}
	m := placeRe.FindStringSubmatch(q)
	if m == nil {
		return Intent{}, false
	}
	return Intent{Kind: KindLocationLookup, Place: m[1]}, true
}

func containsAny(q string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(q, n) {
			return true
		}
	}
	return false
}
