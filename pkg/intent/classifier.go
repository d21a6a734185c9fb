// Package intent maps free utterance text to a coarse conversational
// intent: objection, information request, agreement, and so on. The
// classifier is a pure function over a fixed keyword catalog so identical
// input always yields identical output.
package intent

import "strings"

// Match is the classification result for one utterance.
type Match struct {
	Key        string
	Confidence int // 0-100
	Priority   int
	Label      string
}

// Intent keys recognized by the classifier.
const (
	KeyTimeObjection      = "time_objection"
	KeyPriceObjection     = "price_objection"
	KeyNotInterested      = "not_interested"
	KeyAuthorityObjection = "authority_objection"
	KeyCompetitor         = "competitor"
	KeyNeedsInfo          = "needs_info"
	KeyPositiveResponse   = "positive_response"
	KeyNeutral            = "neutral"
)

type entry struct {
	key      string
	keywords []string
	priority int
	label    string
}

// catalog is the fixed intent table. Higher priority wins when multiple
// intents match; objections outrank agreement so a hedged brush-off
// ("sure, but I'm busy") routes to the objection.
var catalog = []entry{
	{KeyTimeObjection, []string{"busy", "later", "no time", "not a good time", "in a meeting", "call me back"}, 9, "Time objection"},
	{KeyPriceObjection, []string{"expensive", "price", "cost", "budget", "afford", "cheaper"}, 9, "Price objection"},
	{KeyNotInterested, []string{"not interested", "no thanks", "stop calling", "don't need", "remove me"}, 8, "Not interested"},
	{KeyAuthorityObjection, []string{"my boss", "manager", "decision maker", "check with", "not my call", "approval"}, 8, "Authority objection"},
	{KeyCompetitor, []string{"already use", "competitor", "another vendor", "current provider", "switched to"}, 7, "Competitor mention"},
	{KeyNeedsInfo, []string{"tell me more", "how does", "what is", "more information", "details", "explain", "send me"}, 6, "Asking for more info"},
	{KeyPositiveResponse, []string{"sure", "sounds good", "interested", "yes", "okay", "great", "go ahead"}, 5, "Positive response"},
}

// neutralMatch is returned when nothing in the catalog matches.
func neutralMatch() Match {
	return Match{Key: KeyNeutral, Confidence: 50, Priority: 0, Label: "Neutral"}
}

// Classify returns the highest-priority, highest-confidence intent for the
// given text. Empty text returns the neutral fallback rather than erroring.
func Classify(text string) Match {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return neutralMatch()
	}

	best := neutralMatch()
	found := false
	for _, e := range catalog {
		matches := 0
		for _, kw := range e.keywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		confidence := 50 + matches*20
		if confidence > 95 {
			confidence = 95
		}
		candidate := Match{Key: e.key, Confidence: confidence, Priority: e.priority, Label: e.label}

		if !found || betterMatch(candidate, best) {
			best = candidate
			found = true
		}
	}
	return best
}

// betterMatch orders by priority desc, then confidence desc. Catalog order
// breaks remaining ties, keeping classification deterministic.
func betterMatch(a, b Match) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Confidence > b.Confidence
}
