package script

import "strings"

// Suggestion confidence levels and reasons.
const (
	confidenceIntentMatch  = 90
	confidenceNextUnused   = 60
	confidenceUserOverride = 100
	confidenceOpeningLine  = 100

	ReasonIntentMatch  = "intent match"
	ReasonNextUnused   = "next available response"
	ReasonUserOverride = "user override"
	ReasonOpeningLine  = "opening line"
)

// Suggestion is one recommended line for the user.
type Suggestion struct {
	NodeID     string
	Text       string
	Confidence int
	Reason     string
}

// SuggestionSet is the engine's answer: a primary recommendation plus
// ranked alternatives. An empty set (Primary == nil) means every candidate
// line has been used.
type SuggestionSet struct {
	Primary      *Suggestion
	Alternatives []Suggestion
}

// Engine recommends the user's next scripted line. It holds only the graph
// and the role the human plays; conversation state is passed per call.
type Engine struct {
	graph     Graph
	humanRole Role
}

// NewEngine creates a suggestion engine over a dialogue graph.
func NewEngine(graph Graph, humanRole Role) *Engine {
	if humanRole == "" {
		humanRole = RoleHuman
	}
	return &Engine{graph: graph, humanRole: humanRole}
}

// InitialSuggestion returns the first human-role line of the script. No
// intent detection has happened yet, so confidence is fixed at 100.
func (e *Engine) InitialSuggestion() (Suggestion, bool) {
	nodes := e.graph.NodesByRole(e.humanRole)
	if len(nodes) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		NodeID:     nodes[0].ID,
		Text:       nodes[0].Text,
		Confidence: confidenceOpeningLine,
		Reason:     ReasonOpeningLine,
	}, true
}

// Suggest recommends the next line for the detected intent. usedNodeIDs
// lists nodes already delivered during the session; they are skipped when
// falling back to the next available response.
func (e *Engine) Suggest(intentKey string, usedNodeIDs []string) SuggestionSet {
	humanNodes := e.graph.NodesByRole(e.humanRole)

	// Tagged nodes answering the detected intent come first.
	var candidates []Suggestion
	for _, n := range humanNodes {
		if n.IntentTag == "" || !tagMatches(n.IntentTag, intentKey) {
			continue
		}
		candidates = append(candidates, Suggestion{
			NodeID:     n.ID,
			Text:       n.Text,
			Confidence: confidenceIntentMatch,
			Reason:     ReasonIntentMatch,
		})
	}

	// No tagged match: fall back to lines not yet used this session.
	if len(candidates) == 0 {
		used := make(map[string]bool, len(usedNodeIDs))
		for _, id := range usedNodeIDs {
			used[id] = true
		}
		for _, n := range humanNodes {
			if used[n.ID] {
				continue
			}
			candidates = append(candidates, Suggestion{
				NodeID:     n.ID,
				Text:       n.Text,
				Confidence: confidenceNextUnused,
				Reason:     ReasonNextUnused,
			})
		}
	}

	if len(candidates) == 0 {
		return SuggestionSet{}
	}

	set := SuggestionSet{Primary: &candidates[0]}
	rest := candidates[1:]
	if len(rest) > 3 {
		rest = rest[:3]
	}
	set.Alternatives = rest
	return set
}

// SelectAlternative records a manual pick by the user, overriding the
// automatic primary.
func (e *Engine) SelectAlternative(text, nodeID string) Suggestion {
	return Suggestion{
		NodeID:     nodeID,
		Text:       text,
		Confidence: confidenceUserOverride,
		Reason:     ReasonUserOverride,
	}
}

// tagMatches does a case-insensitive substring comparison in both
// directions so "price" tags match a "price_objection" intent and vice
// versa.
func tagMatches(tag, intentKey string) bool {
	tag = strings.ToLower(tag)
	intentKey = strings.ToLower(intentKey)
	if tag == "" || intentKey == "" {
		return false
	}
	return strings.Contains(tag, intentKey) || strings.Contains(intentKey, tag)
}
