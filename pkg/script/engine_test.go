package script

import "testing"

func testGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "p1", Role: RolePersona, Text: "Hello, who is this?"},
			{ID: "h1", Role: RoleHuman, Text: "Hi, this is Sam from Acme."},
			{ID: "p2", Role: RolePersona, Text: "I'm pretty busy right now.", IntentTag: "time"},
			{ID: "h2", Role: RoleHuman, Text: "I'll only take thirty seconds.", IntentTag: "time_objection"},
			{ID: "h3", Role: RoleHuman, Text: "Our plans start at half your current spend.", IntentTag: "price"},
			{ID: "h4", Role: RoleHuman, Text: "Would Thursday work for a quick demo?"},
		},
		Edges: []Edge{
			{From: "p1", To: "h1"},
			{From: "h1", To: "p2"},
			{From: "p2", To: "h2"},
		},
	}
}

func TestInitialSuggestion(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	s, ok := e.InitialSuggestion()
	if !ok {
		t.Fatal("expected an initial suggestion")
	}
	if s.NodeID != "h1" {
		t.Errorf("NodeID = %q, want h1", s.NodeID)
	}
	if s.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", s.Confidence)
	}
}

func TestSuggestIntentMatch(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	set := e.Suggest("time_objection", nil)
	if set.Primary == nil {
		t.Fatal("expected a primary suggestion")
	}
	if set.Primary.NodeID != "h2" {
		t.Errorf("Primary.NodeID = %q, want h2", set.Primary.NodeID)
	}
	if set.Primary.Confidence != 90 {
		t.Errorf("Primary.Confidence = %d, want 90", set.Primary.Confidence)
	}
	if set.Primary.Reason != ReasonIntentMatch {
		t.Errorf("Primary.Reason = %q, want %q", set.Primary.Reason, ReasonIntentMatch)
	}
}

func TestSuggestTagSubstringBothDirections(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	// Node h3 is tagged "price"; the intent key is the longer string.
	set := e.Suggest("price_objection", nil)
	if set.Primary == nil || set.Primary.NodeID != "h3" {
		t.Fatalf("expected h3 as primary, got %+v", set.Primary)
	}
}

func TestSuggestFallbackToUnused(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	// Three of four human nodes already used; the intent matches no tag.
	set := e.Suggest("competitor", []string{"h1", "h2", "h3"})
	if set.Primary == nil {
		t.Fatal("expected a fallback suggestion")
	}
	if set.Primary.NodeID != "h4" {
		t.Errorf("Primary.NodeID = %q, want h4", set.Primary.NodeID)
	}
	if set.Primary.Confidence != 60 {
		t.Errorf("Primary.Confidence = %d, want 60", set.Primary.Confidence)
	}
	if set.Primary.Reason != ReasonNextUnused {
		t.Errorf("Primary.Reason = %q, want %q", set.Primary.Reason, ReasonNextUnused)
	}
}

func TestSuggestAllUsedReturnsEmpty(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	set := e.Suggest("competitor", []string{"h1", "h2", "h3", "h4"})
	if set.Primary != nil {
		t.Errorf("expected empty set, got primary %+v", set.Primary)
	}
	if len(set.Alternatives) != 0 {
		t.Errorf("expected no alternatives, got %d", len(set.Alternatives))
	}
}

func TestSuggestAlternativesCapped(t *testing.T) {
	g := Graph{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.Nodes = append(g.Nodes, Node{ID: id, Role: RoleHuman, Text: id})
	}
	e := NewEngine(g, RoleHuman)

	set := e.Suggest("nothing_matches", nil)
	if set.Primary == nil || set.Primary.NodeID != "a" {
		t.Fatalf("expected a as primary, got %+v", set.Primary)
	}
	if len(set.Alternatives) != 3 {
		t.Errorf("alternatives = %d, want capped at 3", len(set.Alternatives))
	}
}

func TestSelectAlternative(t *testing.T) {
	e := NewEngine(testGraph(), RoleHuman)

	s := e.SelectAlternative("Our plans start at half your current spend.", "h3")
	if s.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", s.Confidence)
	}
	if s.Reason != ReasonUserOverride {
		t.Errorf("Reason = %q, want %q", s.Reason, ReasonUserOverride)
	}
}

func TestGraphTraversalHelpers(t *testing.T) {
	g := testGraph()

	succ := g.Successors("p2")
	if len(succ) != 1 || succ[0].ID != "h2" {
		t.Errorf("Successors(p2) = %+v, want [h2]", succ)
	}

	if _, ok := g.Node("missing"); ok {
		t.Error("Node(missing) should not be found")
	}
}
