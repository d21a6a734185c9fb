package intent

import "testing"

func TestClassifyTimeObjection(t *testing.T) {
	// "busy" and "later" both match, so confidence is 50 + 2*20 = 90.
	m := Classify("I'm really busy right now, call me later")

	if m.Key != KeyTimeObjection {
		t.Fatalf("Key = %q, want %q", m.Key, KeyTimeObjection)
	}
	if m.Confidence < 70 {
		t.Errorf("Confidence = %d, want >= 70", m.Confidence)
	}
}

func TestClassifyPriorityOutranksConfidence(t *testing.T) {
	// "sure" (positive, priority 5) and "expensive" (price, priority 9)
	// both match once; the objection must win on priority.
	m := Classify("sure, but that sounds expensive")

	if m.Key != KeyPriceObjection {
		t.Errorf("Key = %q, want %q", m.Key, KeyPriceObjection)
	}
}

func TestClassifyEmptyReturnsNeutral(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		m := Classify(text)
		if m.Key != KeyNeutral {
			t.Errorf("Classify(%q).Key = %q, want %q", text, m.Key, KeyNeutral)
		}
		if m.Confidence != 50 {
			t.Errorf("Classify(%q).Confidence = %d, want 50", text, m.Confidence)
		}
	}
}

func TestClassifyNoMatchReturnsNeutral(t *testing.T) {
	m := Classify("the weather has been unusual this week")
	if m.Key != KeyNeutral {
		t.Errorf("Key = %q, want %q", m.Key, KeyNeutral)
	}
	if m.Confidence != 50 {
		t.Errorf("Confidence = %d, want 50", m.Confidence)
	}
}

func TestClassifyConfidenceCapped(t *testing.T) {
	// Three keyword hits would be 50+60=110 without the cap.
	m := Classify("too expensive, the price is over our budget")
	if m.Key != KeyPriceObjection {
		t.Fatalf("Key = %q, want %q", m.Key, KeyPriceObjection)
	}
	if m.Confidence != 95 {
		t.Errorf("Confidence = %d, want capped at 95", m.Confidence)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "I need to check with my manager about the budget"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		if got := Classify(text); got != first {
			t.Fatalf("Classify not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"we already use another vendor for this", "competitor"},
		{"could you tell me more about the details", "needs_info"},
		{"no thanks, please remove me from your list", "not_interested"},
		{"that's not my call, I'd need approval", "authority_objection"},
		{"sounds good, go ahead", "positive_response"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if m := Classify(tt.text); m.Key != tt.want {
				t.Errorf("Classify(%q).Key = %q, want %q", tt.text, m.Key, tt.want)
			}
		})
	}
}
