package classify

import (
	"strings"
	"testing"
)

func TestHeuristicEmergencyQuery(t *testing.T) {
	h := NewHeuristic(nil)

	dec := h.Classify("earthquake in california now")
	if dec.Mode != ModeEmergency {
		t.Fatalf("mode = %q, want emergency", dec.Mode)
	}
	if dec.Confidence < 0.3 {
		t.Fatalf("confidence = %.2f, want >= 0.3", dec.Confidence)
	}
	found := false
	for _, trig := range dec.Triggers {
		if trig == "earthquake" {
			found = true
		}
	}
	if !found {
		t.Fatalf("triggers %v missing %q", dec.Triggers, "earthquake")
	}
}

func TestHeuristicStandardQuery(t *testing.T) {
	h := NewHeuristic(nil)

	for _, q := range []string{
		"best pasta recipes",
		"golang generics tutorial",
		"weekend hiking trails",
	} {
		dec := h.Classify(q)
		if dec.Mode != ModeStandard {
			t.Fatalf("Classify(%q).Mode = %q, want standard (triggers %v)", q, dec.Mode, dec.Triggers)
		}
		if len(dec.Triggers) != 0 {
			t.Fatalf("Classify(%q) unexpected triggers %v", q, dec.Triggers)
		}
	}
}

func TestHeuristicConfidenceFormula(t *testing.T) {
	h := NewHeuristic(nil)

	// One keyword ("flood"), one urgency pattern ("warning" also is a
	// urgency match and "now" another): keyword_score = 0.3,
	// urgency matches: now/urgent group + warning group = 2 -> 0.3.
	dec := h.Classify("flood warning now")
	want := 0.3 + 0.3
	if diff := dec.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %.3f, want %.3f", dec.Confidence, want)
	}
}

func TestHeuristicKeywordScoreCaps(t *testing.T) {
	h := NewHeuristic(nil)

	// Many keywords: keyword_score caps at 0.7, urgency at 0.3, total <= 1.
	dec := h.Classify("earthquake flood fire tsunami hurricane explosion urgent warning breaking nearest")
	if dec.Confidence > 1.0 {
		t.Fatalf("confidence = %.3f, want <= 1.0", dec.Confidence)
	}
	if dec.Confidence < 0.99 {
		t.Fatalf("confidence = %.3f, want saturated near 1.0", dec.Confidence)
	}
}

func TestHeuristicLocationHazardTrigger(t *testing.T) {
	h := NewHeuristic([]string{"nonmatching-keyword"})

	dec := h.Classify("fire near oakland")
	found := false
	for _, trig := range dec.Triggers {
		if trig == TriggerLocationHazard {
			found = true
		}
	}
	if !found {
		t.Fatalf("triggers %v missing location-hazard", dec.Triggers)
	}
	if dec.Mode != ModeEmergency {
		t.Fatalf("hazard co-occurrence should force emergency, got %q", dec.Mode)
	}
}

func TestHeuristicCustomKeywords(t *testing.T) {
	h := NewHeuristic([]string{"Meltdown"})

	dec := h.Classify("reactor meltdown reported")
	if dec.Mode != ModeEmergency || len(dec.Triggers) != 1 || dec.Triggers[0] != "meltdown" {
		t.Fatalf("custom keyword not honored: %+v", dec)
	}
	if strings.Contains(strings.Join(dec.Triggers, ","), "fire") {
		t.Fatalf("default keywords leaked into custom list: %v", dec.Triggers)
	}
}
