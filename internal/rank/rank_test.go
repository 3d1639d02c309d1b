package rank

import (
	"math"
	"testing"
)

func TestDefaultWeightsValidate(t *testing.T) {
	if err := StandardWeights().Validate(); err != nil {
		t.Fatalf("standard weights: %v", err)
	}
	if err := EmergencyWeights().Validate(); err != nil {
		t.Fatalf("emergency weights: %v", err)
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	bad := Weights{Relevance: 0.5, Trust: 0.5, Freshness: 0.5}
	if err := bad.Validate(); err == nil {
		t.Fatalf("sum 1.5 should fail validation")
	}
	negative := Weights{Relevance: -0.1, Trust: 0.4, Freshness: 0.3, Popularity: 0.2, Location: 0.2}
	if err := negative.Validate(); err == nil {
		t.Fatalf("negative weight should fail validation")
	}
}

func TestAggregateWithLocation(t *testing.T) {
	r := &Result{
		Popularity:    0.5,
		LocationScore: 1.0,
	}
	r.Freshness.Score = 1.0
	r.Trust.Score = 0.95

	w := EmergencyWeights()
	Aggregate(r, w, true)

	want := 1.0*w.Freshness + 0.95*w.Trust + 0.5*w.Popularity + 1.0*w.Location
	want = math.Round(want*1000) / 1000
	if r.FinalScore != want {
		t.Fatalf("final = %.3f, want %.3f", r.FinalScore, want)
	}
}

func TestAggregateRenormalizesWithoutLocation(t *testing.T) {
	r := &Result{Popularity: 0.5}
	r.Freshness.Score = 0.8
	r.Trust.Score = 0.6

	w := StandardWeights()
	Aggregate(r, w, false)

	factor := 1.0 / (w.Freshness + w.Trust + w.Popularity)
	want := (0.8*w.Freshness + 0.6*w.Trust + 0.5*w.Popularity) * factor
	want = math.Round(want*1000) / 1000
	if r.FinalScore != want {
		t.Fatalf("final = %.3f, want %.3f", r.FinalScore, want)
	}
}

func TestAggregateAllNeutralWithoutLocationIsNeutral(t *testing.T) {
	// With every blended signal at the same value v, renormalization must
	// return exactly v regardless of the table.
	r := &Result{Popularity: 0.5}
	r.Freshness.Score = 0.5
	r.Trust.Score = 0.5

	Aggregate(r, StandardWeights(), false)
	if r.FinalScore != 0.5 {
		t.Fatalf("uniform signals should aggregate to themselves: %.3f", r.FinalScore)
	}
}

func TestAggregateSubtractsPenaltyAndFloors(t *testing.T) {
	r := &Result{Popularity: 0.5, PogoPenalty: 0.15}
	r.Freshness.Score = 0.5
	r.Trust.Score = 0.5

	Aggregate(r, StandardWeights(), false)
	if r.FinalScore != 0.35 {
		t.Fatalf("final = %.3f, want 0.35 after penalty", r.FinalScore)
	}

	r.PogoPenalty = 1.0
	Aggregate(r, StandardWeights(), false)
	if r.FinalScore != 0 {
		t.Fatalf("final = %.3f, want floor 0", r.FinalScore)
	}
}
