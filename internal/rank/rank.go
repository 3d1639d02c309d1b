// Package rank combines the per-signal scores into a final ranked order.
//
// Each mode (standard, emergency) carries a weight table over the five
// signals. The aggregation formula blends freshness, trust, popularity and
// location; relevance orders candidates before aggregation so that final-score
// ties resolve toward the more relevant result. When the query names no
// location the location weight drops out and the remaining weights are
// renormalized to sum to 1.0.
package rank

import (
	"fmt"
	"math"
	"time"

	"github.com/sentinelsearch/sentinel/internal/fresh"
	"github.com/sentinelsearch/sentinel/internal/relevance"
	"github.com/sentinelsearch/sentinel/internal/trust"
)

// PopularityNeutral stands in for real click-through popularity data. An
// extension point: replace with observed popularity when available.
const PopularityNeutral = 0.5

// weightEpsilon bounds the float drift allowed in the sum-to-one check.
const weightEpsilon = 1e-6

// Weights is one mode's weight table over the ranking signals.
type Weights struct {
	Relevance  float64 `yaml:"relevance" json:"relevance"`
	Trust      float64 `yaml:"trust" json:"trust"`
	Freshness  float64 `yaml:"freshness" json:"freshness"`
	Popularity float64 `yaml:"popularity" json:"popularity"`
	Location   float64 `yaml:"location" json:"location"`
}

// StandardWeights is the default table for everyday queries.
func StandardWeights() Weights {
	return Weights{Relevance: 0.30, Trust: 0.25, Freshness: 0.15, Popularity: 0.20, Location: 0.10}
}

// EmergencyWeights shifts weight toward freshness and location: in a crisis,
// a day-old page is stale and nearby sources matter more.
func EmergencyWeights() Weights {
	return Weights{Relevance: 0.20, Trust: 0.25, Freshness: 0.35, Popularity: 0.05, Location: 0.15}
}

// Validate rejects negative weights and tables that do not sum to 1.0.
// Misconfigured weights fail here, at load time; renormalization at rank time
// happens only for the documented no-location case.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"relevance":  w.Relevance,
		"trust":      w.Trust,
		"freshness":  w.Freshness,
		"popularity": w.Popularity,
		"location":   w.Location,
	} {
		if v < 0 {
			return fmt.Errorf("weight %q is negative: %v", name, v)
		}
	}
	sum := w.Relevance + w.Trust + w.Freshness + w.Popularity + w.Location
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("weights sum to %.4f, want 1.0", sum)
	}
	return nil
}

// Result is one candidate document flowing through the pipeline. Scorers
// attach their sub-scores; Aggregate fills FinalScore last.
type Result struct {
	Title       string            `json:"title"`
	Snippet     string            `json:"snippet"`
	URL         string            `json:"link"`
	Location    string            `json:"location,omitempty"`
	PublishedAt *time.Time        `json:"-"`
	Metatags    map[string]string `json:"-"`

	Trust         trust.Assessment `json:"trust"`
	Freshness     fresh.Freshness  `json:"freshness"`
	Relevance     relevance.Scores `json:"relevance"`
	LocationScore float64          `json:"location_score,omitempty"`
	Popularity    float64          `json:"popularity_score"`
	PogoPenalty   float64          `json:"pogo_penalty"`
	PogoCount     int              `json:"pogo_count,omitempty"`
	FinalScore    float64          `json:"final_score"`
}

// Aggregate computes the final score from the attached sub-scores. With a
// detected location all four blended weights apply; without one the location
// weight is excluded and the rest scale up by 1/(w_f+w_t+w_p). The behavior
// penalty subtracts after the blend. Floored at 0, rounded to three decimals.
func Aggregate(r *Result, w Weights, hasLocation bool) {
	var blended float64
	if hasLocation {
		blended = r.Freshness.Score*w.Freshness +
			r.Trust.Score*w.Trust +
			r.Popularity*w.Popularity +
			r.LocationScore*w.Location
	} else {
		factor := 1.0 / (w.Freshness + w.Trust + w.Popularity)
		blended = (r.Freshness.Score*w.Freshness +
			r.Trust.Score*w.Trust +
			r.Popularity*w.Popularity) * factor
	}

	final := blended - r.PogoPenalty
	if final < 0 {
		final = 0
	}
	r.FinalScore = round3(final)
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
