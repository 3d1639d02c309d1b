package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sentinelsearch/sentinel/internal/behavior"
	"github.com/sentinelsearch/sentinel/internal/classify"
	"github.com/sentinelsearch/sentinel/internal/fresh"
	"github.com/sentinelsearch/sentinel/internal/geo"
	"github.com/sentinelsearch/sentinel/internal/relevance"
	"github.com/sentinelsearch/sentinel/internal/textutil"
	"github.com/sentinelsearch/sentinel/internal/trust"
)

// Engine runs the full ranking pipeline: spell correction, mode
// classification, location detection, per-candidate signal scoring, and
// aggregation. Speller, Location and Behavior are optional capabilities;
// when absent their signals read as neutral.
type Engine struct {
	Speller   *textutil.SpellChecker
	Detector  *classify.Detector
	Location  *geo.Detector
	Trust     *trust.Scorer
	Fresh     *fresh.Scorer
	Relevance *relevance.Scorer
	Behavior  *behavior.Tracker

	Standard  Weights
	Emergency Weights

	// EmergencyTrustFloor drops low-trust results from emergency responses.
	// Zero disables the filter.
	EmergencyTrustFloor float64
}

// Options adjusts a single ranking pass.
type Options struct {
	// ForceEmergency overrides classification, as when an operator has
	// declared an incident.
	ForceEmergency bool
}

// Response is the ranked output for one query.
type Response struct {
	Query           string            `json:"query"`
	CorrectedQuery  string            `json:"corrected_query,omitempty"`
	Mode            classify.Decision `json:"mode"`
	Location        string            `json:"detected_location,omitempty"`
	Results         []*Result         `json:"results"`
	DroppedLowTrust int               `json:"dropped_low_trust,omitempty"`
}

// Rank scores and orders the candidate set for a query. Candidates are
// annotated in place. Signal failures degrade to neutral scores; the only
// error is an empty query.
func (e *Engine) Rank(ctx context.Context, query string, candidates []*Result, opts Options) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	resp := &Response{Query: query}

	effective := query
	if e.Speller != nil {
		// CorrectSentence lowercases and strips punctuation, so compare
		// against the same normalization of the original to surface only
		// genuine corrections.
		corrected := e.Speller.CorrectSentence(query)
		if corrected != strings.Join(textutil.Tokenize(query), " ") {
			resp.CorrectedQuery = corrected
			effective = corrected
		}
	}

	if opts.ForceEmergency {
		resp.Mode = classify.Decision{
			Mode:       classify.ModeEmergency,
			Confidence: 1.0,
			Triggers:   []string{"manual activation"},
		}
	} else {
		resp.Mode = e.Detector.Classify(ctx, effective)
	}
	emergency := resp.Mode.Emergency()

	if e.Location != nil {
		resp.Location = e.Location.Detect(effective)
	}

	e.scoreAll(ctx, effective, resp.Location, emergency, candidates)

	kept := candidates
	if emergency && e.EmergencyTrustFloor > 0 {
		kept = kept[:0:0]
		for _, r := range candidates {
			if r.Trust.Score >= e.EmergencyTrustFloor {
				kept = append(kept, r)
			}
		}
		resp.DroppedLowTrust = len(candidates) - len(kept)
	}

	weights := e.Standard
	if emergency {
		weights = e.Emergency
	}
	hasLocation := resp.Location != ""
	for _, r := range kept {
		Aggregate(r, weights, hasLocation)
	}

	// Relevance orders first so that equal final scores resolve toward the
	// more relevant result; the final sort is stable.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Relevance.Relevance > kept[j].Relevance.Relevance
	})
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].FinalScore > kept[j].FinalScore
	})

	resp.Results = kept
	return resp, nil
}

// scoreAll attaches every sub-score. Scorers are pure, so candidates run
// concurrently; only the behavior lookup takes a lock internally.
func (e *Engine) scoreAll(ctx context.Context, query, targetLocation string, emergency bool, candidates []*Result) {
	var wg sync.WaitGroup
	for _, r := range candidates {
		wg.Add(1)
		go func(r *Result) {
			defer wg.Done()
			e.scoreOne(ctx, query, targetLocation, emergency, r)
		}(r)
	}
	wg.Wait()
}

func (e *Engine) scoreOne(ctx context.Context, query, targetLocation string, emergency bool, r *Result) {
	r.Trust = e.Trust.Score(r.Title, r.Snippet, r.URL)
	r.Freshness = e.Fresh.Score(r.PublishedAt, r.Metatags, r.Title+" "+r.Snippet, emergency)
	r.Relevance = e.Relevance.Score(ctx, query, r.Title, r.Snippet)
	r.Popularity = PopularityNeutral

	if targetLocation != "" {
		r.LocationScore = geo.ScoreResult(r.Location, r.Title, r.Snippet, targetLocation)
	} else {
		r.LocationScore = geo.ScoreNeutral
	}

	if e.Behavior != nil {
		r.PogoPenalty = e.Behavior.Penalty(r.URL)
		r.PogoCount = e.Behavior.PogoCount(r.URL)
	}
}
