// Package relevance scores how well a result's text answers the query.
//
// Three signals combine with fixed 50/25/25 weights:
//   - a BM25-style field-weighted term score (title 60%, snippet 40%)
//   - exact/partial/fuzzy term overlap
//   - semantic embedding similarity, neutral 0.5 when no embedder is composed
package relevance

import (
	"context"
	"math"
	"strings"

	"github.com/sentinelsearch/sentinel/internal/embed"
	"github.com/sentinelsearch/sentinel/internal/textutil"
)

// Signal weights for the final relevance value.
const (
	termWeight     = 0.50
	matchWeight    = 0.25
	semanticWeight = 0.25
)

// Field weights: titles say more about a page than snippets do.
const (
	titleFieldWeight   = 0.6
	snippetFieldWeight = 0.4
)

// BM25 parameters. Scoring runs per single document, so the saturation
// constant k1 dominates; document-length normalization cancels out.
const (
	bm25K1 = 1.5
	bm25B  = 0.75

	// bm25Ceiling normalizes the weighted BM25 value into [0,1]; raw scores
	// in this single-document setting empirically live in roughly [0,5].
	bm25Ceiling = 5.0
)

// Term-overlap match credits.
const (
	exactCredit     = 1.0
	partialCredit   = 0.7
	fuzzyCredit     = 0.5
	fuzzyMaxEdits   = 2
	neutralSemantic = 0.5
)

// Scores carries the sub-scores and the combined relevance for one result.
type Scores struct {
	TitleTerm    float64 `json:"title_term"`
	SnippetTerm  float64 `json:"snippet_term"`
	TermScore    float64 `json:"term_score"`
	TitleMatch   float64 `json:"title_match"`
	SnippetMatch float64 `json:"snippet_match"`
	MatchScore   float64 `json:"match_score"`
	Semantic     float64 `json:"semantic_score"`
	Relevance    float64 `json:"relevance_score"`
}

// Scorer computes relevance. Embedder may be nil; semantic similarity then
// reads as the neutral 0.5.
type Scorer struct {
	Embedder embed.Embedder
}

// Score evaluates the query against a result's title and snippet.
func (s *Scorer) Score(ctx context.Context, query, title, snippet string) Scores {
	queryTokens := textutil.Tokenize(query)

	titleTerm := bm25SingleDoc(queryTokens, textutil.Tokenize(title))
	snippetTerm := bm25SingleDoc(queryTokens, textutil.Tokenize(snippet))
	weightedTerm := titleTerm*titleFieldWeight + snippetTerm*snippetFieldWeight
	termNorm := math.Min(1.0, weightedTerm/bm25Ceiling)

	titleMatch := overlapScore(queryTokens, textutil.Tokenize(title))
	snippetMatch := overlapScore(queryTokens, textutil.Tokenize(snippet))
	matchScore := titleMatch*titleFieldWeight + snippetMatch*snippetFieldWeight

	semantic := s.semanticScore(ctx, query, title, snippet)

	return Scores{
		TitleTerm:    round3(titleTerm),
		SnippetTerm:  round3(snippetTerm),
		TermScore:    round3(termNorm),
		TitleMatch:   round3(titleMatch),
		SnippetMatch: round3(snippetMatch),
		MatchScore:   round3(matchScore),
		Semantic:     round3(semantic),
		Relevance:    round3(termNorm*termWeight + matchScore*matchWeight + semantic*semanticWeight),
	}
}

// bm25SingleDoc computes a BM25 score for the query against a one-document
// corpus. With a single document the average length equals the document
// length, so the length normalization term reduces to tf + k1.
func bm25SingleDoc(queryTokens, docTokens []string) float64 {
	if len(docTokens) == 0 || len(queryTokens) == 0 {
		return 0
	}

	tf := make(map[string]int, len(docTokens))
	for _, tok := range docTokens {
		tf[tok]++
	}

	// Single-document IDF: N=1, df=1 for present terms.
	idf := math.Log(0.5/1.5 + 1.0)

	var score float64
	for _, q := range queryTokens {
		freq := float64(tf[q])
		if freq == 0 {
			continue
		}
		score += idf * (freq * (bm25K1 + 1)) / (freq + bm25K1)
	}
	return score
}

// overlapScore averages the best per-term match credit: exact 1.0, substring
// containment 0.7, within 2 edits 0.5, else 0.
func overlapScore(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	var total float64
	for _, q := range queryTokens {
		best := 0.0
		for _, w := range docTokens {
			switch {
			case q == w:
				best = exactCredit
			case best < partialCredit && (strings.Contains(w, q) || strings.Contains(q, w)):
				best = partialCredit
			case best < fuzzyCredit && textutil.Distance(q, w) <= fuzzyMaxEdits:
				best = fuzzyCredit
			}
			if best == exactCredit {
				break
			}
		}
		total += best
	}
	return total / float64(len(queryTokens))
}

// semanticScore embeds the query and the document text (title doubled to
// weight it) and maps cosine similarity from [-1,1] to [0,1]. Any missing
// capability or embedding failure yields the neutral 0.5.
func (s *Scorer) semanticScore(ctx context.Context, query, title, snippet string) float64 {
	if s.Embedder == nil {
		return neutralSemantic
	}

	queryVec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return neutralSemantic
	}
	docVec, err := s.Embedder.Embed(ctx, title+" "+title+" "+snippet)
	if err != nil {
		return neutralSemantic
	}

	sim := embed.Cosine(queryVec, docVec)
	return clamp01((sim + 1) / 2)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
