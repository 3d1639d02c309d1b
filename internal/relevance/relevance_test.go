package relevance

import (
	"context"
	"math"
	"testing"

	"github.com/sentinelsearch/sentinel/internal/embed"
)

func TestScoreOrdersObviousCandidates(t *testing.T) {
	s := &Scorer{}
	ctx := context.Background()
	query := "earthquake california"

	onTopic := s.Score(ctx, query,
		"California Earthquake: 6.2 Magnitude Hits Bay Area",
		"A major earthquake struck California today causing widespread damage")
	offTopic := s.Score(ctx, query,
		"Weather Forecast for San Francisco",
		"Sunny skies expected in the Bay Area this weekend")

	if onTopic.Relevance <= offTopic.Relevance {
		t.Fatalf("on-topic %.3f <= off-topic %.3f", onTopic.Relevance, offTopic.Relevance)
	}
	if onTopic.Relevance < 0 || onTopic.Relevance > 1 {
		t.Fatalf("relevance out of range: %.3f", onTopic.Relevance)
	}
}

func TestFuzzyMatchCatchesTypos(t *testing.T) {
	s := &Scorer{}

	scores := s.Score(context.Background(), "earthquake california",
		"Earthquke in Californa", "Breaking news from the region")
	// Both title words are within 2 edits of a query term.
	if scores.TitleMatch != 0.5 {
		t.Fatalf("title match = %.3f, want 0.5 (fuzzy credit)", scores.TitleMatch)
	}
}

func TestExactBeatsPartialBeatsFuzzy(t *testing.T) {
	exact := overlapScore([]string{"flood"}, []string{"flood"})
	partial := overlapScore([]string{"program"}, []string{"programming"})
	fuzzy := overlapScore([]string{"earthquke"}, []string{"earthquake"})
	miss := overlapScore([]string{"flood"}, []string{"volcano"})

	if exact != 1.0 || partial != 0.7 || miss != 0.0 {
		t.Fatalf("credits: exact=%.1f partial=%.1f miss=%.1f", exact, partial, miss)
	}
	// "earthquke"/"earthquake" is containment-free and 1 edit apart.
	if fuzzy != 0.5 {
		t.Fatalf("fuzzy credit = %.1f, want 0.5", fuzzy)
	}
}

func TestBM25SaturatesWithRepetition(t *testing.T) {
	once := bm25SingleDoc([]string{"flood"}, []string{"flood", "levels", "rising"})
	many := bm25SingleDoc([]string{"flood"}, []string{"flood", "flood", "flood", "flood", "levels"})

	if many <= once {
		t.Fatalf("repetition should increase score: %.4f <= %.4f", many, once)
	}
	// Diminishing returns: score stays bounded by idf * (k1 + 1).
	bound := math.Log(0.5/1.5+1.0) * (bm25K1 + 1)
	if many >= bound {
		t.Fatalf("score %.4f should stay below saturation bound %.4f", many, bound)
	}
}

func TestBM25EmptyInputs(t *testing.T) {
	if got := bm25SingleDoc(nil, []string{"x"}); got != 0 {
		t.Fatalf("empty query score = %.3f, want 0", got)
	}
	if got := bm25SingleDoc([]string{"x"}, nil); got != 0 {
		t.Fatalf("empty doc score = %.3f, want 0", got)
	}
}

func TestSemanticNeutralWithoutEmbedder(t *testing.T) {
	s := &Scorer{}
	scores := s.Score(context.Background(), "any query", "any title", "any snippet")
	if scores.Semantic != 0.5 {
		t.Fatalf("semantic = %.3f, want neutral 0.5", scores.Semantic)
	}
}

func TestSemanticNeutralWhenEmbedderFails(t *testing.T) {
	s := &Scorer{Embedder: embed.Null{}}
	scores := s.Score(context.Background(), "query", "title", "snippet")
	if scores.Semantic != 0.5 {
		t.Fatalf("semantic = %.3f, want neutral 0.5 on embed failure", scores.Semantic)
	}
}

// vectorEmbedder returns canned vectors keyed by input text.
type vectorEmbedder struct{ vectors map[string][]float32 }

func (v vectorEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := v.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (v vectorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = v.Embed(ctx, t)
	}
	return out, nil
}

func (v vectorEmbedder) Dimensions() int { return 3 }

func TestSemanticUsesEmbedderCosine(t *testing.T) {
	emb := vectorEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
		// doc text is "title title snippet"
		"title title snippet": {1, 0, 0},
	}}
	s := &Scorer{Embedder: emb}

	scores := s.Score(context.Background(), "query", "title", "snippet")
	if scores.Semantic != 1.0 {
		t.Fatalf("identical vectors should give semantic 1.0, got %.3f", scores.Semantic)
	}
}

func TestRelevanceWeights(t *testing.T) {
	// With no embedder, semantic is 0.5, so relevance = 0.5*term + 0.25*match + 0.125.
	s := &Scorer{}
	scores := s.Score(context.Background(), "flood", "flood", "flood")

	want := scores.TermScore*0.5 + scores.MatchScore*0.25 + 0.5*0.25
	if math.Abs(scores.Relevance-want) > 0.001 {
		t.Fatalf("relevance = %.3f, want %.3f", scores.Relevance, want)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := &Scorer{}
	a := s.Score(context.Background(), "earthquake california", "California Earthquake", "major damage reported")
	b := s.Score(context.Background(), "earthquake california", "California Earthquake", "major damage reported")
	if a != b {
		t.Fatalf("identical inputs produced different scores: %+v vs %+v", a, b)
	}
}
