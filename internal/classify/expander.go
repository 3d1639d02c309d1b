package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/sentinelsearch/sentinel/internal/embed"
	"github.com/sentinelsearch/sentinel/internal/textutil"
)

// DefaultSemanticThreshold is the minimum cosine similarity between a query
// token and an emergency keyword for a semantic trigger.
const DefaultSemanticThreshold = 0.6

// SemanticExpander flags queries whose tokens are semantically close to an
// emergency keyword even when no keyword matches literally ("inundation" vs
// "flood"). Keyword vectors are embedded once on first use; any embedding
// failure permanently disables the expander rather than failing the query.
type SemanticExpander struct {
	embedder  embed.Embedder
	keywords  []string
	threshold float64

	once     sync.Once
	vectors  [][]float32
	disabled bool
}

// NewSemanticExpander builds an expander over the keyword list. A nil
// embedder yields an expander that never triggers.
func NewSemanticExpander(e embed.Embedder, keywords []string, threshold float64) *SemanticExpander {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	if len(keywords) == 0 {
		keywords = DefaultEmergencyKeywords
	}
	return &SemanticExpander{embedder: e, keywords: keywords, threshold: threshold}
}

// Expand returns semantic trigger strings for tokens close to an emergency
// keyword. Non-failing: errors produce no triggers.
func (x *SemanticExpander) Expand(ctx context.Context, query string) []string {
	if x.embedder == nil {
		return nil
	}

	x.once.Do(func() {
		vecs, err := x.embedder.EmbedBatch(ctx, x.keywords)
		if err != nil {
			x.disabled = true
			return
		}
		x.vectors = vecs
	})
	if x.disabled {
		return nil
	}

	var triggers []string
	for _, tok := range textutil.Tokenize(query) {
		vec, err := x.embedder.Embed(ctx, tok)
		if err != nil {
			return triggers
		}
		for i, kv := range x.vectors {
			if embed.Cosine(vec, kv) > x.threshold {
				triggers = append(triggers, fmt.Sprintf("semantic:%s~%s", tok, x.keywords[i]))
				break
			}
		}
	}
	return triggers
}
