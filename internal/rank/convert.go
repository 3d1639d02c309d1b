package rank

import "github.com/sentinelsearch/sentinel/internal/corpus"

// FromDocuments turns corpus documents into candidates ready for ranking.
func FromDocuments(docs []corpus.Document) []*Result {
	out := make([]*Result, len(docs))
	for i, d := range docs {
		r := &Result{
			Title:    d.Title,
			Snippet:  d.Content,
			URL:      d.Source,
			Location: d.Location,
		}
		if ts, ok := d.PublishedAt(); ok {
			published := ts
			r.PublishedAt = &published
		}
		out[i] = r
	}
	return out
}
