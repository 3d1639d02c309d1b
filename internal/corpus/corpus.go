// Package corpus loads the JSON data file that backs the engine: a labeled
// training corpus for the mode classifier and spell-check vocabulary, plus a
// curated candidate document set for offline search.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Document is one searchable candidate from the data file.
type Document struct {
	ID        int      `json:"id,omitempty"`
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Keywords  []string `json:"keywords,omitempty"`
	Trust     float64  `json:"trust,omitempty"`
	Category  string   `json:"category,omitempty"`
	Location  string   `json:"location,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// timestampLayouts covers the formats seen in data files.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishedAt parses the document timestamp. ok is false when the field is
// empty or unparseable.
func (d Document) PublishedAt() (time.Time, bool) {
	raw := strings.TrimSpace(d.Timestamp)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Corpus is the parsed data file.
type Corpus struct {
	// TrainingData maps a class label ("emergency", "standard") to example
	// texts.
	TrainingData map[string][]string `json:"training_data"`
	// Documents is the candidate result set.
	Documents []Document `json:"mock_search_results"`
}

// Load reads and parses a corpus file.
func Load(path string) (*Corpus, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes corpus JSON. A bare top-level array is accepted as a document
// set with no training data.
func Parse(raw []byte) (*Corpus, error) {
	var c Corpus
	if err := json.Unmarshal(raw, &c); err != nil {
		var docs []Document
		if arrErr := json.Unmarshal(raw, &docs); arrErr == nil {
			return &Corpus{Documents: docs}, nil
		}
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	return &c, nil
}

// VocabularyTexts flattens all training examples across classes, in sorted
// class order so the derived vocabulary is deterministic.
func (c *Corpus) VocabularyTexts() []string {
	classes := make([]string, 0, len(c.TrainingData))
	for class := range c.TrainingData {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	var texts []string
	for _, class := range classes {
		texts = append(texts, c.TrainingData[class]...)
	}
	return texts
}

// Locations returns the distinct non-empty document locations, sorted.
func (c *Corpus) Locations() []string {
	seen := make(map[string]struct{})
	for _, d := range c.Documents {
		loc := strings.TrimSpace(d.Location)
		if loc == "" {
			continue
		}
		seen[loc] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for loc := range seen {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Search returns up to limit documents whose title or content contains any
// query term, in corpus order. limit <= 0 means no limit.
func (c *Corpus) Search(query string, limit int) []Document {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var out []Document
	for _, d := range c.Documents {
		text := strings.ToLower(d.Title + " " + d.Content)
		for _, term := range terms {
			if strings.Contains(text, term) {
				out = append(out, d)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
