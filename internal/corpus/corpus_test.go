package corpus

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleJSON = `{
	"training_data": {
		"standard": ["best pizza near me", "python tutorial"],
		"emergency": ["earthquake damage report", "flood evacuation routes"]
	},
	"mock_search_results": [
		{
			"id": 1,
			"source": "https://earthquake.usgs.gov/latest",
			"title": "M 6.2 Earthquake Strikes Northern California",
			"content": "Official report on the magnitude 6.2 earthquake",
			"trust": 0.95,
			"category": "official",
			"location": "California, USA",
			"timestamp": "2026-01-24T00:30:00"
		},
		{
			"id": 2,
			"source": "https://blog.example.com/quake",
			"title": "My earthquake experience",
			"content": "I felt the ground shake this morning",
			"trust": 0.4,
			"category": "blog",
			"location": "",
			"timestamp": ""
		}
	]
}`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(c.Documents))
	}
	if len(c.TrainingData["emergency"]) != 2 {
		t.Fatalf("emergency examples = %d, want 2", len(c.TrainingData["emergency"]))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseBareArray(t *testing.T) {
	c, err := Parse([]byte(`[{"source": "https://a", "title": "t", "content": "c"}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Documents) != 1 || c.Documents[0].Source != "https://a" {
		t.Fatalf("bare array not accepted: %+v", c.Documents)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestVocabularyTextsDeterministic(t *testing.T) {
	c, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	texts := c.VocabularyTexts()
	if len(texts) != 4 {
		t.Fatalf("texts = %d, want 4", len(texts))
	}
	// Classes iterate in sorted order: emergency before standard.
	if texts[0] != "earthquake damage report" {
		t.Fatalf("first text = %q, want emergency class first", texts[0])
	}
	for i := 0; i < 5; i++ {
		again := c.VocabularyTexts()
		for j := range texts {
			if texts[j] != again[j] {
				t.Fatalf("vocabulary order not deterministic at %d", j)
			}
		}
	}
}

func TestLocations(t *testing.T) {
	c, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	locs := c.Locations()
	if len(locs) != 1 || locs[0] != "California, USA" {
		t.Fatalf("locations = %v", locs)
	}
}

func TestSearchFiltersByTerm(t *testing.T) {
	c, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := c.Search("earthquake", 0); len(got) != 2 {
		t.Fatalf("search hits = %d, want 2", len(got))
	}
	if got := c.Search("magnitude", 0); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("content term should match only doc 1: %+v", got)
	}
	if got := c.Search("volcano", 0); got != nil {
		t.Fatalf("no-hit query returned %d docs", len(got))
	}
	if got := c.Search("", 0); got != nil {
		t.Fatalf("empty query returned %d docs", len(got))
	}
	if got := c.Search("earthquake", 1); len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}

func TestPublishedAt(t *testing.T) {
	cases := []struct {
		raw  string
		ok   bool
		want time.Time
	}{
		{"2026-01-24T00:30:00", true, time.Date(2026, 1, 24, 0, 30, 0, 0, time.UTC)},
		{"2026-01-24T00:30:00Z", true, time.Date(2026, 1, 24, 0, 30, 0, 0, time.UTC)},
		{"2026-01-24", true, time.Date(2026, 1, 24, 0, 0, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"next tuesday", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := Document{Timestamp: tc.raw}.PublishedAt()
		if ok != tc.ok {
			t.Fatalf("PublishedAt(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("PublishedAt(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
