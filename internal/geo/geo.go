// Package geo detects a location mention in a query and scores how well each
// result matches it.
//
// Detection prefers an entity recognizer when one is composed in; the always
// available fallback is a gazetteer lookup (longest match first, word-bounded)
// built from known result locations plus a manual seed list. When the query
// names no location the signal is inert and every result scores neutral 1.0.
package geo

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sentinelsearch/sentinel/internal/textutil"
)

// Location match scores.
const (
	ScoreExact   = 1.0
	ScorePartial = 0.8
	ScoreMiss    = 0.1
	ScoreNeutral = 1.0

	// partialMinLength is the minimum token length for a partial match;
	// short codes like "CA" or "US" are too ambiguous.
	partialMinLength = 3

	// seedMinLength filters short codes out of learned gazetteer entries.
	seedMinLength = 2
)

// locativePrepositions mark the entity most likely to be the query's target
// when a recognizer returns several.
var locativePrepositions = map[string]struct{}{
	"in": {}, "near": {}, "at": {}, "around": {}, "from": {},
}

// defaultSeeds keeps the gazetteer useful before any corpus locations load.
var defaultSeeds = []string{
	"california", "texas", "florida", "new york",
	"japan", "india", "nepal", "turkey", "pakistan", "bihar",
}

// Entity is a place name found by a recognizer, with its token offset in the
// query.
type Entity struct {
	Text  string
	Start int
}

// Recognizer finds geo-political entities in text. Implementations are a
// composition-time capability; when absent the detector uses the gazetteer
// alone.
type Recognizer interface {
	Locations(query string) []Entity
}

// Detector finds the target location of a query.
type Detector struct {
	recognizer Recognizer
	gazetteer  map[string]struct{}
	// ordered holds gazetteer entries longest-first so multi-word places
	// ("new york") win over their parts.
	ordered []gazetteerEntry
}

type gazetteerEntry struct {
	name string
	re   *regexp.Regexp
}

// NewDetector builds a detector. recognizer may be nil; extraLocations are
// learned from the corpus and merged with the built-in seeds.
func NewDetector(recognizer Recognizer, extraLocations []string) *Detector {
	d := &Detector{
		recognizer: recognizer,
		gazetteer:  make(map[string]struct{}),
	}
	for _, s := range defaultSeeds {
		d.gazetteer[s] = struct{}{}
	}
	for _, loc := range extraLocations {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc == "" {
			continue
		}
		d.gazetteer[loc] = struct{}{}
		for _, part := range splitLocation(loc) {
			if len(part) > seedMinLength {
				d.gazetteer[part] = struct{}{}
			}
		}
	}

	for loc := range d.gazetteer {
		// Word boundaries keep "man" from matching inside "manual".
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(loc) + `\b`)
		d.ordered = append(d.ordered, gazetteerEntry{name: loc, re: re})
	}
	sort.Slice(d.ordered, func(i, j int) bool {
		if len(d.ordered[i].name) != len(d.ordered[j].name) {
			return len(d.ordered[i].name) > len(d.ordered[j].name)
		}
		return d.ordered[i].name < d.ordered[j].name
	})
	return d
}

// Detect returns the location the query targets, or "" when none is found.
func (d *Detector) Detect(query string) string {
	if d.recognizer != nil {
		if loc := d.detectNER(query); loc != "" {
			return loc
		}
	}
	return d.detectGazetteer(query)
}

// detectNER asks the recognizer, preferring an entity that directly follows a
// locative preposition when several are found.
func (d *Detector) detectNER(query string) string {
	entities := d.recognizer.Locations(query)
	if len(entities) == 0 {
		return ""
	}

	tokens := textutil.Tokenize(query)
	for _, ent := range entities {
		if ent.Start > 0 && ent.Start <= len(tokens) {
			prev := tokens[ent.Start-1]
			if _, ok := locativePrepositions[prev]; ok {
				return ent.Text
			}
		}
	}
	return entities[0].Text
}

func (d *Detector) detectGazetteer(query string) string {
	q := strings.ToLower(query)
	for _, entry := range d.ordered {
		if entry.re.MatchString(q) {
			return entry.name
		}
	}
	return ""
}

// ScoreResult scores how well a result matches the target location.
//
//   - 1.0: the result's location tag and the target mutually contain each
//     other, or the target appears verbatim in the text
//   - 0.8: an individual target token longer than 3 chars appears in the text
//   - 0.1: no match
//   - 1.0 neutral when no target was detected
func ScoreResult(resultLocation, title, snippet, target string) float64 {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return ScoreNeutral
	}

	resLoc := strings.ToLower(strings.TrimSpace(resultLocation))
	if resLoc != "" && (strings.Contains(resLoc, target) || strings.Contains(target, resLoc)) {
		return ScoreExact
	}

	text := strings.ToLower(title + " " + snippet)
	if strings.Contains(text, target) {
		return ScoreExact
	}

	for _, part := range splitLocation(target) {
		if len(part) > partialMinLength && strings.Contains(text, part) {
			return ScorePartial
		}
	}
	return ScoreMiss
}

var locationSplitRe = regexp.MustCompile(`[,\s]+`)

func splitLocation(loc string) []string {
	var parts []string
	for _, p := range locationSplitRe.Split(loc, -1) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
