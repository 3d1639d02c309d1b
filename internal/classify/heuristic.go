package classify

import (
	"math"
	"regexp"
	"strings"
)

// DefaultEmergencyKeywords is the seed keyword list used when the
// configuration does not provide one.
var DefaultEmergencyKeywords = []string{
	"earthquake", "tsunami", "wildfire", "hurricane", "flood",
	"evacuation", "shelter", "emergency alert", "active shooter",
	"tornado warning", "amber alert", "disaster", "explosion",
	"fire", "storm", "cyclone", "emergency", "crisis", "rescue",
	"missing person", "accident", "collapse", "outbreak", "pandemic",
	"chemical spill", "gas leak", "power outage", "blackout",
}

// TriggerLocationHazard marks a hazard+place co-occurrence match.
const TriggerLocationHazard = "location-hazard"

// Confidence formula constants: keyword hits dominate, urgency patterns
// contribute a capped remainder.
const (
	keywordWeight  = 0.3
	keywordCeiling = 0.7
	urgencyWeight  = 0.15
	urgencyCeiling = 0.3
	emergencyFloor = 0.3
)

var urgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(now|urgent|immediately|asap|help)\b`),
	regexp.MustCompile(`\b(where to go|how to escape|safe place|nearest)\b`),
	regexp.MustCompile(`\b(warning|alert|danger|caution)\b`),
	regexp.MustCompile(`\b(breaking|live|current|latest)\b`),
}

var locationHazardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(earthquake|fire|flood|storm) (in|near|at) \w+`),
	regexp.MustCompile(`evacuation (in|near|from) \w+`),
}

// Heuristic is the keyword/pattern emergency detector. It is a pure function
// over the query; construct once and share freely.
type Heuristic struct {
	keywords []string
}

// NewHeuristic builds a detector over the given keyword list. An empty list
// falls back to DefaultEmergencyKeywords.
func NewHeuristic(keywords []string) *Heuristic {
	if len(keywords) == 0 {
		keywords = DefaultEmergencyKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Heuristic{keywords: lowered}
}

// Classify scans the query for emergency keywords and urgency patterns.
//
// confidence = min(keyword_score + urgency_score, 1.0)
// keyword_score = min(0.3 * matches, 0.7)
// urgency_score = min(0.15 * patterns, 0.3)
//
// The mode is emergency when confidence >= 0.3 or any keyword matched.
func (h *Heuristic) Classify(query string) Decision {
	q := strings.ToLower(query)

	var triggers []string
	for _, kw := range h.keywords {
		if strings.Contains(q, kw) {
			triggers = append(triggers, kw)
		}
	}
	keywordMatches := len(triggers)

	urgencyCount := 0
	for _, p := range urgencyPatterns {
		if p.MatchString(q) {
			urgencyCount++
		}
	}

	for _, p := range locationHazardPatterns {
		if p.MatchString(q) {
			triggers = append(triggers, TriggerLocationHazard)
			break
		}
	}

	keywordScore := math.Min(float64(keywordMatches)*keywordWeight, keywordCeiling)
	urgencyScore := math.Min(float64(urgencyCount)*urgencyWeight, urgencyCeiling)
	confidence := math.Min(keywordScore+urgencyScore, 1.0)

	mode := ModeStandard
	if confidence >= emergencyFloor || len(triggers) > 0 {
		mode = ModeEmergency
	}

	return Decision{
		Mode:       mode,
		Confidence: confidence,
		Triggers:   triggers,
	}
}
