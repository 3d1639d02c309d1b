// Package fresh estimates content age and converts it to a recency score.
//
// A publish date is recovered in order of preference: an explicit timestamp
// on the result, structured metadata fields, relative-time expressions in the
// text ("3 hours ago"), then absolute date patterns. The age maps to a score
// through a step function that decays much faster under emergency mode.
// When no date is recoverable the score is a documented neutral default.
package fresh

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Neutral scores assigned when no publish date can be recovered.
const (
	NeutralStandard  = 0.5
	NeutralEmergency = 0.3
)

// metadataDateFields are the structured metadata keys consulted, in order.
var metadataDateFields = []string{
	"article:published_time",
	"og:updated_time",
	"datePublished",
	"dateModified",
	"date",
}

// Freshness is the evaluation for one result.
type Freshness struct {
	Score       float64    `json:"freshness_score"`
	Label       string     `json:"freshness_label"`
	AgeHours    float64    `json:"age_hours,omitempty"`
	PublishedAt *time.Time `json:"publish_date,omitempty"`
	DateFound   bool       `json:"date_found"`
}

// Scorer evaluates content freshness. The clock is injectable for tests;
// a zero Scorer uses time.Now.
type Scorer struct {
	Now func() time.Time
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Score evaluates freshness for a result. publishedAt may be nil; metatags
// may be nil; text is the title and snippet joined, scanned for date
// expressions as a fallback.
func (s *Scorer) Score(publishedAt *time.Time, metatags map[string]string, text string, emergency bool) Freshness {
	now := s.now()

	date := publishedAt
	if date == nil {
		date = dateFromMetadata(metatags)
	}
	if date == nil {
		date = dateFromText(text, now)
	}

	if date == nil {
		score := NeutralStandard
		if emergency {
			score = NeutralEmergency
		}
		return Freshness{Score: score, Label: "unknown"}
	}

	ageHours := now.Sub(*date).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	return Freshness{
		Score:       decayScore(ageHours, emergency),
		Label:       Label(ageHours, emergency),
		AgeHours:    ageHours,
		PublishedAt: date,
		DateFound:   true,
	}
}

// decayScore maps content age to a recency score. Emergency mode gives full
// credit only within the first hour and near-zero past a week; standard mode
// decays gently out to three months.
func decayScore(ageHours float64, emergency bool) float64 {
	if emergency {
		switch {
		case ageHours <= 1:
			return 1.0
		case ageHours <= 6:
			return 0.9
		case ageHours <= 24:
			return 0.7
		case ageHours <= 72:
			return 0.4
		case ageHours <= 168:
			return 0.2
		default:
			return 0.1
		}
	}
	switch {
	case ageHours <= 24:
		return 1.0
	case ageHours <= 168:
		return 0.8
	case ageHours <= 720:
		return 0.6
	case ageHours <= 2160:
		return 0.4
	default:
		return 0.3
	}
}

// Label returns the human-readable recency label for an age.
func Label(ageHours float64, emergency bool) string {
	switch {
	case ageHours <= 1:
		return "just now"
	case ageHours <= 6:
		return "very recent"
	case ageHours <= 24:
		return "today"
	case ageHours <= 48:
		return "yesterday"
	case ageHours <= 168:
		return "this week"
	case ageHours <= 720:
		return "this month"
	case emergency:
		return "outdated"
	default:
		return "older"
	}
}

// dateFromMetadata tries the known metadata date fields in order.
func dateFromMetadata(metatags map[string]string) *time.Time {
	if len(metatags) == 0 {
		return nil
	}
	for _, field := range metadataDateFields {
		raw, ok := metatags[field]
		if !ok || raw == "" {
			continue
		}
		if t := parseISO(raw); t != nil {
			return t
		}
	}
	return nil
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISO(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

var (
	relativeRe = regexp.MustCompile(`(\d+)\s+(minute|hour|day|week)s?\s+ago`)
	monthDayRe = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2}),?\s+(\d{4})`)
	isoDateRe  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// dateFromText scans free text for relative-time expressions first, then
// "Month Day, Year", then ISO dates.
func dateFromText(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)

	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err == nil {
			var d time.Duration
			switch m[2] {
			case "minute":
				d = time.Duration(amount) * time.Minute
			case "hour":
				d = time.Duration(amount) * time.Hour
			case "day":
				d = time.Duration(amount) * 24 * time.Hour
			case "week":
				d = time.Duration(amount) * 7 * 24 * time.Hour
			}
			t := now.Add(-d)
			return &t
		}
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		month, ok := monthNumbers[strings.ToLower(m[1])[:3]]
		if ok {
			day, dayErr := strconv.Atoi(m[2])
			year, yearErr := strconv.Atoi(m[3])
			if dayErr == nil && yearErr == nil && day >= 1 && day <= 31 {
				t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
				return &t
			}
		}
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}

	return nil
}
