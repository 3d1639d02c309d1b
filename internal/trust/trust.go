// Package trust scores how credible a result's source is.
//
// Two independent signals combine: the source domain's trust tier (matched
// against configured domain lists) and misinformation-pattern detection over
// the title and snippet. The tier sets a base score; patterns subtract a
// weighted penalty, floored at 0.1.
package trust

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Tier classifies a source domain, ordered from most to least credible.
type Tier string

const (
	TierOfficial    Tier = "official"
	TierVerified    Tier = "verified"
	TierSemiTrusted Tier = "semi-trusted"
	TierUnknown     Tier = "unknown"
)

// BaseScore returns the starting trust value for the tier.
func (t Tier) BaseScore() float64 {
	switch t {
	case TierOfficial:
		return 0.95
	case TierVerified:
		return 0.80
	case TierSemiTrusted:
		return 0.60
	default:
		return 0.40
	}
}

// Badge labels for presentation, derived from the final score.
const (
	BadgeVerified   = "verified"
	BadgeUnverified = "unverified"
	BadgeSuspicious = "suspicious"
)

// Tiers holds the ordered domain pattern lists. A domain is checked against
// Official first, then Verified, then SemiTrusted; first substring match
// wins. No match means TierUnknown.
type Tiers struct {
	Official    []string `yaml:"official" json:"official"`
	Verified    []string `yaml:"verified" json:"verified"`
	SemiTrusted []string `yaml:"semi_trusted" json:"semi_trusted"`
}

// DefaultTiers returns the built-in source lists.
func DefaultTiers() Tiers {
	return Tiers{
		Official: []string{
			".gov", ".edu", ".mil",
			"usgs.gov", "weather.gov", "noaa.gov", "fema.gov", "cdc.gov",
		},
		Verified: []string{
			"reuters.com", "apnews.com",
			"bbc.com", "bbc.co.uk",
			"nytimes.com", "washingtonpost.com", "theguardian.com",
			"cnn.com", "npr.org", "pbs.org",
			"who.int", "redcross.org", "un.org",
		},
		SemiTrusted: []string{
			"nbcnews.com", "cbsnews.com", "foxnews.com",
			"usatoday.com", "wsj.com", "bloomberg.com", "forbes.com",
			"time.com", "newsweek.com", "politico.com",
			"aljazeera.com", "france24.com", "dw.com",
			"scientificamerican.com", "nature.com", "wired.com",
			"latimes.com", "chicagotribune.com", "seattletimes.com",
			"snopes.com", "factcheck.org", "politifact.com",
			"mayoclinic.org", "webmd.com", "healthline.com",
		},
	}
}

// Assessment is the full trust evaluation for one result.
type Assessment struct {
	Score        float64  `json:"trust_score"`
	Tier         Tier     `json:"tier"`
	Badge        string   `json:"badge"`
	RedFlags     []string `json:"red_flags"`
	IsSuspicious bool     `json:"is_suspicious"`

	TitleMatches   int     `json:"title_matches"`
	SnippetMatches int     `json:"snippet_matches"`
	TotalPenalty   float64 `json:"total_penalty"`
}

// Penalty schedule: titles carry more weight than snippets, and each match
// past the qualifying threshold adds a fixed increment.
const (
	titleWeight   = 0.6
	snippetWeight = 0.4

	titlePenaltyBase   = 0.15
	titleMinMatches    = 1
	snippetPenaltyBase = 0.10
	snippetMinMatches  = 2
	perMatchIncrement  = 0.05

	stuffingPenalty   = 0.5
	stuffingRatio     = 0.20
	stuffingMinLength = 3

	suspiciousThreshold = 0.3
	scoreFloor          = 0.1

	badgeVerifiedMin   = 0.8
	badgeUnverifiedMin = 0.5
)

// Misinformation pattern families, matched against lowercased text.
var contentPatterns = []*regexp.Regexp{
	// sensationalist
	regexp.MustCompile(`\b(shocking|unbelievable|you won't believe|secret|they don't want you to know)\b`),
	regexp.MustCompile(`\b(miracle|cure-all|100% guaranteed)\b`),
	// unverified claims
	regexp.MustCompile(`\b(sources say|reportedly|allegedly|rumor|unconfirmed)\b`),
	regexp.MustCompile(`\b(viral|spreading|everyone is saying)\b`),
	// fear mongering
	regexp.MustCompile(`\b(doom|catastrophe|end of|apocalypse|collapse)\b`),
	regexp.MustCompile(`\b(panic|terrifying|horrifying)\b`),
}

// Title-only patterns, matched against the raw (case-preserved) title.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z\s!]{10,}`), // all-caps run
	regexp.MustCompile(`!{2,}`),          // repeated exclamation marks
}

// Scorer evaluates source credibility. Pure; safe for concurrent use.
type Scorer struct {
	tiers Tiers
}

// NewScorer builds a scorer over the given tier lists. Empty lists fall back
// to the defaults.
func NewScorer(tiers Tiers) *Scorer {
	if len(tiers.Official) == 0 && len(tiers.Verified) == 0 && len(tiers.SemiTrusted) == 0 {
		tiers = DefaultTiers()
	}
	return &Scorer{tiers: tiers}
}

// Domain extracts the lowercased host from a URL, without the port.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// TierOf returns the trust tier for a URL's domain.
func (s *Scorer) TierOf(rawURL string) Tier {
	domain := Domain(rawURL)
	if domain == "" {
		return TierUnknown
	}
	for _, pat := range s.tiers.Official {
		if strings.Contains(domain, pat) {
			return TierOfficial
		}
	}
	for _, pat := range s.tiers.Verified {
		if strings.Contains(domain, pat) {
			return TierVerified
		}
	}
	for _, pat := range s.tiers.SemiTrusted {
		if strings.Contains(domain, pat) {
			return TierSemiTrusted
		}
	}
	return TierUnknown
}

// Score evaluates trust for a result's title, snippet, and URL.
func (s *Scorer) Score(title, snippet, rawURL string) Assessment {
	tier := s.TierOf(rawURL)
	base := tier.BaseScore()

	var redFlags []string

	titleMatches := countPatternMatches(strings.ToLower(title))
	for _, p := range titlePatterns {
		if p.MatchString(title) {
			titleMatches++
		}
	}
	var titlePenalty float64
	if titleMatches >= titleMinMatches {
		titlePenalty = titlePenaltyBase + float64(titleMatches-titleMinMatches)*perMatchIncrement
		redFlags = append(redFlags, fmt.Sprintf("title_spam_%dx", titleMatches))
	}

	snippetMatches := countPatternMatches(strings.ToLower(snippet))
	var snippetPenalty float64
	if snippetMatches >= snippetMinMatches {
		snippetPenalty = snippetPenaltyBase + float64(snippetMatches-snippetMinMatches)*perMatchIncrement
		redFlags = append(redFlags, fmt.Sprintf("snippet_spam_%dx", snippetMatches))
	}

	totalPenalty := titlePenalty*titleWeight + snippetPenalty*snippetWeight

	if hasKeywordStuffing(title + " " + snippet) {
		totalPenalty += stuffingPenalty
		redFlags = append(redFlags, "keyword_stuffing")
	}

	score := base - totalPenalty
	if score < scoreFloor {
		score = scoreFloor
	}

	badge := BadgeSuspicious
	switch {
	case score >= badgeVerifiedMin:
		badge = BadgeVerified
	case score >= badgeUnverifiedMin:
		badge = BadgeUnverified
	}

	if redFlags == nil {
		redFlags = []string{}
	}
	return Assessment{
		Score:          round2(score),
		Tier:           tier,
		Badge:          badge,
		RedFlags:       redFlags,
		IsSuspicious:   totalPenalty >= suspiciousThreshold,
		TitleMatches:   titleMatches,
		SnippetMatches: snippetMatches,
		TotalPenalty:   round3(totalPenalty),
	}
}

func countPatternMatches(lower string) int {
	n := 0
	for _, p := range contentPatterns {
		n += len(p.FindAllString(lower, -1))
	}
	return n
}

// hasKeywordStuffing reports whether any single word longer than three
// characters exceeds 20% of the total word count.
func hasKeywordStuffing(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	total := len(words)
	if total == 0 {
		return false
	}
	counts := make(map[string]int)
	for _, w := range words {
		if len(w) <= stuffingMinLength {
			continue
		}
		counts[w]++
		if float64(counts[w])/float64(total) > stuffingRatio {
			return true
		}
	}
	return false
}

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }

func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
