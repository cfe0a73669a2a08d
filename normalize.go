package jobagg

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/strutil"
	"github.com/araddon/dateparse"
)

// maxDescriptionRunes caps normalized descriptions. Provider pages routinely
// carry multi-page HTML bodies; everything past this adds no scoring signal.
const maxDescriptionRunes = 2000

// BuildListingID builds the stable listing id for a provider+externalId pair.
func BuildListingID(source Source, externalID string) string {
	return fmt.Sprintf("%s-%s", source, externalID)
}

// FormatSalary renders a provider min/max salary pair as display text.
// Zero for both means the provider published no salary.
func FormatSalary(min, max int, currency string) string {
	if currency == "" {
		currency = "$"
	}
	if min == 0 && max == 0 {
		return "not specified"
	}
	if min == max {
		return fmt.Sprintf("%s%d", currency, max)
	}
	return fmt.Sprintf("%s%d - %s%d", currency, min, currency, max)
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML strips HTML tags, decodes entities and trims whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(html.UnescapeString(s))
}

// NormalizeDescription turns a raw provider description (usually HTML) into
// the canonical plain-text form stored on JobListing: stripped, whitespace
// collapsed, capped at a word boundary.
func NormalizeDescription(raw string) string {
	text := whitespaceRe.ReplaceAllString(StripHTML(raw), " ")
	return strutil.TruncateAtWord(strings.TrimSpace(text), maxDescriptionRunes)
}

// ParsePostedAt parses a provider date string in whatever format the board
// emits (RFC3339, RFC1123, "2006-01-02", US-style, ...). Returns nil when the
// value is empty or unparseable: unknown age, not an error.
func ParsePostedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Job-type vocabulary. Portuguese terms cover the BR/PT country boards.
var (
	remotePatterns = []string{"remote", "remoto", "home office", "work from home", "anywhere", "worldwide"}
	hybridPatterns = []string{"hybrid", "híbrido", "hibrido"}
	onsitePatterns = []string{"on-site", "onsite", "on site", "presencial", "in office", "in-office"}
)

// DetectJobType classifies free text as "Remote", "Hybrid" or "On-site".
// Pure string matching, no IO. Returns "" when nothing matches.
func DetectJobType(text string) string {
	t := strings.ToLower(text)
	for _, p := range hybridPatterns {
		if strings.Contains(t, p) {
			return "Hybrid"
		}
	}
	for _, p := range remotePatterns {
		if strings.Contains(t, p) {
			return "Remote"
		}
	}
	for _, p := range onsitePatterns {
		if strings.Contains(t, p) {
			return "On-site"
		}
	}
	return ""
}

// Experience-level vocabulary, most specific first: "senior java / junior
// welcome" style postings should land on the stronger signal.
var experiencePatterns = []struct {
	level    string
	patterns []string
}{
	{"lead", []string{"lead", "principal", "staff engineer", "head of"}},
	{"senior", []string{"senior", "sênior", "sr.", "sr "}},
	{"junior", []string{"junior", "júnior", "jr.", "jr "}},
	{"mid", []string{"pleno", "mid-level", "mid level", "intermediate"}},
	{"internship", []string{"intern", "estágio", "estagio", "trainee"}},
}

// DetectExperienceLevel classifies free text into an experience level tag.
// Returns "" when nothing matches.
func DetectExperienceLevel(text string) string {
	t := strings.ToLower(text)
	for _, e := range experiencePatterns {
		for _, p := range e.patterns {
			if strings.Contains(t, p) {
				return e.level
			}
		}
	}
	return ""
}
