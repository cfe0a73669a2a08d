package jobagg

import (
	"regexp"
	"strings"
)

// KeywordExtractor extracts technology keywords from free text. The default
// is a fixed regex vocabulary; swap it for a smarter implementation without
// touching the scoring or smart-search code.
type KeywordExtractor interface {
	TechKeywords(text string) []string
}

// DefaultKeywordExtractor is used by the scoring engine and smart search.
var DefaultKeywordExtractor KeywordExtractor = RegexKeywordExtractor{}

// techVocabRe is the fixed technology vocabulary. Longer alternatives come
// first so "javascript" is not claimed by "java".
var techVocabRe = regexp.MustCompile(`(?i)\b(javascript|typescript|postgresql|postgres|kubernetes|mongodb|terraform|python|angular|golang|docker|azure|react|redis|linux|node(?:\.js)?|java|vue|aws|gcp|sql|git|go)\b`)

// RegexKeywordExtractor matches text against the fixed vocabulary.
type RegexKeywordExtractor struct{}

// TechKeywords returns the lowercased vocabulary keywords found in text,
// deduplicated, in order of first appearance. "golang" and "node.js" fold
// into their short forms.
func (RegexKeywordExtractor) TechKeywords(text string) []string {
	matches := techVocabRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		kw := strings.ToLower(m)
		switch kw {
		case "golang":
			kw = "go"
		case "node.js":
			kw = "node"
		case "postgresql":
			kw = "postgres"
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// roleVocab is the fixed role vocabulary detected in experience titles when
// deriving search keywords from a resume.
var roleVocab = []string{
	"developer", "engineer", "backend", "frontend", "fullstack", "full-stack",
	"devops", "mobile", "data", "qa", "architect",
}
