package jobagg

import (
	"sort"
	"strings"
	"time"
)

// Source trust tiers. Reliable sources are the general aggregator APIs;
// moderate sources are curated boards with thinner records.
var (
	reliableSources = map[Source]bool{
		SourceRemoteOK: true,
		SourceAdzuna:   true,
		SourceJooble:   true,
	}
	moderateSources = map[Source]bool{
		SourceLinkedIn:       true,
		SourceRemotive:       true,
		SourceWeWorkRemotely: true,
	}
)

// Match-percentage buckets used by CategorizeJobsByMatch.
const (
	MatchExcellent = "excellent" // >= 70%
	MatchGood      = "good"      // >= 50%
	MatchFair      = "fair"      // >= 30%
	MatchLow       = "low"
)

// CalculateBaseScore computes the resume-independent quality score of a
// listing: source trust + content richness + freshness. Unknown posting age
// is neutral, never a penalty.
func CalculateBaseScore(j JobListing) float64 {
	var score float64

	switch {
	case reliableSources[j.Source]:
		score += 5
	case moderateSources[j.Source]:
		score += 3
	default:
		score++
	}

	switch dl := len(j.Description); {
	case dl > 200:
		score += 3
	case dl > 100:
		score += 2
	case dl > 0:
		score++
	}

	if j.Salary != "" {
		score += 2
	}
	if j.CompanyLogo != "" {
		score++
	}
	if j.Location != "" {
		score++
	}
	if len(j.Tags) > 0 {
		score++
	}
	if j.PostedAt != nil {
		score++
		switch age := time.Since(*j.PostedAt); {
		case age < 24*time.Hour:
			score += 3
		case age < 7*24*time.Hour:
			score += 2
		case age < 30*24*time.Hour:
			score++
		}
	}

	return score
}

// listingText is the lowercased haystack listings are matched against.
func listingText(j JobListing) string {
	return strings.ToLower(j.Title + " " + j.Description + " " + strings.Join(j.Tags, " "))
}

// CalculateResumeMatchScore computes the additive resume-fit component:
// skills weighted by level, a flat bonus per matched experience entry, and
// technology keywords extracted from certification names.
func CalculateResumeMatchScore(j JobListing, resume *ResumeData) float64 {
	if resume == nil {
		return 0
	}
	text := listingText(j)
	var score float64

	for _, s := range resume.Skills {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name == "" {
			continue
		}
		if strings.Contains(text, name) {
			score += 3 * float64(s.Level) / 5
		}
	}

	for _, exp := range resume.Experience {
		for _, word := range strings.Fields(strings.ToLower(exp.Title)) {
			if len(word) <= 3 {
				continue
			}
			if strings.Contains(text, word) {
				score += 5
				break // one bonus per experience entry
			}
		}
	}

	for _, cert := range resume.Certifications {
		for _, kw := range DefaultKeywordExtractor.TechKeywords(cert.Name) {
			if strings.Contains(text, kw) {
				score += 2
			}
		}
	}

	return score
}

// CalculateMatchPercentage estimates 0–100 how well a listing fits a resume:
// the fraction of resume skills present in the listing text, plus a flat
// title bonus when the listing title contains the first word of any
// experience title. Independent of the additive relevance score; used for
// bucketing and display, not sorting.
func CalculateMatchPercentage(j JobListing, resume *ResumeData) int {
	if resume == nil || len(resume.Skills) == 0 {
		return 0
	}
	text := listingText(j)

	matched := 0
	for _, s := range resume.Skills {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name != "" && strings.Contains(text, name) {
			matched++
		}
	}
	pct := matched * 100 / len(resume.Skills)

	title := strings.ToLower(j.Title)
	for _, exp := range resume.Experience {
		fields := strings.Fields(strings.ToLower(exp.Title))
		if len(fields) > 0 && strings.Contains(title, fields[0]) {
			pct += 10
			break
		}
	}

	if pct > 100 {
		pct = 100
	}
	return pct
}

// ScoreJobs returns a scored copy of listings sorted by RelevanceScore
// descending. The sort is stable: ties keep their original relative order.
// A nil resume scores base quality only.
func ScoreJobs(listings []JobListing, resume *ResumeData) []JobListing {
	scored := make([]JobListing, len(listings))
	for i, j := range listings {
		j.RelevanceScore = CalculateBaseScore(j) + CalculateResumeMatchScore(j, resume)
		scored[i] = j
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].RelevanceScore > scored[b].RelevanceScore
	})
	return scored
}

// FilterByMatchPercentage keeps listings whose match percentage against
// resume is at least minPct.
func FilterByMatchPercentage(listings []JobListing, resume *ResumeData, minPct int) []JobListing {
	var out []JobListing
	for _, j := range listings {
		if CalculateMatchPercentage(j, resume) >= minPct {
			out = append(out, j)
		}
	}
	return out
}

// GetTopRelevantJobs scores, sorts and truncates. limit <= 0 returns all.
func GetTopRelevantJobs(listings []JobListing, resume *ResumeData, limit int) []JobListing {
	scored := ScoreJobs(listings, resume)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// CategorizeJobsByMatch buckets listings by match percentage:
// excellent >= 70, good >= 50, fair >= 30, low otherwise.
func CategorizeJobsByMatch(listings []JobListing, resume *ResumeData) map[string][]JobListing {
	buckets := map[string][]JobListing{
		MatchExcellent: nil,
		MatchGood:      nil,
		MatchFair:      nil,
		MatchLow:       nil,
	}
	for _, j := range listings {
		switch pct := CalculateMatchPercentage(j, resume); {
		case pct >= 70:
			buckets[MatchExcellent] = append(buckets[MatchExcellent], j)
		case pct >= 50:
			buckets[MatchGood] = append(buckets[MatchGood], j)
		case pct >= 30:
			buckets[MatchFair] = append(buckets[MatchFair], j)
		default:
			buckets[MatchLow] = append(buckets[MatchLow], j)
		}
	}
	return buckets
}
