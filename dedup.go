package jobagg

import "strings"

// DefaultFuzzyThreshold is the trigram-similarity cutoff for the fuzzy
// dedup pass.
const DefaultFuzzyThreshold = 0.85

// maxFuzzyCandidates bounds the O(n²) fuzzy pass. Listings beyond the cap
// keep their exact-pass result and skip fuzzy comparison entirely.
const maxFuzzyCandidates = 500

const (
	canonTitleLen   = 50
	canonCompanyLen = 30
)

// CanonicalKey returns the exact-match dedup key for a listing: lowercased
// title and company with every non-alphanumeric character stripped, truncated
// to 50/30 chars and joined as "<title>-<company>". The same posting on two
// boards survives punctuation and casing differences; two genuinely distinct
// openings with identical title+company collapse too, an intentional
// heuristic trade-off.
func CanonicalKey(title, company string) string {
	return canonPart(title, canonTitleLen) + "-" + canonPart(company, canonCompanyLen)
}

func canonPart(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= maxLen {
				break
			}
		}
	}
	return b.String()
}

// CompletenessScore rates how much useful information a listing carries.
// Used to pick the representative record inside a duplicate cluster: a
// strictly more complete listing always wins, first-seen wins ties.
func CompletenessScore(j JobListing) int {
	score := 0
	if strings.TrimSpace(j.Title) != "" {
		score += 2
	}
	if strings.TrimSpace(j.Company) != "" {
		score += 2
	}
	if j.URL != "" {
		score++
	}
	switch dl := len(j.Description); {
	case dl > 500:
		score += 3
	case dl > 200:
		score += 2
	case dl > 50:
		score++
	}
	if j.CompanyLogo != "" {
		score++
	}
	if j.Salary != "" {
		score += 2
	}
	if j.Location != "" {
		score++
	}
	if j.JobType != "" {
		score++
	}
	if j.PostedAt != nil {
		score++
	}
	if len(j.Tags) > 0 {
		score++
	}
	if reliableSources[j.Source] {
		score += 2
	}
	return score
}

// Deduplicate collapses listings sharing a canonical key, keeping the most
// complete record per cluster. Cluster order follows the first occurrence of
// each key; within a cluster only a strictly higher completeness score
// replaces the current representative.
func Deduplicate(listings []JobListing) []JobListing {
	if len(listings) == 0 {
		return nil
	}
	index := make(map[string]int, len(listings))
	out := make([]JobListing, 0, len(listings))
	for _, j := range listings {
		key := CanonicalKey(j.Title, j.Company)
		if i, ok := index[key]; ok {
			if CompletenessScore(j) > CompletenessScore(out[i]) {
				out[i] = j
			}
			continue
		}
		index[key] = len(out)
		out = append(out, j)
	}
	return out
}

// DeduplicateAdvanced runs the exact pass, then merges surviving listings
// whose canonical keys are fuzzy-similar (trigram Jaccard >= threshold).
// Pass threshold <= 0 for DefaultFuzzyThreshold.
//
// The fuzzy pass is O(n²) over survivors and meant for moderate result sets
// (hundreds); only the first maxFuzzyCandidates survivors are compared.
func DeduplicateAdvanced(listings []JobListing, threshold float64) []JobListing {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	exact := Deduplicate(listings)
	if len(exact) < 2 {
		return exact
	}

	n := len(exact)
	if n > maxFuzzyCandidates {
		n = maxFuzzyCandidates
	}

	shingles := make([]map[string]struct{}, n)
	for i := 0; i < n; i++ {
		shingles[i] = trigrams(CanonicalKey(exact[i].Title, exact[i].Company))
	}

	removed := make([]bool, len(exact))
	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}
		for k := i + 1; k < n; k++ {
			if removed[k] {
				continue
			}
			if jaccard(shingles[i], shingles[k]) >= threshold {
				// Merge k into i, keeping the more complete record in place.
				if CompletenessScore(exact[k]) > CompletenessScore(exact[i]) {
					exact[i] = exact[k]
					shingles[i] = shingles[k]
				}
				removed[k] = true
			}
		}
	}

	out := exact[:0:0]
	for i, j := range exact {
		if !removed[i] {
			out = append(out, j)
		}
	}
	return out
}

// DeduplicateByID collapses exact id collisions, keeping the first
// occurrence. Cheaper than the canonical-key pass; used by cache merges where
// the same adapter may have been queried twice.
func DeduplicateByID(listings []JobListing) []JobListing {
	if len(listings) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(listings))
	out := make([]JobListing, 0, len(listings))
	for _, j := range listings {
		if _, ok := seen[j.ID]; ok {
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out
}

// trigrams returns the 3-char shingle set of s. Strings shorter than 3 chars
// shingle to themselves so tiny keys still compare.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	if len(s) < 3 {
		set[s] = struct{}{}
		return set
	}
	for i := 0; i+3 <= len(s); i++ {
		set[s[i:i+3]] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
