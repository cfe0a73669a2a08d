package jobagg

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// smartMaxQueries bounds how many generated queries actually fan out.
const smartMaxQueries = 3

// genericRoleQueries pad the generated query list when a resume yields few
// keywords.
var genericRoleQueries = []string{"full-stack developer", "software engineer"}

// ErrEmptyResume is returned when smart search is given no usable resume.
// The core does not guess defaults for a missing resume.
var ErrEmptyResume = errors.New("resume has no skills, experience or certifications")

// SmartSearchOptions configures a resume-driven search.
type SmartSearchOptions struct {
	// Limit is the total result budget, split across the issued queries.
	// <= 0 uses the default search limit.
	Limit      int
	MaxAgeDays int
	// Sources restricts the fan-out; empty means all registered adapters.
	Sources []string
	Country string
}

// SmartSearchResult is the output of SmartJobSearch.
type SmartSearchResult struct {
	Jobs     []JobListing `json:"jobs"`
	Keywords []string     `json:"keywords"`
}

// JobRecommendations layers per-listing match percentages on top of a smart
// search, for presentation.
type JobRecommendations struct {
	Jobs             []JobListing   `json:"jobs"`
	Keywords         []string       `json:"keywords"`
	MatchPercentages map[string]int `json:"matchPercentages"`
}

// ExtractKeywordsFromResume derives search keywords from a structured
// resume: skill names ordered by level descending, role keywords detected in
// experience titles, and technology keywords extracted from certification
// names. The result is deduplicated, order preserved.
func ExtractKeywordsFromResume(resume *ResumeData) []string {
	if resume == nil {
		return nil
	}

	skills := append([]ResumeSkill(nil), resume.Skills...)
	sort.SliceStable(skills, func(a, b int) bool { return skills[a].Level > skills[b].Level })

	seen := make(map[string]struct{})
	var out []string
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, s := range skills {
		add(s.Name)
	}
	for _, exp := range resume.Experience {
		title := strings.ToLower(exp.Title)
		for _, role := range roleVocab {
			if strings.Contains(title, role) {
				add(role)
			}
		}
	}
	for _, cert := range resume.Certifications {
		for _, kw := range DefaultKeywordExtractor.TechKeywords(cert.Name) {
			add(kw)
		}
	}
	return out
}

// GenerateSearchQueries turns extracted keywords into search queries: the
// top 5 keywords individually, one combination of the top two, and up to two
// generic role queries. Deduplicated, order preserved.
func GenerateSearchQueries(keywords []string) []string {
	seen := make(map[string]struct{})
	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	top := keywords
	if len(top) > 5 {
		top = top[:5]
	}
	for _, kw := range top {
		add(kw)
	}
	if len(keywords) >= 2 {
		add(keywords[0] + " " + keywords[1])
	}
	for _, q := range genericRoleQueries {
		add(q)
	}
	return queries
}

// SmartJobSearch derives queries from a resume, issues the first three as
// concurrent aggregated searches, and scores the merged result against the
// same resume. Fails only on unusable resume input; source failures degrade
// exactly as in SearchJobs.
func (o *Orchestrator) SmartJobSearch(ctx context.Context, resume *ResumeData, opts SmartSearchOptions) (*SmartSearchResult, error) {
	if resume == nil || (len(resume.Skills) == 0 && len(resume.Experience) == 0 && len(resume.Certifications) == 0) {
		return nil, ErrEmptyResume
	}
	metrics.SmartSearches.Add(1)

	keywords := ExtractKeywordsFromResume(resume)
	queries := GenerateSearchQueries(keywords)
	if len(queries) > smartMaxQueries {
		queries = queries[:smartMaxQueries]
	}

	totalLimit := opts.Limit
	if totalLimit <= 0 {
		totalLimit = defaultSearchLimit
	}
	perQuery := (totalLimit + smartMaxQueries - 1) / smartMaxQueries

	results := make([][]JobListing, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			params := JobSearchParams{
				Keyword:    q,
				Country:    opts.Country,
				Limit:      perQuery,
				MaxAgeDays: opts.MaxAgeDays,
			}
			results[i] = o.SearchJobs(gctx, params, opts.Sources...)
			return nil
		})
	}
	_ = g.Wait() // queries never return errors; failures degrade per source

	var merged []JobListing
	for _, r := range results {
		merged = append(merged, r...)
	}
	merged = filterByAge(merged, opts.MaxAgeDays)
	merged = Deduplicate(merged)
	merged = ScoreJobs(merged, resume)
	if len(merged) > totalLimit {
		merged = merged[:totalLimit]
	}

	slog.Debug("smartsearch: complete",
		slog.Int("keywords", len(keywords)),
		slog.Int("queries", len(queries)),
		slog.Int("jobs", len(merged)),
	)
	return &SmartSearchResult{Jobs: merged, Keywords: keywords}, nil
}

// GetJobRecommendations runs a smart search and annotates each listing with
// its resume match percentage, keyed by listing id.
func (o *Orchestrator) GetJobRecommendations(ctx context.Context, resume *ResumeData, opts SmartSearchOptions) (*JobRecommendations, error) {
	result, err := o.SmartJobSearch(ctx, resume, opts)
	if err != nil {
		return nil, err
	}
	pcts := make(map[string]int, len(result.Jobs))
	for _, j := range result.Jobs {
		pcts[j.ID] = CalculateMatchPercentage(j, resume)
	}
	return &JobRecommendations{
		Jobs:             result.Jobs,
		Keywords:         result.Keywords,
		MatchPercentages: pcts,
	}, nil
}
