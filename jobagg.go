// Package jobagg aggregates job listings from many independent external
// sources into one ranked, deduplicated result set.
//
// The package fans out a single search to N provider adapters in parallel,
// collapses near-duplicate postings that appear on multiple boards, and
// orders the result by a composite relevance score, optionally personalized
// against a candidate's resume.
//
// It is a library: it never fetches pages itself and never persists anything.
// Provider adapters are injected as SourceSpec values; the thin HTTP layer
// that decodes request parameters into JobSearchParams lives elsewhere.
package jobagg

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Source identifies one job provider.
type Source string

// Known providers. The three general aggregator APIs (RemoteOK, Adzuna,
// Jooble) form the "reliable" tier used by dedup tie-breaking and scoring.
const (
	SourceRemoteOK       Source = "remoteok"
	SourceAdzuna         Source = "adzuna"
	SourceJooble         Source = "jooble"
	SourceLinkedIn       Source = "linkedin"
	SourceRemotive       Source = "remotive"
	SourceWeWorkRemotely Source = "weworkremotely"
	SourceGeekhunter     Source = "geekhunter"
	SourceVagas          Source = "vagas"
	SourceDGES           Source = "dges"
	SourceEduPortugal    Source = "eduportugal"
)

// JobListing is a normalized job posting.
//
// A listing is immutable once constructed: every transformation in this
// package produces new values, and ScoreJobs attaches RelevanceScore to a
// copy without touching the input.
type JobListing struct {
	// ID is globally unique per provider+externalId pair and stable across
	// calls ("<source>-<externalId>", see BuildListingID).
	ID          string   `json:"id"`
	Source      Source   `json:"source"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	CompanyLogo string   `json:"companyLogo,omitempty"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Location    string   `json:"location,omitempty"`
	JobType     string   `json:"jobType,omitempty"`
	Salary      string   `json:"salary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// PostedAt is nil when the provider exposes no posting date. Unknown
	// age is never a reason to exclude a listing from age filtering.
	PostedAt *time.Time `json:"postedAt,omitempty"`
	// Country is a 2-letter code or "remote".
	Country string `json:"country,omitempty"`
	// RelevanceScore is set only by the scoring engine; zero before scoring.
	RelevanceScore float64 `json:"relevanceScore,omitempty"`
}

// JobSearchParams describes one aggregated search request.
type JobSearchParams struct {
	Keyword  string `json:"keyword,omitempty"`
	Location string `json:"location,omitempty"`
	// Country may be a comma-joined multi-value string ("br,pt") or "all".
	Country string `json:"country,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	// MaxAgeDays limits listing age; 0 means unlimited. Listings with an
	// unknown posting date always survive the filter.
	MaxAgeDays int `json:"maxAgeDays,omitempty"`
	Page       int `json:"page,omitempty"`
	PageSize   int `json:"pageSize,omitempty"`
}

// ResumeSkill is one skill from a structured resume. Level runs 1..5.
type ResumeSkill struct {
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Category string `json:"category,omitempty"`
}

// ResumeExperience is one work-experience entry from a structured resume.
type ResumeExperience struct {
	Title            string   `json:"title"`
	Company          string   `json:"company,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// ResumeCertification is one certification entry from a structured resume.
type ResumeCertification struct {
	Name string `json:"name"`
}

// ResumeData is the read-only scoring and query-generation input.
// The package never mutates it.
type ResumeData struct {
	Skills         []ResumeSkill         `json:"skills,omitempty"`
	Experience     []ResumeExperience    `json:"experience,omitempty"`
	Certifications []ResumeCertification `json:"certifications,omitempty"`
}

// SearchFunc is the source adapter contract: one provider-specific function
// translating an external board's response into normalized listings.
//
// Implementations must return (nil, nil) or an empty slice on zero results;
// errors are reserved for transport and parse failures, so the orchestrator's
// partial-failure handling stays meaningful. Each adapter carries its own
// network timeout; the orchestrator additionally bounds every call.
type SearchFunc func(ctx context.Context, params JobSearchParams) ([]JobListing, error)

// SourceSpec registers one adapter with the orchestrator.
type SourceSpec struct {
	Name Source
	// Countries lists the 2-letter codes this provider supports. Ignored
	// when RemoteOnly is set.
	Countries []string
	// RemoteOnly providers are invoked once per search regardless of the
	// selected countries; the others are invoked once per selected country.
	RemoteOnly bool
	// Limiter, when non-nil, throttles calls to this provider
	// (quota-limited country APIs). The orchestrator waits on it before
	// each invocation.
	Limiter *rate.Limiter
	Search  SearchFunc
}
