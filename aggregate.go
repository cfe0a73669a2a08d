package jobagg

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// SelectionAll is the sentinel source selection meaning every registered
// adapter. A country of "all" (or empty) likewise means every country the
// selected providers support.
const SelectionAll = "all"

// DefaultCallTimeout bounds each adapter invocation so one hung provider
// cannot stall the fan-in barrier; aggregate latency stays near the slowest
// adapter, not the sum.
const DefaultCallTimeout = 15 * time.Second

// SearchReport summarizes one completed search for the optional observer.
type SearchReport struct {
	Params    JobSearchParams
	Sources   []string
	Countries []string
	Total     int
	Failed    []string // "source/country" labels of adapters that errored
	FromCache bool
	Duration  time.Duration
}

// Orchestrator fans a search out to the registered source adapters, merges
// the results through dedup and age filtering, and brackets the whole call
// with the result cache. Construct one per application composition root;
// instances are safe for concurrent use.
type Orchestrator struct {
	cache       *SearchCache
	sources     []SourceSpec
	callTimeout time.Duration
	observer    func(SearchReport)
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCallTimeout overrides the per-adapter-call timeout.
func WithCallTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithObserver installs a fire-and-forget callback invoked after every
// completed search. It runs on its own goroutine; the search result never
// depends on its success or latency.
func WithObserver(fn func(SearchReport)) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = fn }
}

// NewOrchestrator builds an orchestrator over the given cache and adapter
// registry. cache may be nil to disable caching (tests, one-shot tools).
func NewOrchestrator(cache *SearchCache, sources []SourceSpec, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cache:       cache,
		sources:     append([]SourceSpec(nil), sources...),
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// searchTask is one (adapter, country) pairing of a fan-out.
type searchTask struct {
	spec    SourceSpec
	country string // "" for remote-only providers
}

// fetchResult carries one adapter's outcome across the fan-in channel.
type fetchResult struct {
	label string
	jobs  []JobListing
	err   error
}

// SearchJobs answers one aggregated search. selection is either empty/"all"
// (every registered adapter) or explicit adapter names.
//
// The call is best-effort and never fails: a failing adapter contributes
// zero listings, and only every adapter failing yields an empty result. The
// caller cannot distinguish "no matches" from "all sources down" here;
// per-source details are left to logs and the observer.
func (o *Orchestrator) SearchJobs(ctx context.Context, params JobSearchParams, selection ...string) []JobListing {
	metrics.SearchRequests.Add(1)
	start := time.Now()

	specs, names := o.resolveSources(selection)
	countries := resolveCountries(params.Country)

	if o.cache != nil {
		if jobs, ok := o.cache.Get(ctx, params, names); ok {
			o.report(SearchReport{
				Params: params, Sources: names, Countries: countries,
				Total: len(jobs), FromCache: true, Duration: time.Since(start),
			})
			return jobs
		}
	}

	tasks := buildTasks(specs, countries)
	ch := make(chan fetchResult, len(tasks))
	for _, task := range tasks {
		go o.runTask(ctx, task, params, ch)
	}

	var merged []JobListing
	var failed []string
	for range tasks {
		r := <-ch
		if r.err != nil {
			failed = append(failed, r.label)
			continue
		}
		merged = append(merged, r.jobs...)
	}

	result := Deduplicate(merged)
	result = filterByAge(result, params.MaxAgeDays)
	sortByPostedDesc(result)

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}

	if o.cache != nil {
		o.cache.Set(ctx, params, names, result)
	}
	slog.Debug("aggregate: search complete",
		slog.String("keyword", params.Keyword),
		slog.Int("tasks", len(tasks)),
		slog.Int("failed", len(failed)),
		slog.Int("jobs", len(result)),
	)
	o.report(SearchReport{
		Params: params, Sources: names, Countries: countries,
		Total: len(result), Failed: failed, Duration: time.Since(start),
	})
	return result
}

// SearchJobsByCountry is a convenience wrapper: "remote" (or empty/"all")
// selects the remote-only providers, a country code selects the providers
// covering that country plus the remote-only ones.
func (o *Orchestrator) SearchJobsByCountry(ctx context.Context, keyword, country string, limit int) []JobListing {
	country = strings.ToLower(strings.TrimSpace(country))
	params := JobSearchParams{Keyword: keyword, Country: country, Limit: limit}

	if country == "" || country == "remote" || country == SelectionAll {
		params.Country = SelectionAll
		return o.SearchJobs(ctx, params, SelectionAll)
	}

	var names []string
	for _, spec := range o.sources {
		if spec.RemoteOnly || containsString(spec.Countries, country) {
			names = append(names, string(spec.Name))
		}
	}
	return o.SearchJobs(ctx, params, names...)
}

// runTask invokes one adapter for one country, honoring its rate limiter and
// the per-call timeout. Errors are logged and swallowed into the result.
func (o *Orchestrator) runTask(ctx context.Context, task searchTask, params JobSearchParams, ch chan<- fetchResult) {
	label := string(task.spec.Name)
	if task.country != "" {
		label += "/" + task.country
		params.Country = task.country
	}

	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	if task.spec.Limiter != nil {
		if err := task.spec.Limiter.Wait(cctx); err != nil {
			metrics.AdapterErrors.Add(1)
			slog.Warn("aggregate: rate limit wait failed", slog.String("source", label), slog.Any("error", err))
			ch <- fetchResult{label: label, err: err}
			return
		}
	}

	metrics.AdapterCalls.Add(1)
	jobs, err := task.spec.Search(cctx, params)
	if err != nil {
		metrics.AdapterErrors.Add(1)
		slog.Warn("aggregate: source failed", slog.String("source", label), slog.Any("error", err))
		ch <- fetchResult{label: label, err: err}
		return
	}
	slog.Debug("aggregate: source returned", slog.String("source", label), slog.Int("jobs", len(jobs)))
	ch <- fetchResult{label: label, jobs: jobs}
}

// resolveSources maps a selection to the registered specs it covers and the
// effective name list used for cache keying.
func (o *Orchestrator) resolveSources(selection []string) ([]SourceSpec, []string) {
	all := len(selection) == 0
	requested := make(map[string]bool, len(selection))
	for _, s := range selection {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == SelectionAll {
			all = true
		}
		if s != "" {
			requested[s] = true
		}
	}

	var specs []SourceSpec
	var names []string
	for _, spec := range o.sources {
		if all || requested[string(spec.Name)] {
			specs = append(specs, spec)
			names = append(names, string(spec.Name))
		}
	}
	return specs, names
}

// resolveCountries splits a possibly comma-joined country value. Empty and
// "all" both mean every supported country.
func resolveCountries(country string) []string {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" || country == SelectionAll {
		return []string{SelectionAll}
	}
	var out []string
	for _, c := range strings.Split(country, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{SelectionAll}
	}
	return out
}

// buildTasks expands (specs × countries) into the concrete fan-out: remote
// providers once, country providers once per applicable country.
func buildTasks(specs []SourceSpec, countries []string) []searchTask {
	wantAll := len(countries) == 1 && countries[0] == SelectionAll

	var tasks []searchTask
	for _, spec := range specs {
		if spec.RemoteOnly || len(spec.Countries) == 0 {
			tasks = append(tasks, searchTask{spec: spec})
			continue
		}
		for _, c := range spec.Countries {
			if wantAll || containsString(countries, c) {
				tasks = append(tasks, searchTask{spec: spec, country: c})
			}
		}
	}
	return tasks
}

// filterByAge drops listings older than maxAgeDays. Unknown posting dates
// always survive: age filtering is best effort, never exclusionary on
// missing data.
func filterByAge(listings []JobListing, maxAgeDays int) []JobListing {
	if maxAgeDays <= 0 {
		return listings
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	out := listings[:0:0]
	for _, j := range listings {
		if j.PostedAt == nil || !j.PostedAt.Before(cutoff) {
			out = append(out, j)
		}
	}
	return out
}

// sortByPostedDesc sorts newest first; listings with an unknown date sort as
// oldest. Stable so merge order breaks exact-timestamp ties.
func sortByPostedDesc(listings []JobListing) {
	sort.SliceStable(listings, func(a, b int) bool {
		pa, pb := listings[a].PostedAt, listings[b].PostedAt
		switch {
		case pa == nil:
			return false
		case pb == nil:
			return true
		default:
			return pa.After(*pb)
		}
	})
}

func (o *Orchestrator) report(r SearchReport) {
	if o.observer == nil {
		return
	}
	go o.observer(r)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
