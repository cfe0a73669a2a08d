package jobagg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// spySource builds a registered adapter that counts its invocations and
// returns canned listings.
func spySource(name Source, jobs []JobListing, err error) (SourceSpec, *atomic.Int64) {
	calls := &atomic.Int64{}
	spec := SourceSpec{
		Name:       name,
		RemoteOnly: true,
		Search: func(ctx context.Context, params JobSearchParams) ([]JobListing, error) {
			calls.Add(1)
			return jobs, err
		},
	}
	return spec, calls
}

func listingFor(name Source, n int) JobListing {
	return JobListing{
		ID:      fmt.Sprintf("%s-%d", name, n),
		Source:  name,
		Title:   fmt.Sprintf("%s Role %d", name, n),
		Company: fmt.Sprintf("%s Co", name),
		URL:     fmt.Sprintf("https://%s.test/%d", name, n),
	}
}

func TestSearchJobsPartialFailure(t *testing.T) {
	var specs []SourceSpec
	for i, name := range []Source{"s1", "s2", "s3"} {
		spec, _ := spySource(name, []JobListing{listingFor(name, i)}, nil)
		specs = append(specs, spec)
	}
	for _, name := range []Source{"bad1", "bad2"} {
		spec, _ := spySource(name, nil, errors.New("connection refused"))
		specs = append(specs, spec)
	}

	o := NewOrchestrator(nil, specs)
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})

	require.Len(t, jobs, 3, "the three healthy sources should contribute")
	seen := map[Source]bool{}
	for _, j := range jobs {
		seen[j.Source] = true
	}
	require.Equal(t, map[Source]bool{"s1": true, "s2": true, "s3": true}, seen)
}

func TestSearchJobsAllSourcesFail(t *testing.T) {
	spec, _ := spySource("down", nil, errors.New("boom"))
	o := NewOrchestrator(nil, []SourceSpec{spec})

	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})
	require.Empty(t, jobs, "total failure yields an empty result, not a panic or error")
}

// Two identical searches inside the TTL window: the second one must be
// answered from cache with zero adapter calls and identical output.
func TestSearchJobsCacheHitSkipsFanOut(t *testing.T) {
	cache := newTestCache(t, CacheOptions{TTL: time.Minute})

	var specs []SourceSpec
	var counters []*atomic.Int64
	for i := 0; i < 3; i++ {
		name := Source(fmt.Sprintf("s%d", i))
		spec, calls := spySource(name, []JobListing{listingFor(name, i)}, nil)
		specs = append(specs, spec)
		counters = append(counters, calls)
	}

	o := NewOrchestrator(cache, specs)
	params := JobSearchParams{Keyword: "go", Limit: 10}

	first := o.SearchJobs(context.Background(), params, SelectionAll)
	for _, c := range counters {
		require.EqualValues(t, 1, c.Load())
	}

	second := o.SearchJobs(context.Background(), params, SelectionAll)
	for i, c := range counters {
		require.EqualValues(t, 1, c.Load(), "source %d called again despite cache hit", i)
	}
	require.Equal(t, first, second)
}

func TestSearchJobsSelection(t *testing.T) {
	a, aCalls := spySource("a", []JobListing{listingFor("a", 1)}, nil)
	b, bCalls := spySource("b", []JobListing{listingFor("b", 1)}, nil)

	o := NewOrchestrator(nil, []SourceSpec{a, b})
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"}, "a")

	require.Len(t, jobs, 1)
	require.EqualValues(t, 1, aCalls.Load())
	require.EqualValues(t, 0, bCalls.Load())
}

func TestSearchJobsCountryFanOut(t *testing.T) {
	var mu sync.Mutex
	countries := map[Source][]string{}
	record := func(name Source, jobs []JobListing) SourceSpec {
		return SourceSpec{
			Name: name,
			Search: func(ctx context.Context, params JobSearchParams) ([]JobListing, error) {
				mu.Lock()
				countries[name] = append(countries[name], params.Country)
				mu.Unlock()
				return jobs, nil
			},
		}
	}

	remote := record(SourceRemoteOK, []JobListing{listingFor(SourceRemoteOK, 1)})
	remote.RemoteOnly = true
	br := record(SourceGeekhunter, []JobListing{listingFor(SourceGeekhunter, 1)})
	br.Countries = []string{"br"}
	pt := record(SourceDGES, []JobListing{listingFor(SourceDGES, 1)})
	pt.Countries = []string{"pt"}

	o := NewOrchestrator(nil, []SourceSpec{remote, br, pt})

	t.Run("multi-country request", func(t *testing.T) {
		jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "dev", Country: "br,pt"})
		require.Len(t, jobs, 3)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, countries[SourceRemoteOK], 1, "remote-only source invoked exactly once")
		require.Equal(t, []string{"br"}, countries[SourceGeekhunter])
		require.Equal(t, []string{"pt"}, countries[SourceDGES])
	})

	t.Run("single country skips non-matching sources", func(t *testing.T) {
		mu.Lock()
		countries = map[Source][]string{}
		mu.Unlock()

		o.SearchJobs(context.Background(), JobSearchParams{Keyword: "dev", Country: "br"})
		mu.Lock()
		defer mu.Unlock()
		require.Empty(t, countries[SourceDGES], "pt-only source must not run for a br search")
		require.Equal(t, []string{"br"}, countries[SourceGeekhunter])
	})

	t.Run("country all expands to every supported country", func(t *testing.T) {
		mu.Lock()
		countries = map[Source][]string{}
		mu.Unlock()

		o.SearchJobs(context.Background(), JobSearchParams{Keyword: "dev", Country: "all"})
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"br"}, countries[SourceGeekhunter])
		require.Equal(t, []string{"pt"}, countries[SourceDGES])
	})
}

func TestSearchJobsAgeFilterKeepsUnknownDates(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour)
	old := time.Now().Add(-60 * 24 * time.Hour)
	spec, _ := spySource("s", []JobListing{
		{ID: "s-recent", Source: "s", Title: "Recent", Company: "A", PostedAt: &recent},
		{ID: "s-old", Source: "s", Title: "Old", Company: "B", PostedAt: &old},
		{ID: "s-undated", Source: "s", Title: "Undated", Company: "C"},
	}, nil)

	o := NewOrchestrator(nil, []SourceSpec{spec})
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go", MaxAgeDays: 7})

	ids := map[string]bool{}
	for _, j := range jobs {
		ids[j.ID] = true
	}
	require.True(t, ids["s-recent"])
	require.True(t, ids["s-undated"], "unknown posting date must never be excluded by the age filter")
	require.False(t, ids["s-old"])
}

func TestSearchJobsSortAndLimit(t *testing.T) {
	now := time.Now()
	older := now.Add(-48 * time.Hour)
	newer := now.Add(-1 * time.Hour)
	spec, _ := spySource("s", []JobListing{
		{ID: "s-undated", Source: "s", Title: "Undated", Company: "A"},
		{ID: "s-older", Source: "s", Title: "Older", Company: "B", PostedAt: &older},
		{ID: "s-newer", Source: "s", Title: "Newer", Company: "C", PostedAt: &newer},
	}, nil)

	o := NewOrchestrator(nil, []SourceSpec{spec})

	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})
	require.Equal(t, []string{"s-newer", "s-older", "s-undated"}, idsOf(jobs), "newest first, unknown dates last")

	jobs = o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go", Limit: 2})
	require.Len(t, jobs, 2)
}

func TestSearchJobsDeduplicatesAcrossSources(t *testing.T) {
	richer := JobListing{ID: "a-1", Source: "a", Title: "Go Developer", Company: "Acme", Salary: "$1", Description: makeText(300)}
	thinner := JobListing{ID: "b-1", Source: "b", Title: "go developer", Company: "ACME"}
	a, _ := spySource("a", []JobListing{richer}, nil)
	b, _ := spySource("b", []JobListing{thinner}, nil)

	o := NewOrchestrator(nil, []SourceSpec{a, b})
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})

	require.Len(t, jobs, 1)
	require.Equal(t, "a-1", jobs[0].ID)
}

func TestSearchJobsHungAdapterTimesOut(t *testing.T) {
	hung := SourceSpec{
		Name:       "hung",
		RemoteOnly: true,
		Search: func(ctx context.Context, params JobSearchParams) ([]JobListing, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	ok, _ := spySource("ok", []JobListing{listingFor("ok", 1)}, nil)

	o := NewOrchestrator(nil, []SourceSpec{hung, ok}, WithCallTimeout(30*time.Millisecond))

	start := time.Now()
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})
	require.Less(t, time.Since(start), 2*time.Second, "fan-in must not block on a hung adapter")
	require.Len(t, jobs, 1)
	require.Equal(t, Source("ok"), jobs[0].Source)
}

func TestSearchJobsRateLimiterExhausted(t *testing.T) {
	throttled, calls := spySource("throttled", []JobListing{listingFor("throttled", 1)}, nil)
	// Zero burst: Wait can never succeed, the source contributes nothing.
	throttled.Limiter = rate.NewLimiter(rate.Every(time.Hour), 0)
	ok, _ := spySource("ok", []JobListing{listingFor("ok", 1)}, nil)

	o := NewOrchestrator(nil, []SourceSpec{throttled, ok}, WithCallTimeout(50*time.Millisecond))
	jobs := o.SearchJobs(context.Background(), JobSearchParams{Keyword: "go"})

	require.Len(t, jobs, 1)
	require.Equal(t, Source("ok"), jobs[0].Source)
	require.EqualValues(t, 0, calls.Load(), "adapter must not run when its limiter denies the call")
}

func TestSearchJobsObserver(t *testing.T) {
	cache := newTestCache(t, CacheOptions{TTL: time.Minute})
	spec, _ := spySource("s", []JobListing{listingFor("s", 1)}, nil)

	reports := make(chan SearchReport, 2)
	o := NewOrchestrator(cache, []SourceSpec{spec}, WithObserver(func(r SearchReport) { reports <- r }))

	params := JobSearchParams{Keyword: "go"}
	o.SearchJobs(context.Background(), params)
	r := recvReport(t, reports)
	require.False(t, r.FromCache)
	require.Equal(t, 1, r.Total)

	o.SearchJobs(context.Background(), params)
	r = recvReport(t, reports)
	require.True(t, r.FromCache)
}

func TestSearchJobsByCountry(t *testing.T) {
	remote, remoteCalls := spySource(SourceRemoteOK, []JobListing{listingFor(SourceRemoteOK, 1)}, nil)
	br := SourceSpec{Name: SourceVagas, Countries: []string{"br"}}
	brCalls := &atomic.Int64{}
	br.Search = func(ctx context.Context, params JobSearchParams) ([]JobListing, error) {
		brCalls.Add(1)
		return []JobListing{listingFor(SourceVagas, 1)}, nil
	}
	pt := SourceSpec{Name: SourceDGES, Countries: []string{"pt"}}
	ptCalls := &atomic.Int64{}
	pt.Search = func(ctx context.Context, params JobSearchParams) ([]JobListing, error) {
		ptCalls.Add(1)
		return []JobListing{listingFor(SourceDGES, 1)}, nil
	}

	o := NewOrchestrator(nil, []SourceSpec{remote, br, pt})

	jobs := o.SearchJobsByCountry(context.Background(), "developer", "br", 10)
	require.Len(t, jobs, 2, "br search covers the br board plus remote-only sources")
	require.EqualValues(t, 1, remoteCalls.Load())
	require.EqualValues(t, 1, brCalls.Load())
	require.EqualValues(t, 0, ptCalls.Load())
}

func idsOf(jobs []JobListing) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func recvReport(t *testing.T, ch <-chan SearchReport) SearchReport {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("observer was not invoked")
		return SearchReport{}
	}
}
