package jobagg

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache defaults.
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
	defaultMaxEntries    = 1024
	defaultSearchLimit   = 50
)

// CacheOptions configures a SearchCache. The zero value gives an in-memory
// cache with the default TTL and sweep interval.
type CacheOptions struct {
	TTL           time.Duration
	SweepInterval time.Duration
	// MaxEntries bounds the in-memory tier; <= 0 uses the default bound.
	MaxEntries int
	// RedisURL enables the optional L2 tier. Empty disables it; an
	// unreachable server logs a warning and degrades to memory-only.
	RedisURL string
}

// SearchCache is a TTL cache over (search parameters × source set). It is
// the only component in the package with shared mutable state: one mutex
// guards the whole in-memory map. An optional Redis L2 survives restarts and
// is populated and read around the memory tier.
type SearchCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry

	rdb        *redis.Client // nil when L2 is disabled
	ttl        time.Duration
	sweepEvery time.Duration
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

type cacheEntry struct {
	jobs      []JobListing
	createdAt time.Time
	expiresAt time.Time
}

// NewSearchCache builds a cache and starts its background sweep.
// Call Close to stop the sweep goroutine.
func NewSearchCache(opts CacheOptions) *SearchCache {
	c := &SearchCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        opts.TTL,
		sweepEvery: opts.SweepInterval,
		maxEntries: opts.MaxEntries,
		stop:       make(chan struct{}),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultCacheTTL
	}
	if c.sweepEvery <= 0 {
		c.sweepEvery = DefaultSweepInterval
	}
	if c.maxEntries <= 0 {
		c.maxEntries = defaultMaxEntries
	}

	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(ropts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", ropts.Addr))
			}
		}
	}

	go c.sweepLoop()
	return c
}

// Close stops the background sweep. Safe to call more than once.
func (c *SearchCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cacheKey derives a deterministic key from normalized parameters: two
// logically-equivalent requests hash identically regardless of source-slice
// ordering or keyword casing.
func cacheKey(params JobSearchParams, sources []string) string {
	keyword := strings.ToLower(strings.TrimSpace(params.Keyword))
	country := strings.ToLower(strings.TrimSpace(params.Country))
	if country == "" {
		country = "all"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)

	payload := fmt.Sprintf("keyword=%s|country=%s|limit=%d|maxAgeDays=%d|sources=%s",
		keyword, country, limit, params.MaxAgeDays, strings.Join(sorted, ","))
	hash := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("ja:%x", hash[:12])
}

// Get returns the cached result for the normalized (params, sources) key.
// An expired entry is deleted on read and reported as a miss: stale postings
// must not be served, so lazy eviction is a correctness requirement here.
func (c *SearchCache) Get(ctx context.Context, params JobSearchParams, sources []string) ([]JobListing, bool) {
	key := cacheKey(params, sources)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if time.Now().Before(e.expiresAt) {
			jobs := append([]JobListing(nil), e.jobs...)
			c.mu.Unlock()
			metrics.CacheHits.Add(1)
			slog.Debug("cache: hit", slog.String("key", key), slog.Int("jobs", len(jobs)))
			return jobs, true
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var jobs []JobListing
			if json.Unmarshal(data, &jobs) == nil {
				c.storeMemory(key, jobs)
				metrics.CacheHits.Add(1)
				slog.Debug("cache: L2 hit", slog.String("key", key), slog.Int("jobs", len(jobs)))
				return jobs, true
			}
		}
	}

	metrics.CacheMisses.Add(1)
	return nil, false
}

// Set stores a completed search result under the normalized key. When a live
// entry already exists, the incoming listings are merged with it by id (new
// listings win) so two overlapping fan-outs never shrink each other's entry.
func (c *SearchCache) Set(ctx context.Context, params JobSearchParams, sources []string, jobs []JobListing) {
	key := cacheKey(params, sources)
	stored := append([]JobListing(nil), jobs...)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		stored = DeduplicateByID(append(stored, e.jobs...))
	}
	c.evictLocked()
	c.entries[key] = &cacheEntry{
		jobs:      stored,
		createdAt: time.Now(),
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	if c.rdb != nil {
		data, err := json.Marshal(stored)
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Debug("cache: L2 set failed", slog.Any("error", err))
		}
	}
}

// Len reports the number of in-memory entries, expired included.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SearchCache) storeMemory(key string, jobs []JobListing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.entries[key] = &cacheEntry{
		jobs:      append([]JobListing(nil), jobs...),
		createdAt: time.Now(),
		expiresAt: time.Now().Add(c.ttl),
	}
}

// evictLocked keeps the map under maxEntries: expired entries go first, then
// the closest-to-expiry entries (expiry = createdAt + ttl, so earlier expiry
// means older). Caller holds c.mu.
func (c *SearchCache) evictLocked() {
	if len(c.entries) < c.maxEntries {
		return
	}

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}

	for len(c.entries) >= c.maxEntries {
		oldestKey := ""
		var oldestAt time.Time
		for key, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = e.expiresAt
			}
		}
		if oldestKey == "" {
			return
		}
		delete(c.entries, oldestKey)
	}
}

// sweepLoop proactively removes expired entries so unread keys cannot
// accumulate between lazy evictions.
func (c *SearchCache) sweepLoop() {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
