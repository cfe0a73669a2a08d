package jobagg

import "sync/atomic"

// Operational counters across the package. Package-level so concurrent
// orchestrators and caches share one view; read via Metrics().
var metrics struct {
	SearchRequests atomic.Int64
	AdapterCalls   atomic.Int64
	AdapterErrors  atomic.Int64
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
	SmartSearches  atomic.Int64
}

// Metrics returns a snapshot of all operational counters.
func Metrics() map[string]int64 {
	return map[string]int64{
		"search_requests": metrics.SearchRequests.Load(),
		"adapter_calls":   metrics.AdapterCalls.Load(),
		"adapter_errors":  metrics.AdapterErrors.Load(),
		"cache_hits":      metrics.CacheHits.Load(),
		"cache_misses":    metrics.CacheMisses.Load(),
		"smart_searches":  metrics.SmartSearches.Load(),
	}
}
