package model

// EvidenceWindow is a bounded text excerpt from a fetched page.
type EvidenceWindow struct {
	URL    string `json:"url"`
	Text   string `json:"text"`
	Agency Agency `json:"agency,omitempty"` // source hint, empty for IR pages
}

// Diagnostics is the per-request acquisition record. Never persisted.
type Diagnostics struct {
	Tried     []string `json:"tried"`
	Blocked   []string `json:"blocked"`
	NotFound  []string `json:"not_found"`
	Errors    []string `json:"errors"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

// Metric counter names. Seeded at zero when the cache store is created.
const (
	MetricRequestsTotal        = "requests_total"
	MetricCacheHits            = "cache_hits"
	MetricCacheMisses          = "cache_misses"
	MetricBlocked403           = "blocked_403_count"
	MetricSearchResultsTotal   = "search_results_total"
	MetricEvidenceWindowsTotal = "evidence_windows_total"
	MetricFilteredOutTotal     = "filtered_out_total"
)

// MetricNames returns all counter names in a stable order.
func MetricNames() []string {
	return []string{
		MetricRequestsTotal,
		MetricCacheHits,
		MetricCacheMisses,
		MetricBlocked403,
		MetricSearchResultsTotal,
		MetricEvidenceWindowsTotal,
		MetricFilteredOutTotal,
	}
}

// Candidate is a URL to fetch for evidence, tagged with the agency whose
// page it is (empty for investor-relations guesses).
type Candidate struct {
	URL    string `json:"url"`
	Agency Agency `json:"agency,omitempty"`
}
