// Package fetcher retrieves agency and investor-relations pages with
// browser-like headers, per-host rate limiting and linear-backoff retries.
package fetcher

import "context"

// Outcome classifies a finished fetch.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeError    Outcome = "error"
)

// Result is the outcome of a single Fetch call. Failures are carried in
// Outcome and Err; Fetch itself never fails.
type Result struct {
	URL      string
	Body     []byte
	Status   int
	Outcome  Outcome
	Attempts int
	Err      error
}

// Content returns the page body, or "" unless the fetch succeeded.
func (r Result) Content() string {
	if r.Outcome != OutcomeOK {
		return ""
	}
	return string(r.Body)
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}
