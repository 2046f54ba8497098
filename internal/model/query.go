package model

import "strings"

// Query is the immutable lookup input.
type Query struct {
	Name    string `json:"name"`
	Ticker  string `json:"ticker,omitempty"`
	Country string `json:"country,omitempty"`
}

// Blank reports whether the query has no usable company name.
func (q Query) Blank() bool {
	return strings.TrimSpace(q.Name) == ""
}

// CacheKey returns the normalized cache key for the whole query.
func (q Query) CacheKey() string {
	key := strings.ToLower(strings.TrimSpace(q.Name))
	if c := strings.TrimSpace(q.Country); c != "" {
		key += "|" + strings.ToLower(c)
	}
	return key
}

// AliasSet is an ordered, deduplicated list of name variants. The first
// element is always the original query string.
type AliasSet []string

// Limit returns at most n aliases, keeping the original first.
func (s AliasSet) Limit(n int) AliasSet {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
