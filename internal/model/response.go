package model

// ResponseStatus is the top-level outcome of a lookup.
type ResponseStatus string

const (
	StatusOK       ResponseStatus = "ok"
	StatusDegraded ResponseStatus = "degraded"
)

// Meta carries request tracing details.
type Meta struct {
	TraceID   string `json:"traceId"`
	ElapsedMs int64  `json:"elapsedMs,omitempty"`
}

// RatingsDiagnostics summarizes how a ratings response was assembled.
type RatingsDiagnostics struct {
	SourcesUsed      []string `json:"sources_used"`
	EvidenceCount    int      `json:"evidence_count"`
	Domains          []string `json:"domains"`
	FilteredOutCount int      `json:"filtered_out_count"`
	AcceptedCount    int      `json:"accepted_count"`
	Tried            []string `json:"tried,omitempty"`
	Blocked          []string `json:"blocked,omitempty"`
	Excluded         []string `json:"excluded,omitempty"`
	Errors           []string `json:"errors"`
	Cached           bool     `json:"cached"`
}

// RatingsResponse is the body of the ratings endpoint.
type RatingsResponse struct {
	Query       string             `json:"query"`
	Status      ResponseStatus     `json:"status"`
	Ratings     []RatingEntry      `json:"ratings"`
	Diagnostics RatingsDiagnostics `json:"diagnostics"`
	Meta        Meta               `json:"meta"`
}

// Entity is the resolved company view returned by the discovery endpoint.
type Entity struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Ticker  string   `json:"ticker,omitempty"`
	Country string   `json:"country,omitempty"`
}

// FindDiagnostics reports discovery problems.
type FindDiagnostics struct {
	Errors []string `json:"errors"`
}

// FindResponse is the body of the discovery endpoint.
type FindResponse struct {
	Query       string              `json:"query"`
	Status      ResponseStatus      `json:"status"`
	Entity      *Entity             `json:"entity"`
	Agencies    map[Agency][]string `json:"agencies"`
	Diagnostics FindDiagnostics     `json:"diagnostics"`
	Meta        Meta                `json:"meta"`
}
