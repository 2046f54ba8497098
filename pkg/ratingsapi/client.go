// Package ratingsapi is a client for a paid credit-ratings data API that
// serves issuer ratings by name or ticker.
package ratingsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client looks up issuer ratings.
type Client interface {
	Ratings(ctx context.Context, req RatingsRequest) (*RatingsResponse, error)
}

// RatingsRequest selects the issuer and agencies.
type RatingsRequest struct {
	Name     string
	Ticker   string
	Country  string
	Agencies []string
}

// RatingsResponse is the body of GET /v1/ratings.
type RatingsResponse struct {
	Issuer  string   `json:"issuer"`
	Ratings []Rating `json:"ratings"`
}

// Rating is one agency rating as reported by the API.
type Rating struct {
	Agency     string `json:"agency"`
	Rating     string `json:"rating"`
	Outlook    string `json:"outlook"`
	Scale      string `json:"scale"`
	RatingDate string `json:"rating_date"`
	URL        string `json:"url"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ratingsapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Ratings(ctx context.Context, req RatingsRequest) (*RatingsResponse, error) {
	q := url.Values{}
	q.Set("name", req.Name)
	if req.Ticker != "" {
		q.Set("ticker", req.Ticker)
	}
	if req.Country != "" {
		q.Set("country", req.Country)
	}
	for _, a := range req.Agencies {
		q.Add("agency", a)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/ratings?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "ratingsapi: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "ratingsapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "ratingsapi: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return &RatingsResponse{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result RatingsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ratingsapi: unmarshal response")
	}
	return &result, nil
}
