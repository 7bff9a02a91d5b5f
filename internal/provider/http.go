package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sellerscope/sellerscope/internal/metrics"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxListings = 50

	apiKeyHeader = "X-Api-Key"
)

// HTTPClient implements Client against the enrichment provider's search
// endpoint.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	rateLimiter *RateLimiter
}

// HTTPOption configures the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// WithRateLimiter injects a rate limiter that controls per-second and
// daily call limits. When set, every FetchListings call goes through
// Wait() first.
func WithRateLimiter(r *RateLimiter) HTTPOption {
	return func(c *HTTPClient) {
		c.rateLimiter = r
	}
}

// NewHTTPClient creates a provider client for the given endpoint and API key.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchAPIResponse mirrors the provider's search payload.
type searchAPIResponse struct {
	Results []searchResult `json:"results"`
	Total   int            `json:"total"`
}

type searchResult struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	URL         string  `json:"url"`
}

// FetchListings implements Client by calling the provider's search
// endpoint. Transport errors and 5xx/429 map to transient errors; other
// non-200 statuses, 404 included, map to permanent ones. Only a 200
// with an empty results array counts as ErrNoResults.
func (c *HTTPClient) FetchListings(
	ctx context.Context,
	req FetchRequest,
) ([]domain.Listing, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyBudgetExhausted) {
				metrics.ProviderBudgetHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.ProviderCallsTotal.Inc()
		metrics.ProviderDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}

	u := c.buildSearchURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set(apiKeyHeader, c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are transient.
		return nil, fmt.Errorf("%w: executing search request: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var apiResp searchAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	if len(apiResp.Results) == 0 {
		return nil, fmt.Errorf("%w: keyword %q", ErrNoResults, req.Keyword)
	}

	return convertResults(apiResp.Results), nil
}

func (c *HTTPClient) buildSearchURL(req FetchRequest) string {
	params := url.Values{}
	params.Set("q", req.Keyword)
	params.Set("marketplace", req.Marketplace)

	limit := req.MaxListings
	if limit <= 0 {
		limit = defaultMaxListings
	}
	params.Set("limit", strconv.Itoa(limit))

	return c.baseURL + "/v1/search?" + params.Encode()
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrThrottled, status)
	case status >= 500:
		return fmt.Errorf("%w (status %d): %s", ErrUnavailable, status, string(body))
	default:
		return fmt.Errorf("%w (status %d): %s", ErrBadRequest, status, string(body))
	}
}
