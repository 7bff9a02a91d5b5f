// Package provider wraps the marketplace enrichment API that returns
// per-keyword search result listings. The concrete HTTP client sits
// behind the Client interface so the worker can be tested against fakes.
package provider

import (
	"context"
	"errors"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// Transient failures are retryable within a refresh attempt; permanent
// ones fail the queue entry immediately.
var (
	// ErrThrottled is returned when the provider rejects a call for rate
	// reasons (HTTP 429).
	ErrThrottled = errors.New("provider throttled request")

	// ErrUnavailable is returned on provider-side failures (HTTP 5xx),
	// timeouts, and transport errors.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNoResults is returned when a search succeeded but matched no
	// listings (an empty results array). Not retryable.
	ErrNoResults = errors.New("provider returned no results")

	// ErrBadRequest is returned when the provider rejected the request
	// itself (4xx other than 429, including 404). Not retryable.
	ErrBadRequest = errors.New("provider rejected request")
)

// FetchRequest identifies one keyword search against the provider.
type FetchRequest struct {
	Keyword     string
	Marketplace string
	MaxListings int
}

// Client fetches current search result listings for a keyword.
type Client interface {
	FetchListings(ctx context.Context, req FetchRequest) ([]domain.Listing, error)
}

// IsTransient reports whether err is worth retrying within the same
// refresh attempt.
func IsTransient(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}
