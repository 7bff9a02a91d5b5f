// Package domain defines the core business types for sellerscope.
package domain

import (
	"strings"
	"time"
)

// QueueState represents the lifecycle state of a refresh queue entry.
type QueueState string

// Queue state constants. Entries move pending -> processing -> completed|failed.
const (
	StatePending    QueueState = "pending"
	StateProcessing QueueState = "processing"
	StateCompleted  QueueState = "completed"
	StateFailed     QueueState = "failed"
)

// IsTerminal reports whether the state admits no further transitions.
func (s QueueState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsLive reports whether an entry in this state occupies the per-key
// uniqueness slot (at most one live entry per keyword+marketplace).
func (s QueueState) IsLive() bool {
	return s == StatePending || s == StateProcessing
}

// PriorityManual is the fixed priority of user-requested refreshes.
// System-initiated refreshes derive their priority from observed demand
// and never reach this value.
const PriorityManual = 10

// QueueEntry is a single refresh request in the durable work queue.
type QueueEntry struct {
	ID          string     `json:"id"                     db:"id"`
	Keyword     string     `json:"keyword"                db:"keyword"`
	Marketplace string     `json:"marketplace"            db:"marketplace"`
	Priority    int        `json:"priority"               db:"priority"`
	RequestedBy *string    `json:"requested_by,omitempty" db:"requested_by"`
	State       QueueState `json:"state"                  db:"state"`
	FailReason  string     `json:"fail_reason,omitempty"  db:"fail_reason"`
	Attempts    int        `json:"attempts"               db:"attempts"`
	ClaimedBy   string     `json:"claimed_by,omitempty"   db:"claimed_by"`
	CreatedAt   time.Time  `json:"created_at"             db:"created_at"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"   db:"claimed_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"  db:"finished_at"`
}

// IsManual reports whether the entry came from a user-initiated refresh.
func (e *QueueEntry) IsManual() bool {
	return e.Priority == PriorityManual && e.RequestedBy != nil
}

// Listing is a single marketplace listing returned by the enrichment
// provider for a keyword search. It is an input to snapshot aggregation
// and is never persisted on its own.
type Listing struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	ListingURL  string  `json:"listing_url,omitempty"`
}

// Snapshot holds the materialized aggregate market metrics for one
// keyword+marketplace pair. It is always written whole by a single
// aggregation pass; no field is ever patched in isolation.
type Snapshot struct {
	Keyword     string `json:"keyword"     db:"keyword"`
	Marketplace string `json:"marketplace" db:"marketplace"`

	// Aggregates
	ListingCount  int     `json:"listing_count"   db:"listing_count"`
	AvgPrice      float64 `json:"avg_price"       db:"avg_price"`
	MedianPrice   float64 `json:"median_price"    db:"median_price"`
	MinPrice      float64 `json:"min_price"       db:"min_price"`
	MaxPrice      float64 `json:"max_price"       db:"max_price"`
	AvgRating     float64 `json:"avg_rating"      db:"avg_rating"`
	TotalReviews  int     `json:"total_reviews"   db:"total_reviews"`
	TopBrand      string  `json:"top_brand,omitempty" db:"top_brand"`
	TopBrandShare float64 `json:"top_brand_share" db:"top_brand_share"`

	// Refresh accounting
	Priority    int       `json:"priority"     db:"priority"`
	Demand      int       `json:"demand"       db:"demand"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// HasData reports whether the snapshot was built from a viable listing
// sample. A snapshot with no data is still a valid, completed result.
func (s *Snapshot) HasData() bool {
	return s.ListingCount > 0
}

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID           string     `json:"id"                      db:"id"`
	JobName      string     `json:"job_name"                db:"job_name"`
	StartedAt    time.Time  `json:"started_at"              db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"  db:"completed_at"`
	Status       string     `json:"status"                  db:"status"`
	ErrorText    string     `json:"error_text,omitempty"    db:"error_text"`
	RowsAffected int        `json:"rows_affected"           db:"rows_affected"`
}

// NormalizeKeyword canonicalizes a keyword for queue de-duplication and
// snapshot lookup: trimmed, lowercased, inner whitespace collapsed.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// NormalizeMarketplace canonicalizes a marketplace domain ("Amazon.com"
// and "amazon.com " are the same market).
func NormalizeMarketplace(marketplace string) string {
	return strings.ToLower(strings.TrimSpace(marketplace))
}
