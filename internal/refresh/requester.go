// Package refresh is the enqueue front door. Both the HTTP API and the
// policy sweep go through a Requester, which owns input normalization,
// priority assignment, and the manual-quota gate.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellerscope/sellerscope/internal/metrics"
	"github.com/sellerscope/sellerscope/internal/quota"
	"github.com/sellerscope/sellerscope/internal/store"
	"github.com/sellerscope/sellerscope/pkg/freshness"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// PriorityFirstSeen is assigned to keywords that have never been
// snapshotted. New keywords jump ahead of routine refreshes so a user's
// first search stops returning an empty answer quickly.
const PriorityFirstSeen = 6

// ErrInvalidKeyword is returned when the keyword is empty after
// normalization.
var ErrInvalidKeyword = errors.New("keyword must not be empty")

// QuotaExceededError is returned when a user has spent their daily
// manual refresh budget. It carries the quota status so the API layer
// can tell the user when to come back.
type QuotaExceededError struct {
	Status quota.Status
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily manual refresh quota exceeded (%d/%d), resets at %s",
		e.Status.Used, e.Status.Limit, e.Status.ResetsAt.Format(time.RFC3339))
}

// Enqueuer is the slice of the store the Requester needs.
type Enqueuer interface {
	EnqueueRefresh(
		ctx context.Context,
		keyword, marketplace string,
		priority int,
		requestedBy *string,
	) (string, error)
	GetSnapshot(ctx context.Context, keyword, marketplace string) (*domain.Snapshot, error)
}

// Requester validates, prices, and enqueues refresh requests.
type Requester struct {
	store  Enqueuer
	guard  *quota.Guard
	logger *slog.Logger
}

// NewRequester creates a Requester backed by the given store and quota guard.
func NewRequester(s Enqueuer, guard *quota.Guard, logger *slog.Logger) *Requester {
	return &Requester{
		store:  s,
		guard:  guard,
		logger: logger,
	}
}

// RequestManual enqueues a user-triggered refresh at top priority. The
// user's daily quota is checked first; a denial returns
// *QuotaExceededError without touching the queue. When a live entry for
// the keyword already exists the request raises it in place, and still
// counts against the quota.
func (r *Requester) RequestManual(
	ctx context.Context,
	keyword, marketplace, userID string,
) (string, quota.Status, error) {
	keyword = domain.NormalizeKeyword(keyword)
	marketplace = domain.NormalizeMarketplace(marketplace)
	if keyword == "" {
		return "", quota.Status{}, ErrInvalidKeyword
	}

	status := r.guard.Check(ctx, userID)
	if !status.Allowed {
		metrics.QuotaDenialsTotal.Inc()
		r.logger.Info("manual refresh denied by quota",
			"user_id", userID,
			"keyword", keyword,
			"used", status.Used,
			"limit", status.Limit,
		)
		return "", status, &QuotaExceededError{Status: status}
	}

	id, err := r.store.EnqueueRefresh(ctx, keyword, marketplace, domain.PriorityManual, &userID)
	if err != nil {
		return "", status, fmt.Errorf("enqueueing manual refresh: %w", err)
	}

	metrics.EnqueuesTotal.WithLabelValues("manual").Inc()
	r.logger.Info("manual refresh enqueued",
		"queue_id", id,
		"keyword", keyword,
		"marketplace", marketplace,
		"user_id", userID,
	)

	// The accepted request consumes one unit.
	status.Used++
	if status.Remaining > 0 {
		status.Remaining--
	}

	return id, status, nil
}

// RequestSystem enqueues a system-originated refresh. Priority derives
// from the snapshot's demand counter; keywords never snapshotted get
// PriorityFirstSeen.
func (r *Requester) RequestSystem(
	ctx context.Context,
	keyword, marketplace string,
) (string, error) {
	keyword = domain.NormalizeKeyword(keyword)
	marketplace = domain.NormalizeMarketplace(marketplace)
	if keyword == "" {
		return "", ErrInvalidKeyword
	}

	priority := PriorityFirstSeen
	snap, err := r.store.GetSnapshot(ctx, keyword, marketplace)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// first sighting, keep PriorityFirstSeen
	case err != nil:
		return "", fmt.Errorf("looking up snapshot: %w", err)
	default:
		priority = freshness.PriorityForDemand(snap.Demand)
	}

	id, err := r.store.EnqueueRefresh(ctx, keyword, marketplace, priority, nil)
	if err != nil {
		return "", fmt.Errorf("enqueueing system refresh: %w", err)
	}

	metrics.EnqueuesTotal.WithLabelValues("system").Inc()
	r.logger.Debug("system refresh enqueued",
		"queue_id", id,
		"keyword", keyword,
		"marketplace", marketplace,
		"priority", priority,
	)

	return id, nil
}
