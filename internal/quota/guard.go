// Package quota enforces the per-user daily budget for manual refreshes.
package quota

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDailyManualLimit is the number of manual refreshes each user may
// trigger per UTC day.
const DefaultDailyManualLimit = 10

// ManualCounter counts a user's manual enqueues since a point in time.
type ManualCounter interface {
	CountManualEnqueues(ctx context.Context, userID string, since time.Time) (int, error)
}

// Status is the result of a quota check.
type Status struct {
	Allowed   bool
	Limit     int
	Used      int
	Remaining int
	ResetsAt  time.Time // next UTC midnight
}

// Guard answers whether a user may trigger another manual refresh today.
// The window is the current UTC calendar day, not a rolling 24 hours.
type Guard struct {
	counter ManualCounter
	limit   int
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Option configures the Guard.
type Option func(*Guard)

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(g *Guard) {
		g.nowFunc = f
	}
}

// NewGuard creates a Guard with the given daily limit. A non-positive
// limit falls back to the default.
func NewGuard(counter ManualCounter, limit int, logger *slog.Logger, opts ...Option) *Guard {
	if limit <= 0 {
		limit = DefaultDailyManualLimit
	}
	g := &Guard{
		counter: counter,
		limit:   limit,
		logger:  logger,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check reports whether userID may trigger another manual refresh right
// now. When the usage count cannot be read, the guard fails open: the
// request is allowed and the failure is logged.
func (g *Guard) Check(ctx context.Context, userID string) Status {
	now := g.nowFunc().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	resetsAt := dayStart.Add(24 * time.Hour)

	used, err := g.counter.CountManualEnqueues(ctx, userID, dayStart)
	if err != nil {
		g.logger.Warn("quota check failed, allowing request",
			"user_id", userID,
			"error", err,
		)
		return Status{
			Allowed:   true,
			Limit:     g.limit,
			Remaining: g.limit,
			ResetsAt:  resetsAt,
		}
	}

	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Allowed:   used < g.limit,
		Limit:     g.limit,
		Used:      used,
		Remaining: remaining,
		ResetsAt:  resetsAt,
	}
}
