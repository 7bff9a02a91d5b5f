// Package store defines the datastore abstraction for sellerscope.
// All business logic depends on the Store interface, never on concrete
// implementations. This enables mock-based testing without a running
// database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrQueueUnavailable wraps storage failures on the refresh queue paths.
// Callers surface it as a retryable condition, never as a silent no-op.
var ErrQueueUnavailable = errors.New("refresh queue unavailable")

// SnapshotQuery defines optional filters for snapshot listing queries.
type SnapshotQuery struct {
	Marketplace *string
	MinDemand   *int
	WithData    bool // only snapshots built from a viable sample
	Limit       int  // default 50
	Offset      int
	OrderBy     string // "last_updated", "demand", "avg_price"
}

// Store defines all data access operations for sellerscope.
//
// Claim/complete/fail are the only transitions out of pending; they are
// implemented as conditional updates so correctness holds across
// independent worker processes, not just goroutines.
type Store interface {
	// Refresh queue
	EnqueueRefresh(
		ctx context.Context,
		keyword, marketplace string,
		priority int,
		requestedBy *string,
	) (string, error)
	ClaimBatch(ctx context.Context, workerID string, limit int) ([]domain.QueueEntry, error)
	CompleteEntry(ctx context.Context, id string) error
	FailEntry(ctx context.Context, id, reason string) error
	ReclaimStuck(ctx context.Context, olderThan time.Duration) (int, error)
	GetQueueEntry(ctx context.Context, id string) (*domain.QueueEntry, error)
	ListQueueEntries(
		ctx context.Context,
		state domain.QueueState,
		limit int,
	) ([]domain.QueueEntry, error)
	CountQueueByState(ctx context.Context) (map[domain.QueueState]int, error)
	CountManualEnqueues(ctx context.Context, userID string, since time.Time) (int, error)

	// Snapshots
	GetSnapshot(ctx context.Context, keyword, marketplace string) (*domain.Snapshot, error)
	PutSnapshot(ctx context.Context, snap *domain.Snapshot) error
	RecordSnapshotDemand(ctx context.Context, keyword, marketplace string) error
	ListSnapshots(ctx context.Context, opts *SnapshotQuery) ([]domain.Snapshot, int, error)
	ListRefreshCandidates(ctx context.Context, limit int) ([]domain.Snapshot, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string, rowsAffected int) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
