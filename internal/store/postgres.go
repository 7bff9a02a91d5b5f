package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
// Pool sizing comes from the connection string (pool_max_conns).
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// EnqueueRefresh inserts a pending refresh request or, when a live entry
// for the normalized key already exists, raises its priority in place and
// returns the surviving entry's id. The caller is expected to have
// normalized keyword and marketplace already.
func (s *PostgresStore) EnqueueRefresh(
	ctx context.Context,
	keyword, marketplace string,
	priority int,
	requestedBy *string,
) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, queryEnqueueRefresh,
		keyword, marketplace, priority, requestedBy,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%w: enqueueing %q/%q: %w", ErrQueueUnavailable, keyword, marketplace, err)
	}
	return id, nil
}

// ClaimBatch atomically transitions up to limit pending entries to
// processing on behalf of workerID and returns them ordered by priority
// descending, oldest first within a priority. FOR UPDATE SKIP LOCKED
// guarantees two concurrent workers never claim the same entry.
func (s *PostgresStore) ClaimBatch(
	ctx context.Context,
	workerID string,
	limit int,
) ([]domain.QueueEntry, error) {
	rows, err := s.pool.Query(ctx, queryClaimBatch, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: claiming batch: %w", ErrQueueUnavailable, err)
	}
	defer rows.Close()

	entries, err := scanQueueEntries(rows)
	if err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not preserve the CTE's ordering.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

// CompleteEntry marks a processing entry completed. Calling it on an
// already-terminal entry is a no-op.
func (s *PostgresStore) CompleteEntry(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, queryCompleteEntry, id); err != nil {
		return fmt.Errorf("completing queue entry %s: %w", id, err)
	}
	return nil
}

// FailEntry marks a processing entry failed with the given reason.
// Calling it on an already-terminal entry is a no-op.
func (s *PostgresStore) FailEntry(ctx context.Context, id, reason string) error {
	if _, err := s.pool.Exec(ctx, queryFailEntry, id, reason); err != nil {
		return fmt.Errorf("failing queue entry %s: %w", id, err)
	}
	return nil
}

// ReclaimStuck returns processing entries claimed before now-olderThan to
// pending so a crashed worker cannot strand them. Returns the number of
// entries reclaimed.
func (s *PostgresStore) ReclaimStuck(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := s.pool.Exec(ctx, queryReclaimStuck, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stuck entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetQueueEntry retrieves a queue entry by its id.
func (s *PostgresStore) GetQueueEntry(
	ctx context.Context,
	id string,
) (*domain.QueueEntry, error) {
	e := &domain.QueueEntry{}
	err := scanQueueEntry(s.pool.QueryRow(ctx, queryGetQueueEntry, id), e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting queue entry %s: %w", id, err)
	}
	return e, nil
}

// ListQueueEntries returns entries in the given state, highest priority
// first.
func (s *PostgresStore) ListQueueEntries(
	ctx context.Context,
	state domain.QueueState,
	limit int,
) ([]domain.QueueEntry, error) {
	rows, err := s.pool.Query(ctx, queryListQueueEntries, string(state), limit)
	if err != nil {
		return nil, fmt.Errorf("querying queue entries: %w", err)
	}
	defer rows.Close()

	return scanQueueEntries(rows)
}

// CountQueueByState returns the number of queue entries per state.
func (s *PostgresStore) CountQueueByState(
	ctx context.Context,
) (map[domain.QueueState]int, error) {
	rows, err := s.pool.Query(ctx, queryCountQueueByState)
	if err != nil {
		return nil, fmt.Errorf("counting queue entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.QueueState]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scanning queue count: %w", err)
		}
		counts[domain.QueueState(state)] = count
	}

	return counts, rows.Err()
}

// CountManualEnqueues counts a user's manual (priority-10) requests
// made at or after since. The count keys on the time of the request
// itself, so a manual raise of an older system entry still counts.
func (s *PostgresStore) CountManualEnqueues(
	ctx context.Context,
	userID string,
	since time.Time,
) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, queryCountManualEnqueues, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting manual enqueues for %s: %w", userID, err)
	}
	return count, nil
}

// GetSnapshot retrieves the snapshot for a normalized keyword+marketplace
// pair, or ErrNotFound if none has been materialized yet.
func (s *PostgresStore) GetSnapshot(
	ctx context.Context,
	keyword, marketplace string,
) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	err := scanSnapshot(s.pool.QueryRow(ctx, queryGetSnapshot, keyword, marketplace), snap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot %q/%q: %w", keyword, marketplace, err)
	}
	return snap, nil
}

// PutSnapshot writes the snapshot whole, last-writer-wins. The demand
// counter is owned by the read path and is not touched on overwrite.
func (s *PostgresStore) PutSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	args := pgx.NamedArgs{
		"keyword":         snap.Keyword,
		"marketplace":     snap.Marketplace,
		"listing_count":   snap.ListingCount,
		"avg_price":       snap.AvgPrice,
		"median_price":    snap.MedianPrice,
		"min_price":       snap.MinPrice,
		"max_price":       snap.MaxPrice,
		"avg_rating":      snap.AvgRating,
		"total_reviews":   snap.TotalReviews,
		"top_brand":       snap.TopBrand,
		"top_brand_share": snap.TopBrandShare,
		"priority":        snap.Priority,
		"last_updated":    snap.LastUpdated,
	}

	if _, err := s.pool.Exec(ctx, queryPutSnapshot, args); err != nil {
		return fmt.Errorf("putting snapshot %q/%q: %w", snap.Keyword, snap.Marketplace, err)
	}
	return nil
}

// RecordSnapshotDemand bumps the demand counter for an existing snapshot.
// A miss (no snapshot yet) is not an error; demand only steers the
// refresh cadence of materialized snapshots.
func (s *PostgresStore) RecordSnapshotDemand(
	ctx context.Context,
	keyword, marketplace string,
) error {
	if _, err := s.pool.Exec(ctx, queryRecordSnapshotDemand, keyword, marketplace); err != nil {
		return fmt.Errorf("recording snapshot demand: %w", err)
	}
	return nil
}

// ListSnapshots queries snapshots with optional filters, returning results
// and total count.
func (s *PostgresStore) ListSnapshots(
	ctx context.Context,
	opts *SnapshotQuery,
) ([]domain.Snapshot, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting snapshots: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, 0, err
	}

	return snaps, total, nil
}

// ListRefreshCandidates returns snapshots for the staleness sweep,
// highest demand first. Staleness itself is evaluated in code.
func (s *PostgresStore) ListRefreshCandidates(
	ctx context.Context,
	limit int,
) ([]domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, queryListRefreshCandidates, limit)
	if err != nil {
		return nil, fmt.Errorf("querying refresh candidates: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// InsertJobRun records the start of a scheduled job and returns its UUID.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertJobRun, jobName).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting job run: %w", err)
	}
	return id, nil
}

// CompleteJobRun marks a job run as finished with the given status and metadata.
func (s *PostgresStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText, rowsAffected)
	if err != nil {
		return fmt.Errorf("completing job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the most recent runs for a specific job, newest first.
func (s *PostgresStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListJobRuns, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// ListLatestJobRuns returns the single most recent run for each distinct job name.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, queryListLatestJobRuns)
	if err != nil {
		return nil, fmt.Errorf("querying latest job runs: %w", err)
	}
	defer rows.Close()

	return scanJobRuns(rows)
}

// RecoverStaleJobRuns marks any 'running' job rows older than olderThan as
// 'crashed', then deletes all rows older than 30 days. Returns the number
// of rows marked as crashed.
func (s *PostgresStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleJobRunsCrashed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale job runs crashed: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldJobRuns); err != nil {
		return affected, fmt.Errorf("deleting old job runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row scannable, e *domain.QueueEntry) error {
	return row.Scan(
		&e.ID, &e.Keyword, &e.Marketplace, &e.Priority, &e.RequestedBy,
		&e.State, &e.FailReason, &e.Attempts, &e.ClaimedBy,
		&e.CreatedAt, &e.ClaimedAt, &e.FinishedAt,
	)
}

func scanQueueEntries(rows pgx.Rows) ([]domain.QueueEntry, error) {
	var entries []domain.QueueEntry
	for rows.Next() {
		var e domain.QueueEntry
		if err := scanQueueEntry(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanSnapshot(row scannable, snap *domain.Snapshot) error {
	return row.Scan(
		&snap.Keyword, &snap.Marketplace, &snap.ListingCount,
		&snap.AvgPrice, &snap.MedianPrice, &snap.MinPrice, &snap.MaxPrice,
		&snap.AvgRating, &snap.TotalReviews,
		&snap.TopBrand, &snap.TopBrandShare,
		&snap.Priority, &snap.Demand, &snap.LastUpdated,
	)
}

func scanSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		if err := scanSnapshot(rows, &snap); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// scanJobRuns scans rows from a job_runs query into a slice.
func scanJobRuns(rows pgx.Rows) ([]domain.JobRun, error) {
	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(
			&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt,
			&r.Status, &r.ErrorText, &r.RowsAffected,
		); err != nil {
			return nil, fmt.Errorf("scanning job run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
