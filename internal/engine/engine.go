// Package engine drives the refresh pipeline: claiming queued keywords,
// fetching listings from the provider, aggregating them into snapshots,
// and sweeping stale snapshots back into the queue.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sellerscope/sellerscope/internal/metrics"
	"github.com/sellerscope/sellerscope/internal/provider"
	"github.com/sellerscope/sellerscope/internal/store"
	"github.com/sellerscope/sellerscope/pkg/aggregate"
	"github.com/sellerscope/sellerscope/pkg/freshness"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

const (
	defaultBatchSize    = 10
	defaultConcurrency  = 3
	defaultMaxAttempts  = 3
	defaultBackoffBase  = 500 * time.Millisecond
	defaultBackoffCap   = 8 * time.Second
	defaultReclaimAfter = 15 * time.Minute
	defaultSweepBudget  = 200
)

// Engine orchestrates refresh cycles, policy sweeps, and queue reclaims.
type Engine struct {
	store    store.Store
	provider provider.Client
	log      *slog.Logger

	workerID     string
	batchSize    int
	concurrency  int
	maxAttempts  int
	backoffBase  time.Duration
	backoffCap   time.Duration
	reclaimAfter time.Duration
	sweepBudget  int
	maxListings  int

	nowFunc func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithWorkerID sets the claim attribution id for this worker process.
func WithWorkerID(id string) Option {
	return func(e *Engine) {
		e.workerID = id
	}
}

// WithBatchSize sets how many entries one cycle claims.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

// WithConcurrency bounds how many entries are processed in parallel.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithMaxAttempts sets the per-entry retry budget for transient provider
// failures.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		e.maxAttempts = n
	}
}

// WithBackoff sets the base delay and cap for retry backoff.
func WithBackoff(base, limit time.Duration) Option {
	return func(e *Engine) {
		e.backoffBase = base
		e.backoffCap = limit
	}
}

// WithReclaimAfter sets how long a processing entry may sit unclaimed
// before the reclaimer returns it to pending.
func WithReclaimAfter(d time.Duration) Option {
	return func(e *Engine) {
		e.reclaimAfter = d
	}
}

// WithSweepBudget caps how many snapshots one policy sweep examines.
func WithSweepBudget(n int) Option {
	return func(e *Engine) {
		e.sweepBudget = n
	}
}

// WithMaxListings sets how many listings to request from the provider
// per keyword.
func WithMaxListings(n int) Option {
	return func(e *Engine) {
		e.maxListings = n
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(s store.Store, p provider.Client, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		provider:     p,
		log:          slog.Default(),
		workerID:     "worker",
		batchSize:    defaultBatchSize,
		concurrency:  defaultConcurrency,
		maxAttempts:  defaultMaxAttempts,
		backoffBase:  defaultBackoffBase,
		backoffCap:   defaultBackoffCap,
		reclaimAfter: defaultReclaimAfter,
		sweepBudget:  defaultSweepBudget,
		nowFunc:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunCycle claims one batch of pending entries and drives each to a
// terminal state. Claim failure is cycle-fatal; per-entry failures are
// not. A spent provider budget stops the cycle early and leaves the
// unprocessed entries for the reclaimer. Returns the number of entries
// driven to a terminal state.
func (e *Engine) RunCycle(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	entries, err := e.store.ClaimBatch(ctx, e.workerID, e.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claiming batch: %w", err)
	}

	if len(entries) == 0 {
		e.updateQueueDepth(ctx)
		return 0, nil
	}

	e.log.Info("cycle claimed batch",
		"worker_id", e.workerID,
		"claimed", len(entries),
	)

	var processed atomic.Int64
	var budgetHit atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range entries {
		if budgetHit.Load() {
			break
		}
		entry := entries[i]
		g.Go(func() error {
			if budgetHit.Load() || gctx.Err() != nil {
				return nil
			}
			done, err := e.processEntry(gctx, &entry)
			if errors.Is(err, provider.ErrDailyBudgetExhausted) {
				budgetHit.Store(true)
				e.log.Warn("provider budget exhausted, stopping cycle",
					"keyword", entry.Keyword,
				)
				return nil
			}
			if done {
				processed.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	e.updateQueueDepth(ctx)
	return int(processed.Load()), nil
}

// processEntry drives one claimed entry to a terminal state. Returns
// true when the entry reached completed or failed. A spent daily budget
// is reported to the caller and the entry is left in processing for the
// reclaimer.
func (e *Engine) processEntry(ctx context.Context, entry *domain.QueueEntry) (bool, error) {
	listings, err := e.fetchWithRetry(ctx, entry)

	switch {
	case err == nil:
		// fall through to aggregation
	case errors.Is(err, provider.ErrDailyBudgetExhausted):
		return false, err
	case errors.Is(err, provider.ErrNoResults):
		// A keyword with no results still deserves an answer: an empty
		// snapshot records that we looked.
		listings = nil
	case provider.IsTransient(err):
		e.log.Warn("entry failed after retries",
			"queue_id", entry.ID,
			"keyword", entry.Keyword,
			"error", err,
		)
		return e.failEntry(ctx, entry, err.Error()), nil
	default:
		e.log.Warn("entry failed permanently",
			"queue_id", entry.ID,
			"keyword", entry.Keyword,
			"error", err,
		)
		return e.failEntry(ctx, entry, err.Error()), nil
	}

	snap := aggregate.Compute(entry.Keyword, entry.Marketplace, listings, e.nowFunc())
	snap.Priority = e.snapshotPriority(ctx, entry)

	if err := e.store.PutSnapshot(ctx, &snap); err != nil {
		e.log.Error("snapshot write failed",
			"queue_id", entry.ID,
			"keyword", entry.Keyword,
			"error", err,
		)
		return e.failEntry(ctx, entry, "snapshot write failed"), nil
	}
	metrics.SnapshotsWrittenTotal.Inc()

	if err := e.store.CompleteEntry(ctx, entry.ID); err != nil {
		e.log.Error("completing entry failed", "queue_id", entry.ID, "error", err)
		return false, nil
	}

	metrics.EntriesProcessedTotal.WithLabelValues("completed").Inc()
	e.log.Info("entry completed",
		"queue_id", entry.ID,
		"keyword", entry.Keyword,
		"marketplace", entry.Marketplace,
		"listings", snap.ListingCount,
	)
	return true, nil
}

// fetchWithRetry calls the provider, retrying transient failures with
// capped exponential backoff. Permanent failures and a spent daily
// budget return immediately.
func (e *Engine) fetchWithRetry(
	ctx context.Context,
	entry *domain.QueueEntry,
) ([]domain.Listing, error) {
	req := provider.FetchRequest{
		Keyword:     entry.Keyword,
		Marketplace: entry.Marketplace,
		MaxListings: e.maxListings,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		listings, err := e.provider.FetchListings(ctx, req)
		if err == nil {
			return listings, nil
		}
		lastErr = err

		if errors.Is(err, provider.ErrDailyBudgetExhausted) || !provider.IsTransient(err) {
			return nil, err
		}

		if attempt == e.maxAttempts {
			break
		}

		delay := e.backoffBase << (attempt - 1)
		if delay > e.backoffCap {
			delay = e.backoffCap
		}
		e.log.Debug("transient provider failure, backing off",
			"keyword", entry.Keyword,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

func (e *Engine) failEntry(ctx context.Context, entry *domain.QueueEntry, reason string) bool {
	if err := e.store.FailEntry(ctx, entry.ID, reason); err != nil {
		e.log.Error("failing entry failed", "queue_id", entry.ID, "error", err)
		return false
	}
	metrics.EntriesProcessedTotal.WithLabelValues("failed").Inc()
	return true
}

// snapshotPriority derives the priority to stamp on a fresh snapshot
// from the demand already accumulated on the previous one. First-time
// keywords carry no demand yet.
func (e *Engine) snapshotPriority(ctx context.Context, entry *domain.QueueEntry) int {
	prev, err := e.store.GetSnapshot(ctx, entry.Keyword, entry.Marketplace)
	if err != nil {
		return freshness.PriorityForDemand(0)
	}
	return freshness.PriorityForDemand(prev.Demand)
}

// RunPolicySweep walks the most-demanded snapshots, recomputes each
// one's priority from demand, and enqueues a system refresh for every
// snapshot that is due under the staleness policy. Returns the number
// enqueued.
func (e *Engine) RunPolicySweep(ctx context.Context) (int, error) {
	candidates, err := e.store.ListRefreshCandidates(ctx, e.sweepBudget)
	if err != nil {
		return 0, fmt.Errorf("listing refresh candidates: %w", err)
	}

	now := e.nowFunc()
	enqueued := 0

	for i := range candidates {
		if ctx.Err() != nil {
			return enqueued, ctx.Err()
		}

		snap := &candidates[i]
		priority := freshness.PriorityForDemand(snap.Demand)
		if !freshness.IsDue(&snap.LastUpdated, priority, now) {
			continue
		}

		if _, err := e.store.EnqueueRefresh(
			ctx, snap.Keyword, snap.Marketplace, priority, nil,
		); err != nil {
			return enqueued, fmt.Errorf("enqueueing sweep refresh: %w", err)
		}

		metrics.EnqueuesTotal.WithLabelValues("system").Inc()
		enqueued++
	}

	if enqueued > 0 {
		e.log.Info("policy sweep enqueued refreshes",
			"examined", len(candidates),
			"enqueued", enqueued,
		)
	}

	return enqueued, nil
}

// RunReclaim returns stuck processing entries to pending so a crashed
// worker cannot strand them. Returns the number reclaimed.
func (e *Engine) RunReclaim(ctx context.Context) (int, error) {
	n, err := e.store.ReclaimStuck(ctx, e.reclaimAfter)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stuck entries: %w", err)
	}
	if n > 0 {
		metrics.EntriesReclaimedTotal.Add(float64(n))
		e.log.Warn("reclaimed stuck queue entries", "count", n)
	}
	return n, nil
}

func (e *Engine) updateQueueDepth(ctx context.Context) {
	counts, err := e.store.CountQueueByState(ctx)
	if err != nil {
		e.log.Debug("queue depth refresh failed", "error", err)
		return
	}
	for _, state := range []domain.QueueState{
		domain.StatePending, domain.StateProcessing,
		domain.StateCompleted, domain.StateFailed,
	} {
		metrics.QueueDepth.WithLabelValues(string(state)).Set(float64(counts[state]))
	}
}
