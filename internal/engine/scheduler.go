package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/sellerscope/sellerscope/internal/metrics"
	"github.com/sellerscope/sellerscope/internal/store"
)

const (
	jobRefreshCycle = "refresh_cycle"
	jobPolicySweep  = "policy_sweep"
	jobQueueReclaim = "queue_reclaim"

	staleJobRunAge = 2 * time.Hour
)

// Scheduler runs the refresh cycle, policy sweep, and queue reclaim on
// intervals. Every run takes a database-backed lock first so multiple
// scheduler processes never execute the same job concurrently, and
// records itself in job_runs for operational visibility.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	store  store.Store
	holder string
	log    *slog.Logger

	cycleEntryID   cron.EntryID
	sweepEntryID   cron.EntryID
	reclaimEntryID cron.EntryID
}

// NewScheduler creates a Scheduler that runs engine jobs on the given
// intervals. A non-positive reclaimInterval disables the reclaim job.
func NewScheduler(
	eng *Engine,
	s store.Store,
	cycleInterval time.Duration,
	sweepInterval time.Duration,
	reclaimInterval time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	hostname, _ := os.Hostname()

	sched := &Scheduler{
		cron:   cron.New(),
		engine: eng,
		store:  s,
		holder: hostname + "-" + uuid.NewString(),
		log:    log,
	}

	var err error
	sched.cycleEntryID, err = sched.cron.AddFunc(
		"@every "+cycleInterval.String(),
		sched.runCycle,
	)
	if err != nil {
		return nil, fmt.Errorf("registering cycle job: %w", err)
	}

	sched.sweepEntryID, err = sched.cron.AddFunc(
		"@every "+sweepInterval.String(),
		sched.runSweep,
	)
	if err != nil {
		return nil, fmt.Errorf("registering sweep job: %w", err)
	}

	if reclaimInterval > 0 {
		sched.reclaimEntryID, err = sched.cron.AddFunc(
			"@every "+reclaimInterval.String(),
			sched.runReclaim,
		)
		if err != nil {
			return nil, fmt.Errorf("registering reclaim job: %w", err)
		}
	}

	return sched, nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "holder", s.holder)
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// SyncNextRunTimestamps exports each job's next scheduled run time.
func (s *Scheduler) SyncNextRunTimestamps() {
	for _, entry := range s.cron.Entries() {
		ts := float64(entry.Next.Unix())
		switch entry.ID {
		case s.cycleEntryID:
			metrics.SchedulerNextCycleTimestamp.Set(ts)
		case s.sweepEntryID:
			metrics.SchedulerNextSweepTimestamp.Set(ts)
		case s.reclaimEntryID:
			metrics.SchedulerNextReclaimTimestamp.Set(ts)
		}
	}
}

// RecoverStaleJobRuns marks job runs abandoned by a crashed process.
// Called once at startup, before the first scheduled run.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, staleJobRunAge)
	if err != nil {
		s.log.Error("recovering stale job runs failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("recovered stale job runs", "count", n)
	}
}

// runJob wraps one job execution with the scheduler lock and job_runs
// bookkeeping. The lock TTL bounds how long a crashed holder can block
// the job on other processes.
func (s *Scheduler) runJob(
	ctx context.Context,
	name string,
	lockTTL time.Duration,
	fn func(ctx context.Context) (int, error),
) error {
	acquired, err := s.store.AcquireSchedulerLock(ctx, name, s.holder, lockTTL)
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", name, err)
	}
	if !acquired {
		s.log.Debug("job lock held elsewhere, skipping", "job", name)
		return nil
	}
	defer func() {
		if err := s.store.ReleaseSchedulerLock(ctx, name, s.holder); err != nil {
			s.log.Error("releasing job lock failed", "job", name, "error", err)
		}
	}()

	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		return fmt.Errorf("recording job run for %s: %w", name, err)
	}

	rows, jobErr := fn(ctx)

	status, errText := "succeeded", ""
	if jobErr != nil {
		status, errText = "failed", jobErr.Error()
	}
	if err := s.store.CompleteJobRun(ctx, runID, status, errText, rows); err != nil {
		s.log.Error("completing job run failed", "job", name, "error", err)
	}

	return jobErr
}

func (s *Scheduler) runCycle() {
	ctx := context.Background()
	err := s.runJob(ctx, jobRefreshCycle, 10*time.Minute, s.engine.RunCycle)
	if err != nil {
		s.log.Error("scheduled refresh cycle failed", "error", err)
	}
	s.SyncNextRunTimestamps()
}

func (s *Scheduler) runSweep() {
	ctx := context.Background()
	err := s.runJob(ctx, jobPolicySweep, 10*time.Minute, s.engine.RunPolicySweep)
	if err != nil {
		s.log.Error("scheduled policy sweep failed", "error", err)
	}
	s.SyncNextRunTimestamps()
}

func (s *Scheduler) runReclaim() {
	ctx := context.Background()
	err := s.runJob(ctx, jobQueueReclaim, 5*time.Minute, s.engine.RunReclaim)
	if err != nil {
		s.log.Error("scheduled queue reclaim failed", "error", err)
	}
	s.SyncNextRunTimestamps()
}
