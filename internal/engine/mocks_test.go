package engine

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sellerscope/sellerscope/internal/provider"
	"github.com/sellerscope/sellerscope/internal/store"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore is a hand-written testify mock of store.Store.
type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) EnqueueRefresh(
	ctx context.Context,
	keyword, marketplace string,
	priority int,
	requestedBy *string,
) (string, error) {
	args := m.Called(ctx, keyword, marketplace, priority, requestedBy)
	return args.String(0), args.Error(1)
}

func (m *mockStore) ClaimBatch(
	ctx context.Context,
	workerID string,
	limit int,
) ([]domain.QueueEntry, error) {
	args := m.Called(ctx, workerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueEntry), args.Error(1)
}

func (m *mockStore) CompleteEntry(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) FailEntry(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockStore) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) GetQueueEntry(ctx context.Context, id string) (*domain.QueueEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueEntry), args.Error(1)
}

func (m *mockStore) ListQueueEntries(
	ctx context.Context,
	state domain.QueueState,
	limit int,
) ([]domain.QueueEntry, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueEntry), args.Error(1)
}

func (m *mockStore) CountQueueByState(ctx context.Context) (map[domain.QueueState]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.QueueState]int), args.Error(1)
}

func (m *mockStore) CountManualEnqueues(
	ctx context.Context,
	userID string,
	since time.Time,
) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) GetSnapshot(
	ctx context.Context,
	keyword, marketplace string,
) (*domain.Snapshot, error) {
	args := m.Called(ctx, keyword, marketplace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *mockStore) PutSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockStore) RecordSnapshotDemand(ctx context.Context, keyword, marketplace string) error {
	return m.Called(ctx, keyword, marketplace).Error(0)
}

func (m *mockStore) ListSnapshots(
	ctx context.Context,
	opts *store.SnapshotQuery,
) ([]domain.Snapshot, int, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Snapshot), args.Int(1), args.Error(2)
}

func (m *mockStore) ListRefreshCandidates(
	ctx context.Context,
	limit int,
) ([]domain.Snapshot, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Snapshot), args.Error(1)
}

func (m *mockStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	args := m.Called(ctx, jobName)
	return args.String(0), args.Error(1)
}

func (m *mockStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	return m.Called(ctx, id, status, errText, rowsAffected).Error(0)
}

func (m *mockStore) ListJobRuns(
	ctx context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	args := m.Called(ctx, jobName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JobRun), args.Error(1)
}

func (m *mockStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JobRun), args.Error(1)
}

func (m *mockStore) RecoverStaleJobRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	args := m.Called(ctx, jobName, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ReleaseSchedulerLock(ctx context.Context, jobName, holder string) error {
	return m.Called(ctx, jobName, holder).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// mockProvider is a hand-written testify mock of provider.Client.
type mockProvider struct {
	mock.Mock
}

var _ provider.Client = (*mockProvider)(nil)

func (m *mockProvider) FetchListings(
	ctx context.Context,
	req provider.FetchRequest,
) ([]domain.Listing, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Listing), args.Error(1)
}
