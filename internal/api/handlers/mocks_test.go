package handlers_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/sellerscope/sellerscope/internal/quota"
	"github.com/sellerscope/sellerscope/internal/store"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockSnapshotReader struct {
	mock.Mock
}

func (m *mockSnapshotReader) GetSnapshot(
	ctx context.Context,
	keyword, marketplace string,
) (*domain.Snapshot, error) {
	args := m.Called(ctx, keyword, marketplace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *mockSnapshotReader) RecordSnapshotDemand(
	ctx context.Context,
	keyword, marketplace string,
) error {
	return m.Called(ctx, keyword, marketplace).Error(0)
}

func (m *mockSnapshotReader) ListSnapshots(
	ctx context.Context,
	opts *store.SnapshotQuery,
) ([]domain.Snapshot, int, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Snapshot), args.Int(1), args.Error(2)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RequestSystem(
	ctx context.Context,
	keyword, marketplace string,
) (string, error) {
	args := m.Called(ctx, keyword, marketplace)
	return args.String(0), args.Error(1)
}

func (m *mockRefresher) RequestManual(
	ctx context.Context,
	keyword, marketplace, userID string,
) (string, quota.Status, error) {
	args := m.Called(ctx, keyword, marketplace, userID)
	return args.String(0), args.Get(1).(quota.Status), args.Error(2)
}

type mockQueueReader struct {
	mock.Mock
}

func (m *mockQueueReader) GetQueueEntry(
	ctx context.Context,
	id string,
) (*domain.QueueEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueEntry), args.Error(1)
}

func (m *mockQueueReader) ListQueueEntries(
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

func (m *mockQueueReader) CountQueueByState(
	ctx context.Context,
) (map[domain.QueueState]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.QueueState]int), args.Error(1)
}

type mockQuotaChecker struct {
	mock.Mock
}

func (m *mockQuotaChecker) Check(ctx context.Context, userID string) quota.Status {
	args := m.Called(ctx, userID)
	return args.Get(0).(quota.Status)
}

type mockJobsProvider struct {
	mock.Mock
}

func (m *mockJobsProvider) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JobRun), args.Error(1)
}

func (m *mockJobsProvider) ListJobRuns(
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

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) RunCycle(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockEngine) RunPolicySweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
