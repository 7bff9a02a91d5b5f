package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerscope/sellerscope/internal/store"
	"github.com/sellerscope/sellerscope/pkg/freshness"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// SnapshotReader defines the store methods required by the snapshots
// handler.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, keyword, marketplace string) (*domain.Snapshot, error)
	RecordSnapshotDemand(ctx context.Context, keyword, marketplace string) error
	ListSnapshots(ctx context.Context, opts *store.SnapshotQuery) ([]domain.Snapshot, int, error)
}

// SystemRefresher triggers system-originated refreshes.
type SystemRefresher interface {
	RequestSystem(ctx context.Context, keyword, marketplace string) (string, error)
}

// SnapshotsHandler handles snapshot read endpoints.
type SnapshotsHandler struct {
	store     SnapshotReader
	refresher SystemRefresher
	log       *slog.Logger
	nowFunc   func() time.Time
}

// NewSnapshotsHandler creates a new SnapshotsHandler.
func NewSnapshotsHandler(
	s SnapshotReader,
	r SystemRefresher,
	log *slog.Logger,
) *SnapshotsHandler {
	return &SnapshotsHandler{
		store:     s,
		refresher: r,
		log:       log,
		nowFunc:   time.Now,
	}
}

// --- Input/Output types ---

// GetSnapshotInput identifies one keyword snapshot.
type GetSnapshotInput struct {
	Marketplace string `path:"marketplace" doc:"Marketplace domain (e.g. us, de)"`
	Keyword     string `path:"keyword"     doc:"Search keyword (URL-encoded)"`
}

// GetSnapshotOutput is the response for a snapshot lookup.
type GetSnapshotOutput struct {
	Body struct {
		domain.Snapshot
		Stale         bool `json:"stale"          doc:"Whether the snapshot is past its refresh interval"`
		RefreshQueued bool `json:"refresh_queued" doc:"Whether this request queued a background refresh"`
	}
}

// ListSnapshotsInput is the input for listing snapshots with filters.
type ListSnapshotsInput struct {
	Marketplace string `query:"marketplace" doc:"Filter by marketplace"`
	MinDemand   int    `query:"min_demand"  doc:"Minimum demand counter"         minimum:"0"`
	WithData    bool   `query:"with_data"   doc:"Only snapshots built from a viable listing sample"`
	Limit       int    `query:"limit"       doc:"Number of results (default 50)" minimum:"1" maximum:"500"`
	Offset      int    `query:"offset"      doc:"Pagination offset"              minimum:"0"`
	OrderBy     string `query:"order_by"    doc:"Sort field"                     enum:"last_updated,demand,avg_price,"`
}

// ListSnapshotsOutput is the response for listing snapshots.
type ListSnapshotsOutput struct {
	Body struct {
		Snapshots []domain.Snapshot `json:"snapshots"`
		Total     int               `json:"total"`
		Limit     int               `json:"limit"`
		Offset    int               `json:"offset"`
	}
}

// --- Handlers ---

// GetSnapshot returns the materialized snapshot for a keyword. Every
// read bumps the demand counter. A stale or missing snapshot queues a
// background refresh; the read itself never blocks on the provider.
func (h *SnapshotsHandler) GetSnapshot(
	ctx context.Context,
	input *GetSnapshotInput,
) (*GetSnapshotOutput, error) {
	keyword := domain.NormalizeKeyword(input.Keyword)
	marketplace := domain.NormalizeMarketplace(input.Marketplace)
	if keyword == "" {
		return nil, huma.Error422UnprocessableEntity("keyword must not be empty")
	}

	snap, err := h.store.GetSnapshot(ctx, keyword, marketplace)
	if errors.Is(err, store.ErrNotFound) {
		if _, qErr := h.refresher.RequestSystem(ctx, keyword, marketplace); qErr != nil {
			h.log.Error("queueing first refresh failed",
				"keyword", keyword,
				"marketplace", marketplace,
				"error", qErr,
			)
			return nil, huma.Error404NotFound("no snapshot for this keyword yet")
		}
		return nil, huma.Error404NotFound("no snapshot for this keyword yet, refresh queued")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("snapshot lookup failed: " + err.Error())
	}

	if err := h.store.RecordSnapshotDemand(ctx, keyword, marketplace); err != nil {
		// Demand only steers refresh cadence; a failed bump must not
		// fail the read.
		h.log.Warn("demand bump failed", "keyword", keyword, "error", err)
	}

	resp := &GetSnapshotOutput{}
	resp.Body.Snapshot = *snap

	priority := freshness.PriorityForDemand(snap.Demand)
	if freshness.IsDue(&snap.LastUpdated, priority, h.nowFunc()) {
		resp.Body.Stale = true
		if _, qErr := h.refresher.RequestSystem(ctx, keyword, marketplace); qErr != nil {
			h.log.Warn("queueing stale refresh failed",
				"keyword", keyword,
				"error", qErr,
			)
		} else {
			resp.Body.RefreshQueued = true
		}
	}

	return resp, nil
}

// ListSnapshots returns snapshots with optional filters for marketplace,
// demand, and pagination.
func (h *SnapshotsHandler) ListSnapshots(
	ctx context.Context,
	input *ListSnapshotsInput,
) (*ListSnapshotsOutput, error) {
	q := &store.SnapshotQuery{
		WithData: input.WithData,
		Offset:   input.Offset,
		OrderBy:  input.OrderBy,
	}

	if input.Marketplace != "" {
		m := domain.NormalizeMarketplace(input.Marketplace)
		q.Marketplace = &m
	}

	if input.MinDemand != 0 {
		q.MinDemand = &input.MinDemand
	}

	if input.Limit != 0 {
		q.Limit = input.Limit
	}

	snaps, total, err := h.store.ListSnapshots(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("snapshot query failed: " + err.Error())
	}

	if snaps == nil {
		snaps = []domain.Snapshot{}
	}

	resp := &ListSnapshotsOutput{}
	resp.Body.Snapshots = snaps
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// RegisterSnapshotRoutes registers snapshot endpoints with the Huma API.
func RegisterSnapshotRoutes(api huma.API, h *SnapshotsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots",
		Summary:     "List keyword snapshots",
		Description: "Returns snapshots with optional filters for marketplace, demand, and pagination.",
		Tags:        []string{"snapshots"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListSnapshots)

	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots/{marketplace}/{keyword}",
		Summary:     "Get a keyword snapshot",
		Description: "Returns the materialized snapshot for one keyword and marketplace. " +
			"Stale or missing snapshots queue a background refresh.",
		Tags:   []string{"snapshots"},
		Errors: []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.GetSnapshot)
}
