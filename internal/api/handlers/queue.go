package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerscope/sellerscope/internal/store"
	domain "github.com/sellerscope/sellerscope/pkg/types"
)

// QueueReader defines the store methods required by the queue handler.
type QueueReader interface {
	GetQueueEntry(ctx context.Context, id string) (*domain.QueueEntry, error)
	ListQueueEntries(
		ctx context.Context,
		state domain.QueueState,
		limit int,
	) ([]domain.QueueEntry, error)
	CountQueueByState(ctx context.Context) (map[domain.QueueState]int, error)
}

// QueueHandler handles refresh queue inspection endpoints.
type QueueHandler struct {
	store QueueReader
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(s QueueReader) *QueueHandler {
	return &QueueHandler{store: s}
}

const defaultQueueListLimit = 50

// --- Input/Output types ---

// ListQueueInput is the input for listing queue entries.
type ListQueueInput struct {
	State string `query:"state" doc:"Queue state to list"          enum:"pending,processing,completed,failed,"`
	Limit int    `query:"limit" doc:"Number of results (default 50)" minimum:"1" maximum:"500"`
}

// ListQueueOutput is the response for listing queue entries.
type ListQueueOutput struct {
	Body struct {
		Entries []domain.QueueEntry       `json:"entries"`
		Counts  map[domain.QueueState]int `json:"counts"`
	}
}

// GetQueueEntryInput is the input for getting a single queue entry.
type GetQueueEntryInput struct {
	ID string `path:"id" doc:"Queue entry UUID"`
}

// GetQueueEntryOutput is the response for getting a single queue entry.
type GetQueueEntryOutput struct {
	Body domain.QueueEntry
}

// --- Handlers ---

// ListQueue returns queue entries in a given state (pending by default)
// plus entry counts for every state.
func (h *QueueHandler) ListQueue(
	ctx context.Context,
	input *ListQueueInput,
) (*ListQueueOutput, error) {
	state := domain.QueueState(input.State)
	if input.State == "" {
		state = domain.StatePending
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultQueueListLimit
	}

	entries, err := h.store.ListQueueEntries(ctx, state, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("queue query failed: " + err.Error())
	}
	if entries == nil {
		entries = []domain.QueueEntry{}
	}

	counts, err := h.store.CountQueueByState(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("queue count failed: " + err.Error())
	}

	resp := &ListQueueOutput{}
	resp.Body.Entries = entries
	resp.Body.Counts = counts

	return resp, nil
}

// GetQueueEntry returns a single queue entry by ID.
func (h *QueueHandler) GetQueueEntry(
	ctx context.Context,
	input *GetQueueEntryInput,
) (*GetQueueEntryOutput, error) {
	entry, err := h.store.GetQueueEntry(ctx, input.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("queue entry not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("queue lookup failed: " + err.Error())
	}

	return &GetQueueEntryOutput{Body: *entry}, nil
}

// RegisterQueueRoutes registers queue inspection endpoints with the Huma API.
func RegisterQueueRoutes(api huma.API, h *QueueHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-queue",
		Method:      http.MethodGet,
		Path:        "/api/v1/queue",
		Summary:     "List refresh queue entries",
		Description: "Returns queue entries in a given state plus counts per state.",
		Tags:        []string{"queue"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListQueue)

	huma.Register(api, huma.Operation{
		OperationID: "get-queue-entry",
		Method:      http.MethodGet,
		Path:        "/api/v1/queue/{id}",
		Summary:     "Get a queue entry by ID",
		Description: "Returns a single refresh queue entry by its UUID.",
		Tags:        []string{"queue"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetQueueEntry)
}
