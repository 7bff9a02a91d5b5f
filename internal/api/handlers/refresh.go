package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerscope/sellerscope/internal/quota"
	"github.com/sellerscope/sellerscope/internal/refresh"
	"github.com/sellerscope/sellerscope/internal/store"
)

// ManualRefresher triggers user-requested refreshes.
type ManualRefresher interface {
	RequestManual(
		ctx context.Context,
		keyword, marketplace, userID string,
	) (string, quota.Status, error)
}

// RefreshHandler handles manual refresh requests.
type RefreshHandler struct {
	requester ManualRefresher
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(r ManualRefresher) *RefreshHandler {
	return &RefreshHandler{requester: r}
}

// --- Input/Output types ---

// RequestRefreshInput is the request body for a manual refresh.
type RequestRefreshInput struct {
	Body struct {
		Keyword     string `json:"keyword"     doc:"Search keyword"                 minLength:"1" maxLength:"200"`
		Marketplace string `json:"marketplace" doc:"Marketplace domain (e.g. us)"   minLength:"1" maxLength:"32"`
		UserID      string `json:"user_id"     doc:"Requesting user id"             minLength:"1" maxLength:"64"`
	}
}

// RequestRefreshOutput is the response for an accepted manual refresh.
type RequestRefreshOutput struct {
	Status int
	Body   struct {
		QueueID        string    `json:"queue_id"        doc:"Refresh queue entry id"`
		QuotaRemaining int       `json:"quota_remaining" doc:"Manual refreshes left today"`
		QuotaResetsAt  time.Time `json:"quota_resets_at" doc:"Next UTC midnight, when the quota resets"`
	}
}

// --- Handlers ---

// RequestRefresh enqueues a user-triggered refresh at top priority.
// Returns 202 on acceptance, 429 when the user's daily quota is spent,
// and 503 when the queue cannot accept work.
func (h *RefreshHandler) RequestRefresh(
	ctx context.Context,
	input *RequestRefreshInput,
) (*RequestRefreshOutput, error) {
	id, status, err := h.requester.RequestManual(
		ctx, input.Body.Keyword, input.Body.Marketplace, input.Body.UserID,
	)

	var quotaErr *refresh.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		return nil, huma.Error429TooManyRequests(quotaErr.Error())
	case errors.Is(err, refresh.ErrInvalidKeyword):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, store.ErrQueueUnavailable):
		return nil, huma.Error503ServiceUnavailable("refresh queue unavailable, try again later")
	case err != nil:
		return nil, huma.Error500InternalServerError("refresh request failed: " + err.Error())
	}

	resp := &RequestRefreshOutput{Status: http.StatusAccepted}
	resp.Body.QueueID = id
	resp.Body.QuotaRemaining = status.Remaining
	resp.Body.QuotaResetsAt = status.ResetsAt

	return resp, nil
}

// RegisterRefreshRoutes registers the manual refresh endpoint with the
// Huma API.
func RegisterRefreshRoutes(api huma.API, h *RefreshHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "request-refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/refresh",
		Summary:     "Request a manual refresh",
		Description: "Enqueues a top-priority refresh for a keyword. Each user gets a " +
			"limited number of manual refreshes per UTC day.",
		Tags: []string{"refresh"},
		Errors: []int{
			http.StatusTooManyRequests,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, h.RequestRefresh)
}
