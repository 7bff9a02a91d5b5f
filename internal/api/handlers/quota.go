package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerscope/sellerscope/internal/quota"
)

// QuotaChecker answers quota questions for a user.
type QuotaChecker interface {
	Check(ctx context.Context, userID string) quota.Status
}

// QuotaHandler provides the manual refresh quota endpoint.
type QuotaHandler struct {
	guard QuotaChecker
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(g QuotaChecker) *QuotaHandler {
	return &QuotaHandler{guard: g}
}

// GetQuotaInput identifies the user whose quota to report.
type GetQuotaInput struct {
	UserID string `path:"user_id" doc:"User id"`
}

// GetQuotaOutput is the response body for the quota endpoint.
type GetQuotaOutput struct {
	Body struct {
		DailyLimit int       `json:"daily_limit" example:"10"                   doc:"Manual refreshes allowed per UTC day"`
		Used       int       `json:"used"        example:"3"                    doc:"Manual refreshes used today"`
		Remaining  int       `json:"remaining"   example:"7"                    doc:"Manual refreshes remaining today"`
		ResetsAt   time.Time `json:"resets_at"   example:"2026-08-25T00:00:00Z" doc:"Next UTC midnight, when the quota resets"`
	}
}

// GetQuota returns the user's manual refresh quota status for the
// current UTC day.
func (h *QuotaHandler) GetQuota(
	ctx context.Context,
	input *GetQuotaInput,
) (*GetQuotaOutput, error) {
	status := h.guard.Check(ctx, input.UserID)

	resp := &GetQuotaOutput{}
	resp.Body.DailyLimit = status.Limit
	resp.Body.Used = status.Used
	resp.Body.Remaining = status.Remaining
	resp.Body.ResetsAt = status.ResetsAt

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota/{user_id}",
		Summary:     "Get manual refresh quota status",
		Description: "Returns the user's manual refresh usage, remaining budget, and reset time.",
		Tags:        []string{"refresh"},
	}, h.GetQuota)
}
