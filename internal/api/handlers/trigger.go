package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerscope/sellerscope/internal/store"
)

// CycleRunner runs one worker refresh cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

// SweepRunner runs one staleness policy sweep.
type SweepRunner interface {
	RunPolicySweep(ctx context.Context) (int, error)
}

// TriggerHandler handles manual worker trigger requests. These exist
// for operators; routine runs come from the scheduler.
type TriggerHandler struct {
	cycles CycleRunner
	sweeps SweepRunner
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(c CycleRunner, s SweepRunner) *TriggerHandler {
	return &TriggerHandler{cycles: c, sweeps: s}
}

// TriggerCycleOutput is the response body for a triggered cycle.
type TriggerCycleOutput struct {
	Body struct {
		Status    string `json:"status"    example:"cycle completed" doc:"Cycle status"`
		Processed int    `json:"processed" example:"7"               doc:"Entries driven to a terminal state"`
	}
}

// TriggerSweepOutput is the response body for a triggered sweep.
type TriggerSweepOutput struct {
	Body struct {
		Status   string `json:"status"   example:"sweep completed" doc:"Sweep status"`
		Enqueued int    `json:"enqueued" example:"12"              doc:"Refreshes enqueued by the sweep"`
	}
}

// TriggerCycle runs one refresh cycle immediately.
func (h *TriggerHandler) TriggerCycle(ctx context.Context, _ *struct{}) (*TriggerCycleOutput, error) {
	n, err := h.cycles.RunCycle(ctx)
	if errors.Is(err, store.ErrQueueUnavailable) {
		return nil, huma.Error503ServiceUnavailable("refresh queue unavailable: " + err.Error())
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("cycle failed: " + err.Error())
	}

	resp := &TriggerCycleOutput{}
	resp.Body.Status = "cycle completed"
	resp.Body.Processed = n
	return resp, nil
}

// TriggerSweep runs one staleness policy sweep immediately.
func (h *TriggerHandler) TriggerSweep(ctx context.Context, _ *struct{}) (*TriggerSweepOutput, error) {
	n, err := h.sweeps.RunPolicySweep(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("sweep failed: " + err.Error())
	}

	resp := &TriggerSweepOutput{}
	resp.Body.Status = "sweep completed"
	resp.Body.Enqueued = n
	return resp, nil
}

// RegisterTriggerRoutes registers trigger endpoints with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *TriggerHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-cycle",
		Method:      http.MethodPost,
		Path:        "/api/v1/worker/cycle",
		Summary:     "Run a worker cycle now",
		Description: "Claims one batch of pending refreshes and processes it immediately.",
		Tags:        []string{"worker"},
		Errors:      []int{http.StatusInternalServerError, http.StatusServiceUnavailable},
	}, h.TriggerCycle)

	huma.Register(api, huma.Operation{
		OperationID: "trigger-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/worker/sweep",
		Summary:     "Run a policy sweep now",
		Description: "Re-evaluates snapshot staleness and enqueues due refreshes immediately.",
		Tags:        []string{"worker"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.TriggerSweep)
}
