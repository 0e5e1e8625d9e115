package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/sale-monitor/pkg/types"
)

// Cycler defines the interface for triggering a monitoring cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (domain.CycleSummary, error)
}

// CheckHandler handles manual cycle trigger requests.
type CheckHandler struct {
	cycler Cycler
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(c Cycler) *CheckHandler {
	return &CheckHandler{cycler: c}
}

// CheckOutput is the response body for the check endpoint.
type CheckOutput struct {
	Body struct {
		Status  string              `json:"status" example:"cycle completed" doc:"Cycle status"`
		Summary domain.CycleSummary `json:"summary" doc:"Checked/notified/failed counts"`
	}
}

// Check runs one monitoring cycle synchronously and returns its summary.
func (h *CheckHandler) Check(ctx context.Context, _ *struct{}) (*CheckOutput, error) {
	summary, err := h.cycler.RunCycle(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("cycle failed: " + err.Error())
	}

	resp := &CheckOutput{}
	resp.Body.Status = "cycle completed"
	resp.Body.Summary = summary
	return resp, nil
}

// RegisterTriggerRoutes registers the manual check endpoint with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-check",
		Method:      http.MethodPost,
		Path:        "/api/v1/checks",
		Summary:     "Trigger a monitoring cycle",
		Description: "Runs one full cycle over all enabled products: extract, decide, persist, notify.",
		Tags:        []string{"checks"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Check)
}
