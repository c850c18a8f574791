package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/api/response"
)

// awaitTimeout caps how long Await holds a connection. Lifecycle workflows
// sleep on day-scale renewal timers and will rarely finish inside it.
const awaitTimeout = 2 * time.Minute

type Workflow struct {
	tc temporalclient.Client
}

func NewWorkflow(tc temporalclient.Client) *Workflow {
	return &Workflow{tc: tc}
}

// Await godoc
//
//	@Summary		Await workflow completion
//	@Description	Blocks until the Temporal workflow completes. Returns 404 when it never becomes visible and 504 when it is still running at the deadline.
//	@Tags			Workflows
//	@Security		ApiKeyAuth
//	@Param			workflowID path string true "Workflow ID"
//	@Success		200 {object} map[string]string
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Failure		504 {object} response.ErrorResponse
//	@Router			/workflows/{workflowID}/await [get]
func (h *Workflow) Await(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	if workflowID == "" {
		response.WriteError(w, http.StatusBadRequest, "missing workflow ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), awaitTimeout)
	defer cancel()

	for attempt := range 20 {
		run := h.tc.GetWorkflow(ctx, workflowID, "")
		err := run.Get(ctx, nil)
		if err == nil {
			response.WriteJSON(w, http.StatusOK, map[string]string{"status": "completed"})
			return
		}
		if ctx.Err() != nil {
			response.WriteError(w, http.StatusGatewayTimeout, "timed out waiting for workflow "+workflowID)
			return
		}
		if !isWorkflowNotFound(err) {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// Not-found is retried briefly: a renewal spawned by the hourly
		// scan may not have started when the client begins waiting.
		if attempt == 19 {
			break
		}
		select {
		case <-ctx.Done():
			response.WriteError(w, http.StatusGatewayTimeout, "timed out waiting for workflow "+workflowID)
			return
		case <-time.After(time.Duration(min(1000, 100*(1<<attempt))) * time.Millisecond):
		}
	}

	response.WriteError(w, http.StatusNotFound, "workflow not found: "+workflowID)
}

func isWorkflowNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no rows")
}
