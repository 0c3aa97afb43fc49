package api

import (
	"context"
	"net/http"

	"github.com/Beyllin/link/internal/api/shared"
	"github.com/Beyllin/link/internal/restart"
)

// Restarter runs the full restart sequence.
type Restarter interface {
	Restart(ctx context.Context, owner string) string
}

// RestartHandler serves POST /api/restart.
type RestartHandler struct {
	restarter Restarter
}

// NewRestartHandler creates a new RestartHandler.
func NewRestartHandler(restarter Restarter) *RestartHandler {
	return &RestartHandler{restarter: restarter}
}

// Restart runs the restart synchronously and returns its report. A request
// arriving while another restart runs gets 409.
func (h *RestartHandler) Restart(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.GetOwner(r.Context())

	report := h.restarter.Restart(r.Context(), owner)
	if report == restart.MsgInProgress {
		shared.RespondWithErrorAndLog(w, r, http.StatusConflict, report, restart.ErrRestartInProgress)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RestartResponse{Report: report})
}
