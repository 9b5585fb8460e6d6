package handler

import (
	"encoding/json"
	"net/http"

	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/services/reclaimer"
)

// MaintenanceHandler handles operational maintenance endpoints
type MaintenanceHandler struct {
	reclaimerService *reclaimer.Service
	clock            clock.Clock
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(reclaimerService *reclaimer.Service, clk clock.Clock) *MaintenanceHandler {
	return &MaintenanceHandler{
		reclaimerService: reclaimerService,
		clock:            clk,
	}
}

// SweepHandlers handles POST /api/v1/maintenance/sweep-handlers.
// An empty or absent body is a dry run; {"commit": true} deletes.
func (h *MaintenanceHandler) SweepHandlers(w http.ResponseWriter, r *http.Request) {
	var req request.SweepRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, NewInvalidRequestError("invalid request body"))
			return
		}
	}

	stale, err := h.reclaimerService.Sweep(r.Context(), h.clock.Now(), req.Commit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SweepResponse{
		Stale:     stale,
		Committed: req.Commit,
	})
}
