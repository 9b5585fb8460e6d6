package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/middleware"
	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/puppet"
)

// PuppetHandler handles puppet registry endpoints
type PuppetHandler struct {
	puppetService *puppet.Service
}

// NewPuppetHandler creates a new puppet handler
func NewPuppetHandler(puppetService *puppet.Service) *PuppetHandler {
	return &PuppetHandler{
		puppetService: puppetService,
	}
}

// Register handles POST /api/v1/streams/{stream_id}/puppets
func (h *PuppetHandler) Register(w http.ResponseWriter, r *http.Request) {
	streamID := model.StreamID(mux.Vars(r)["stream_id"])

	var req request.RegisterPuppetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	registered, err := h.puppetService.RegisterOrRefresh(r.Context(), streamID, req.Name, req.AvatarURL, req.Color, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PuppetFromModel(registered))
}

// List handles GET /api/v1/streams/{stream_id}/puppets
func (h *PuppetHandler) List(w http.ResponseWriter, r *http.Request) {
	streamID := model.StreamID(mux.Vars(r)["stream_id"])

	puppets, err := h.puppetService.List(r.Context(), streamID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PuppetListFromModel(puppets))
}

// Get handles GET /api/v1/puppets/{puppet_id}
func (h *PuppetHandler) Get(w http.ResponseWriter, r *http.Request) {
	puppetID := model.PuppetID(mux.Vars(r)["puppet_id"])

	found, err := h.puppetService.Get(r.Context(), puppetID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PuppetFromModel(found))
}

// Claim handles POST /api/v1/puppets/{puppet_id}/claim
func (h *PuppetHandler) Claim(w http.ResponseWriter, r *http.Request) {
	puppetID := model.PuppetID(mux.Vars(r)["puppet_id"])
	user := middleware.MustGetUser(r.Context())

	claimed, err := h.puppetService.Claim(r.Context(), puppetID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HandlerFromModel(claimed))
}

// Unclaim handles DELETE /api/v1/puppets/{puppet_id}/claim
func (h *PuppetHandler) Unclaim(w http.ResponseWriter, r *http.Request) {
	puppetID := model.PuppetID(mux.Vars(r)["puppet_id"])
	user := middleware.MustGetUser(r.Context())

	removed, err := h.puppetService.Unclaim(r.Context(), puppetID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UnclaimResponse{Removed: removed})
}

// SetVisibility handles PATCH /api/v1/puppets/{puppet_id}/visibility
func (h *PuppetHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	puppetID := model.PuppetID(mux.Vars(r)["puppet_id"])

	var req request.SetVisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	updated, err := h.puppetService.SetVisibility(r.Context(), puppetID, user.ID, model.VisibilityMode(req.VisibilityMode), req.RecentHandlerWindowHours)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PuppetFromModel(updated))
}

// Handlers handles GET /api/v1/puppets/{puppet_id}/handlers
func (h *PuppetHandler) Handlers(w http.ResponseWriter, r *http.Request) {
	puppetID := model.PuppetID(mux.Vars(r)["puppet_id"])

	handlers, err := h.puppetService.Handlers(r.Context(), puppetID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HandlerListFromModel(handlers))
}
