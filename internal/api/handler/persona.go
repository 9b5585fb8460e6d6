package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/middleware"
	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/persona"
)

// PersonaHandler handles persona endpoints
type PersonaHandler struct {
	personaService *persona.Service
}

// NewPersonaHandler creates a new persona handler
func NewPersonaHandler(personaService *persona.Service) *PersonaHandler {
	return &PersonaHandler{
		personaService: personaService,
	}
}

// List handles GET /api/v1/personas
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	personas, err := h.personaService.List(r.Context(), user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PersonaListFromModel(personas))
}

// Create handles POST /api/v1/personas
func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	created, err := h.personaService.Create(r.Context(), user.ID, req.Name, req.AvatarURL, req.Color, req.Bio)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PersonaFromModel(created))
}

// Get handles GET /api/v1/personas/{persona_id}
func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	personaID := model.PersonaID(mux.Vars(r)["persona_id"])
	user := middleware.MustGetUser(r.Context())

	found, err := h.personaService.Get(r.Context(), personaID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PersonaFromModel(found))
}

// Update handles PATCH /api/v1/personas/{persona_id}
func (h *PersonaHandler) Update(w http.ResponseWriter, r *http.Request) {
	personaID := model.PersonaID(mux.Vars(r)["persona_id"])

	var req request.UpdatePersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	updated, err := h.personaService.Update(r.Context(), personaID, user.ID, persona.UpdateRequest{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Color:     req.Color,
		Bio:       req.Bio,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PersonaFromModel(updated))
}

// Delete handles DELETE /api/v1/personas/{persona_id}
func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	personaID := model.PersonaID(mux.Vars(r)["persona_id"])
	user := middleware.MustGetUser(r.Context())

	if err := h.personaService.Delete(r.Context(), personaID, user.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
