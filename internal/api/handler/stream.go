package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/middleware"
	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/stream"
)

// StreamHandler handles stream endpoints
type StreamHandler struct {
	streamService *stream.Service
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(streamService *stream.Service) *StreamHandler {
	return &StreamHandler{
		streamService: streamService,
	}
}

// Create handles POST /api/v1/streams
func (h *StreamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	created, err := h.streamService.Create(r.Context(), req.Name, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.StreamFromModel(created))
}

// Get handles GET /api/v1/streams/{stream_id}
func (h *StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	streamID := model.StreamID(mux.Vars(r)["stream_id"])

	found, err := h.streamService.Get(r.Context(), streamID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StreamFromModel(found))
}

// List handles GET /api/v1/streams
func (h *StreamHandler) List(w http.ResponseWriter, r *http.Request) {
	streams, err := h.streamService.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.Stream, len(streams))
	for i, s := range streams {
		out[i] = response.StreamFromModel(s)
	}
	response.JSON(w, http.StatusOK, map[string][]response.Stream{"streams": out})
}
