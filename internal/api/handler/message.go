package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/middleware"
	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/message"
)

// MessageHandler handles message endpoints
type MessageHandler struct {
	messageService *message.Service
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *message.Service) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req request.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	kind := model.MessageKind(req.Kind)
	if kind == "" {
		kind = model.MessageKindChannel
	}
	if kind != model.MessageKindChannel && kind != model.MessageKindDirect {
		WriteError(w, NewInvalidRequestError("kind must be 'channel' or 'direct'"))
		return
	}
	if kind == model.MessageKindChannel && req.StreamID == "" {
		WriteError(w, NewInvalidRequestError("stream_id is required for channel messages"))
		return
	}
	if kind == model.MessageKindDirect && len(req.DirectTo) == 0 {
		WriteError(w, NewInvalidRequestError("direct_to is required for direct messages"))
		return
	}

	user := middleware.MustGetUser(r.Context())
	sent, err := h.messageService.Send(r.Context(), message.SendRequest{
		Kind:            kind,
		StreamID:        model.StreamID(req.StreamID),
		DirectTo:        toUserIDs(req.DirectTo),
		Sender:          user.ID,
		Topic:           req.Topic,
		Content:         req.Content,
		PuppetName:      req.PuppetName,
		PuppetAvatarURL: req.PuppetAvatarURL,
		PuppetColor:     req.PuppetColor,
		Whisper:         toWhisperDescriptor(req.Whisper),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MessageFromModel(sent))
}

// ListStream handles GET /api/v1/streams/{stream_id}/messages
func (h *MessageHandler) ListStream(w http.ResponseWriter, r *http.Request) {
	streamID := model.StreamID(mux.Vars(r)["stream_id"])
	user := middleware.MustGetUser(r.Context())

	msgs, err := h.messageService.ListStream(r.Context(), streamID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MessageListFromModel(msgs))
}

// Get handles GET /api/v1/messages/{message_id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	messageID := model.MessageID(mux.Vars(r)["message_id"])
	user := middleware.MustGetUser(r.Context())

	msg, err := h.messageService.Get(r.Context(), messageID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MessageFromModel(msg))
}

func toUserIDs(ids []string) []model.UserID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.UserID, len(ids))
	for i, id := range ids {
		out[i] = model.UserID(id)
	}
	return out
}

func toWhisperDescriptor(req *request.WhisperRequest) *model.WhisperDescriptor {
	if req == nil {
		return nil
	}
	desc := &model.WhisperDescriptor{}
	for _, id := range req.UserIDs {
		desc.UserIDs = append(desc.UserIDs, model.UserID(id))
	}
	for _, id := range req.GroupIDs {
		desc.GroupIDs = append(desc.GroupIDs, model.GroupID(id))
	}
	for _, id := range req.PuppetIDs {
		desc.PuppetIDs = append(desc.PuppetIDs, model.PuppetID(id))
	}
	return desc
}
