package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/request"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/services/agent"
)

// AgentHandler handles agent registration and verification endpoints
type AgentHandler struct {
	agentService *agent.Service
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agentService *agent.Service) *AgentHandler {
	return &AgentHandler{
		agentService: agentService,
	}
}

// Register handles POST /api/v1/agents/register. The API key in the
// response is shown exactly once.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	registration, err := h.agentService.Register(r.Context(), req.AgentName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, registration)
}

// Claim handles POST /api/v1/agents/claim/{code}
func (h *AgentHandler) Claim(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req request.ClaimAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.TweetURL == "" {
		WriteError(w, NewInvalidRequestError("tweet_url is required"))
		return
	}

	claimed, err := h.agentService.Claim(r.Context(), code, req.TweetURL)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AgentStatusFromModel(claimed))
}

// Status handles GET /api/v1/agents/{agent_name}
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	agentName := mux.Vars(r)["agent_name"]

	status, err := h.agentService.Status(r.Context(), agentName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AgentStatusFromModel(status))
}
