package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/whisperhq/whisperd/internal/api/handler"
	"github.com/whisperhq/whisperd/internal/api/middleware"
	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/services/agent"
	"github.com/whisperhq/whisperd/internal/services/auth"
	"github.com/whisperhq/whisperd/internal/services/message"
	"github.com/whisperhq/whisperd/internal/services/persona"
	"github.com/whisperhq/whisperd/internal/services/puppet"
	"github.com/whisperhq/whisperd/internal/services/reclaimer"
	"github.com/whisperhq/whisperd/internal/services/stream"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	Clock            clock.Clock
	AuthService      *auth.Service
	AgentService     *agent.Service
	StreamService    *stream.Service
	PuppetService    *puppet.Service
	MessageService   *message.Service
	PersonaService   *persona.Service
	ReclaimerService *reclaimer.Service
	EventBus         *events.Bus
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.AuthService)
	agentHandler := handler.NewAgentHandler(cfg.AgentService)
	streamHandler := handler.NewStreamHandler(cfg.StreamService)
	puppetHandler := handler.NewPuppetHandler(cfg.PuppetService)
	messageHandler := handler.NewMessageHandler(cfg.MessageService)
	personaHandler := handler.NewPersonaHandler(cfg.PersonaService)
	maintenanceHandler := handler.NewMaintenanceHandler(cfg.ReclaimerService, cfg.Clock)
	eventsHandler := handler.NewEventsHandler(cfg.EventBus)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService, cfg.AgentService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// User routes (no auth required for registering/logging in)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	userProtected := api.PathPrefix("/users").Subrouter()
	userProtected.Use(authMiddleware)
	userProtected.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	userProtected.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)

	// Agent routes (registration and claiming happen before the agent
	// has credentials; status is public)
	api.HandleFunc("/agents/register", agentHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/agents/claim/{code}", agentHandler.Claim).Methods(http.MethodPost)
	api.HandleFunc("/agents/{agent_name}", agentHandler.Status).Methods(http.MethodGet)

	// Stream routes (all require auth)
	streams := api.PathPrefix("/streams").Subrouter()
	streams.Use(authMiddleware)
	streams.HandleFunc("", streamHandler.Create).Methods(http.MethodPost)
	streams.HandleFunc("", streamHandler.List).Methods(http.MethodGet)
	streams.HandleFunc("/{stream_id}", streamHandler.Get).Methods(http.MethodGet)
	streams.HandleFunc("/{stream_id}/puppets", puppetHandler.Register).Methods(http.MethodPost)
	streams.HandleFunc("/{stream_id}/puppets", puppetHandler.List).Methods(http.MethodGet)
	streams.HandleFunc("/{stream_id}/messages", messageHandler.ListStream).Methods(http.MethodGet)

	// Puppet routes (all require auth)
	puppets := api.PathPrefix("/puppets").Subrouter()
	puppets.Use(authMiddleware)
	puppets.HandleFunc("/{puppet_id}", puppetHandler.Get).Methods(http.MethodGet)
	puppets.HandleFunc("/{puppet_id}/claim", puppetHandler.Claim).Methods(http.MethodPost)
	puppets.HandleFunc("/{puppet_id}/claim", puppetHandler.Unclaim).Methods(http.MethodDelete)
	puppets.HandleFunc("/{puppet_id}/visibility", puppetHandler.SetVisibility).Methods(http.MethodPatch)
	puppets.HandleFunc("/{puppet_id}/handlers", puppetHandler.Handlers).Methods(http.MethodGet)

	// Message routes (all require auth)
	messages := api.PathPrefix("/messages").Subrouter()
	messages.Use(authMiddleware)
	messages.HandleFunc("", messageHandler.Send).Methods(http.MethodPost)
	messages.HandleFunc("/{message_id}", messageHandler.Get).Methods(http.MethodGet)

	// Persona routes (all require auth)
	personas := api.PathPrefix("/personas").Subrouter()
	personas.Use(authMiddleware)
	personas.HandleFunc("", personaHandler.List).Methods(http.MethodGet)
	personas.HandleFunc("", personaHandler.Create).Methods(http.MethodPost)
	personas.HandleFunc("/{persona_id}", personaHandler.Get).Methods(http.MethodGet)
	personas.HandleFunc("/{persona_id}", personaHandler.Update).Methods(http.MethodPatch)
	personas.HandleFunc("/{persona_id}", personaHandler.Delete).Methods(http.MethodDelete)

	// Maintenance routes (require auth)
	maintenance := api.PathPrefix("/maintenance").Subrouter()
	maintenance.Use(authMiddleware)
	maintenance.HandleFunc("/sweep-handlers", maintenanceHandler.SweepHandlers).Methods(http.MethodPost)

	// Event stream (requires auth)
	eventStream := api.PathPrefix("/events").Subrouter()
	eventStream.Use(authMiddleware)
	eventStream.HandleFunc("", eventsHandler.Stream).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
