package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/groups"
	"github.com/whisperhq/whisperd/internal/dependencies/random"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/services/agent"
	"github.com/whisperhq/whisperd/internal/services/auth"
	"github.com/whisperhq/whisperd/internal/services/message"
	"github.com/whisperhq/whisperd/internal/services/persona"
	"github.com/whisperhq/whisperd/internal/services/puppet"
	"github.com/whisperhq/whisperd/internal/services/reclaimer"
	"github.com/whisperhq/whisperd/internal/services/stream"
	"github.com/whisperhq/whisperd/internal/services/whisper"
	"github.com/whisperhq/whisperd/internal/storage"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	redisstorage "github.com/whisperhq/whisperd/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Groups groups.Directory

	// Services
	AuthService      *auth.Service
	AgentService     *agent.Service
	StreamService    *stream.Service
	PuppetService    *puppet.Service
	WhisperService   *whisper.Service
	MessageService   *message.Service
	PersonaService   *persona.Service
	ReclaimerService *reclaimer.Service
	EventBus         *events.Bus
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// BaseURL is the public URL agent claim links are built against
	BaseURL string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()
	dir := groups.NewStatic()

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return newWithDependencies(store, clk, rnd, dir, http.DefaultClient, baseURL, authCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, dir groups.Directory, httpClient *http.Client, baseURL string, authCfg auth.Config, logger *slog.Logger) *App {
	// Create services
	bus := events.NewBus(logger)
	authService := auth.New(store, clk, authCfg)
	agentService := agent.New(store, clk, rnd, httpClient, baseURL, logger)
	streamService := stream.New(store, clk, rnd, logger)
	puppetService := puppet.New(store, bus, clk, rnd, logger)
	whisperService := whisper.New(store, dir, clk, logger)
	messageService := message.New(store, whisperService, puppetService, bus, clk, rnd, logger)
	personaService := persona.New(store, bus, clk, rnd, logger)
	reclaimerService := reclaimer.New(store, logger)

	return &App{
		Storage:          store,
		Clock:            clk,
		Random:           rnd,
		Groups:           dir,
		AuthService:      authService,
		AgentService:     agentService,
		StreamService:    streamService,
		PuppetService:    puppetService,
		WhisperService:   whisperService,
		MessageService:   messageService,
		PersonaService:   personaService,
		ReclaimerService: reclaimerService,
		EventBus:         bus,
	}
}
