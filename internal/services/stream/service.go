package stream

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/random"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

const (
	idLength   = 12
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrInvalidStreamName is returned for empty or whitespace-only stream names
var ErrInvalidStreamName = errors.New("stream name must not be empty")

// Service manages streams
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new stream service
func New(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("service", "stream")),
	}
}

// Create registers a new stream
func (s *Service) Create(ctx context.Context, name string, creator model.UserID) (*model.Stream, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidStreamName
	}

	stream := &model.Stream{
		ID:        model.StreamID("str_" + s.random.String(idLength, idAlphabet)),
		Name:      name,
		CreatedBy: creator,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.SaveStream(ctx, stream); err != nil {
		return nil, err
	}

	s.logger.Info("stream created",
		slog.String("stream_id", string(stream.ID)),
		slog.String("name", name))
	return stream, nil
}

// Get returns a stream by ID
func (s *Service) Get(ctx context.Context, id model.StreamID) (*model.Stream, error) {
	return s.storage.GetStream(ctx, id)
}

// List returns all streams
func (s *Service) List(ctx context.Context) ([]*model.Stream, error) {
	return s.storage.ListStreams(ctx)
}
