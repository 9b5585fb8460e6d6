package persona

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/random"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

const (
	idLength   = 12
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Validation errors for persona fields
var (
	ErrInvalidName = errors.New("persona name must be 1-100 characters")
	ErrBioTooLong  = errors.New("persona bio must be at most 500 characters")
)

// Service manages a user's personas. Personas are personal display
// identities with no access-control meaning; each user owns up to
// MaxPersonasPerUser active ones, uniquely named per user.
type Service struct {
	storage storage.Storage
	events  *events.Bus
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new persona service
func New(store storage.Storage, bus *events.Bus, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		events:  bus,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("service", "persona")),
	}
}

// List returns the user's active personas
func (s *Service) List(ctx context.Context, userID model.UserID) ([]*model.Persona, error) {
	personas, err := s.storage.ListPersonasByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]*model.Persona, 0, len(personas))
	for _, p := range personas {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// Get returns one of the user's active personas. Another user's persona
// is indistinguishable from a missing one.
func (s *Service) Get(ctx context.Context, id model.PersonaID, userID model.UserID) (*model.Persona, error) {
	persona, err := s.storage.GetPersona(ctx, id)
	if err != nil {
		return nil, err
	}
	if persona.UserID != userID || !persona.IsActive {
		return nil, model.ErrPersonaNotFound
	}
	return persona, nil
}

// Create adds a persona for the user
func (s *Service) Create(ctx context.Context, userID model.UserID, name, avatarURL, color, bio string) (*model.Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > model.MaxPersonaNameLength {
		return nil, ErrInvalidName
	}
	if len(bio) > model.MaxPersonaBioLength {
		return nil, ErrBioTooLong
	}

	active, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) >= model.MaxPersonasPerUser {
		return nil, model.ErrPersonaLimitReached
	}

	existing, err := s.storage.GetPersonaByName(ctx, userID, name)
	if err != nil && !errors.Is(err, model.ErrPersonaNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return nil, model.ErrPersonaNameExists
	}

	now := s.clock.Now()
	persona := &model.Persona{
		ID:        model.PersonaID("per_" + s.random.String(idLength, idAlphabet)),
		UserID:    userID,
		Name:      name,
		AvatarURL: avatarURL,
		Color:     color,
		Bio:       bio,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.storage.SavePersona(ctx, persona); err != nil {
		return nil, err
	}

	s.logger.Info("persona created",
		slog.String("persona_id", string(persona.ID)),
		slog.String("user_id", string(userID)))
	s.events.Publish(model.Event{
		Type:      model.EventPersonaAdded,
		Timestamp: now,
		UserID:    userID,
		Payload:   model.PersonaPayload{Persona: persona},
	})
	return persona, nil
}

// UpdateRequest carries partial persona changes. Nil fields are left
// unchanged; an explicit empty string clears optional fields.
type UpdateRequest struct {
	Name      *string
	AvatarURL *string
	Color     *string
	Bio       *string
}

// Update applies partial changes to one of the user's personas
func (s *Service) Update(ctx context.Context, id model.PersonaID, userID model.UserID, req UpdateRequest) (*model.Persona, error) {
	persona, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > model.MaxPersonaNameLength {
			return nil, ErrInvalidName
		}
		if name != persona.Name {
			existing, err := s.storage.GetPersonaByName(ctx, userID, name)
			if err != nil && !errors.Is(err, model.ErrPersonaNotFound) {
				return nil, err
			}
			if existing != nil && existing.IsActive {
				return nil, model.ErrPersonaNameExists
			}
			persona.Name = name
		}
	}
	if req.AvatarURL != nil {
		persona.AvatarURL = *req.AvatarURL
	}
	if req.Color != nil {
		persona.Color = *req.Color
	}
	if req.Bio != nil {
		if len(*req.Bio) > model.MaxPersonaBioLength {
			return nil, ErrBioTooLong
		}
		persona.Bio = *req.Bio
	}

	if err := s.storage.SavePersona(ctx, persona); err != nil {
		return nil, err
	}

	s.events.Publish(model.Event{
		Type:      model.EventPersonaUpdated,
		Timestamp: s.clock.Now(),
		UserID:    userID,
		Payload:   model.PersonaPayload{Persona: persona},
	})
	return persona, nil
}

// Delete soft-deletes one of the user's personas. The row survives so
// past messages keep their display identity.
func (s *Service) Delete(ctx context.Context, id model.PersonaID, userID model.UserID) error {
	persona, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	persona.IsActive = false
	if err := s.storage.SavePersona(ctx, persona); err != nil {
		return err
	}

	s.logger.Info("persona removed",
		slog.String("persona_id", string(id)),
		slog.String("user_id", string(userID)))
	s.events.Publish(model.Event{
		Type:      model.EventPersonaRemoved,
		Timestamp: s.clock.Now(),
		UserID:    userID,
		Payload:   model.PersonaPayload{ID: id},
	})
	return nil
}
