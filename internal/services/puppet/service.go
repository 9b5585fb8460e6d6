package puppet

import (
	"context"
	"errors"
	"log/slog"
	"time"

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

// Service manages the puppet registry: registration, handler claims, and
// visibility settings
type Service struct {
	storage storage.Storage
	events  *events.Bus
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a new puppet service
func New(store storage.Storage, bus *events.Bus, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		events:  bus,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("service", "puppet")),
	}
}

// RegisterOrRefresh registers a puppet name in a stream, or refreshes the
// existing row when the name is already taken. Refreshing always bumps
// last_used; avatar_url is replaced only when a non-empty value is given,
// and color is replaced whenever the caller supplies one (an explicit
// empty string clears it). The sender is recorded as a recent handler of
// the puppet, without ever downgrading an existing claim.
func (s *Service) RegisterOrRefresh(ctx context.Context, streamID model.StreamID, name, avatarURL string, color *string, sender model.UserID) (*model.Puppet, error) {
	if _, err := s.storage.GetStream(ctx, streamID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	puppet, created, err := s.upsert(ctx, streamID, name, avatarURL, color, sender, now)
	if err != nil {
		return nil, err
	}

	if err := s.touchHandler(ctx, puppet.ID, sender, now); err != nil {
		return nil, err
	}

	eventType := model.EventPuppetUpdated
	if created {
		eventType = model.EventPuppetRegistered
		s.logger.Info("puppet registered",
			slog.String("puppet_id", string(puppet.ID)),
			slog.String("stream_id", string(streamID)),
			slog.String("name", name))
	}
	s.events.Publish(model.Event{
		Type:      eventType,
		Timestamp: now,
		StreamID:  streamID,
		PuppetID:  puppet.ID,
		UserID:    sender,
		Payload:   model.PuppetPayload{Puppet: puppet},
	})
	return puppet, nil
}

// upsert resolves the (stream, name) key to a puppet row, creating one
// when absent. A concurrent create can slip in between the lookup and the
// insert; the unique-key failure from CreatePuppet sends us back through
// the lookup path exactly once, which then finds the winner's row.
func (s *Service) upsert(ctx context.Context, streamID model.StreamID, name, avatarURL string, color *string, sender model.UserID, now time.Time) (*model.Puppet, bool, error) {
	for attempt := 0; ; attempt++ {
		existing, err := s.storage.GetPuppetByName(ctx, streamID, name)
		if err == nil {
			existing.LastUsed = now
			if avatarURL != "" {
				existing.AvatarURL = avatarURL
			}
			if color != nil {
				existing.Color = *color
			}
			if err := s.storage.SavePuppet(ctx, existing); err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		if !errors.Is(err, model.ErrPuppetNotFound) {
			return nil, false, err
		}

		puppet := &model.Puppet{
			ID:                       model.PuppetID("pup_" + s.random.String(idLength, idAlphabet)),
			StreamID:                 streamID,
			Name:                     name,
			AvatarURL:                avatarURL,
			CreatedBy:                sender,
			VisibilityMode:           model.VisibilityOpen,
			RecentHandlerWindowHours: model.DefaultRecentHandlerWindowHours,
			LastUsed:                 now,
			CreatedAt:                now,
		}
		if color != nil {
			puppet.Color = *color
		}

		err = s.storage.CreatePuppet(ctx, puppet)
		if err == nil {
			return puppet, true, nil
		}
		if !errors.Is(err, model.ErrPuppetNameExists) || attempt > 0 {
			return nil, false, err
		}
		s.logger.Debug("lost puppet creation race, retrying as update",
			slog.String("stream_id", string(streamID)),
			slog.String("name", name))
	}
}

// touchHandler upserts the sender's handler row with a fresh last_used.
// An existing claim keeps its type; only new rows start as recent.
func (s *Service) touchHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID, now time.Time) error {
	handler, err := s.storage.GetHandler(ctx, puppetID, userID)
	if err != nil {
		if !errors.Is(err, model.ErrHandlerNotFound) {
			return err
		}
		handler = &model.HandlerAssociation{
			PuppetID: puppetID,
			UserID:   userID,
			Type:     model.HandlerRecent,
		}
	}
	handler.LastUsed = now
	return s.storage.SaveHandler(ctx, handler)
}

// List returns the puppets registered in a stream, most recently used first
func (s *Service) List(ctx context.Context, streamID model.StreamID) ([]*model.Puppet, error) {
	if _, err := s.storage.GetStream(ctx, streamID); err != nil {
		return nil, err
	}
	return s.storage.ListPuppetsByStream(ctx, streamID)
}

// Get returns a single puppet by ID
func (s *Service) Get(ctx context.Context, puppetID model.PuppetID) (*model.Puppet, error) {
	return s.storage.GetPuppet(ctx, puppetID)
}

// Claim upgrades the user's handler association to claimed, creating one
// when absent. Claiming is idempotent.
func (s *Service) Claim(ctx context.Context, puppetID model.PuppetID, userID model.UserID) (*model.HandlerAssociation, error) {
	puppet, err := s.storage.GetPuppet(ctx, puppetID)
	if err != nil {
		if errors.Is(err, model.ErrPuppetNotFound) {
			return nil, &model.InvalidPuppetError{PuppetID: puppetID}
		}
		return nil, err
	}
	if _, err := s.storage.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	handler, err := s.storage.GetHandler(ctx, puppetID, userID)
	if err != nil {
		if !errors.Is(err, model.ErrHandlerNotFound) {
			return nil, err
		}
		handler = &model.HandlerAssociation{
			PuppetID: puppetID,
			UserID:   userID,
		}
	}
	handler.Type = model.HandlerClaimed
	handler.LastUsed = now
	if err := s.storage.SaveHandler(ctx, handler); err != nil {
		return nil, err
	}

	s.logger.Info("puppet claimed",
		slog.String("puppet_id", string(puppetID)),
		slog.String("user_id", string(userID)))
	s.events.Publish(model.Event{
		Type:      model.EventHandlerClaimed,
		Timestamp: now,
		StreamID:  puppet.StreamID,
		PuppetID:  puppetID,
		UserID:    userID,
		Payload: model.HandlerPayload{
			PuppetID: puppetID,
			UserID:   userID,
			Type:     model.HandlerClaimed,
		},
	})
	return handler, nil
}

// Unclaim removes the user's claimed association with a puppet. Recent
// rows are left untouched, so unclaiming never forges implicit state.
// Returns whether a claim was actually removed.
func (s *Service) Unclaim(ctx context.Context, puppetID model.PuppetID, userID model.UserID) (bool, error) {
	puppet, err := s.storage.GetPuppet(ctx, puppetID)
	if err != nil {
		if errors.Is(err, model.ErrPuppetNotFound) {
			return false, &model.InvalidPuppetError{PuppetID: puppetID}
		}
		return false, err
	}

	handler, err := s.storage.GetHandler(ctx, puppetID, userID)
	if err != nil {
		if errors.Is(err, model.ErrHandlerNotFound) {
			return false, nil
		}
		return false, err
	}
	if handler.Type != model.HandlerClaimed {
		return false, nil
	}

	if err := s.storage.DeleteHandler(ctx, puppetID, userID); err != nil {
		return false, err
	}

	now := s.clock.Now()
	s.logger.Info("puppet unclaimed",
		slog.String("puppet_id", string(puppetID)),
		slog.String("user_id", string(userID)))
	s.events.Publish(model.Event{
		Type:      model.EventHandlerUnclaimed,
		Timestamp: now,
		StreamID:  puppet.StreamID,
		PuppetID:  puppetID,
		UserID:    userID,
		Payload: model.HandlerPayload{
			PuppetID: puppetID,
			UserID:   userID,
		},
	})
	return true, nil
}

// SetVisibility updates a puppet's visibility mode and, optionally, its
// recency window. Only the puppet's creator or a claimed handler may
// change visibility.
func (s *Service) SetVisibility(ctx context.Context, puppetID model.PuppetID, actor model.UserID, mode model.VisibilityMode, windowHours *int) (*model.Puppet, error) {
	if !mode.Valid() {
		return nil, model.ErrInvalidVisibility
	}
	if windowHours != nil && *windowHours <= 0 {
		return nil, model.ErrInvalidWindow
	}

	puppet, err := s.storage.GetPuppet(ctx, puppetID)
	if err != nil {
		if errors.Is(err, model.ErrPuppetNotFound) {
			return nil, &model.InvalidPuppetError{PuppetID: puppetID}
		}
		return nil, err
	}

	allowed, err := s.mayConfigure(ctx, puppet, actor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, model.ErrUnauthorizedClaim
	}

	puppet.VisibilityMode = mode
	if windowHours != nil {
		puppet.RecentHandlerWindowHours = *windowHours
	}
	if err := s.storage.SavePuppet(ctx, puppet); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.logger.Info("puppet visibility changed",
		slog.String("puppet_id", string(puppetID)),
		slog.String("mode", string(mode)),
		slog.Int("window_hours", puppet.RecentHandlerWindowHours))
	s.events.Publish(model.Event{
		Type:      model.EventVisibilityChanged,
		Timestamp: now,
		StreamID:  puppet.StreamID,
		PuppetID:  puppetID,
		UserID:    actor,
		Payload: model.VisibilityPayload{
			PuppetID:    puppetID,
			Mode:        mode,
			WindowHours: puppet.RecentHandlerWindowHours,
		},
	})
	return puppet, nil
}

// mayConfigure reports whether the actor is the puppet's creator or holds
// a claimed handler row
func (s *Service) mayConfigure(ctx context.Context, puppet *model.Puppet, actor model.UserID) (bool, error) {
	if puppet.CreatedBy == actor {
		return true, nil
	}
	handler, err := s.storage.GetHandler(ctx, puppet.ID, actor)
	if err != nil {
		if errors.Is(err, model.ErrHandlerNotFound) {
			return false, nil
		}
		return false, err
	}
	return handler.Type == model.HandlerClaimed, nil
}

// Handlers returns every handler association for a puppet, claimed and recent
func (s *Service) Handlers(ctx context.Context, puppetID model.PuppetID) ([]*model.HandlerAssociation, error) {
	if _, err := s.storage.GetPuppet(ctx, puppetID); err != nil {
		if errors.Is(err, model.ErrPuppetNotFound) {
			return nil, &model.InvalidPuppetError{PuppetID: puppetID}
		}
		return nil, err
	}
	return s.storage.ListHandlersByPuppet(ctx, puppetID)
}

// HandledPuppetIDs returns the puppets the user currently qualifies to
// receive whispers for, applying each puppet's own visibility rule.
func (s *Service) HandledPuppetIDs(ctx context.Context, userID model.UserID) ([]model.PuppetID, error) {
	handlers, err := s.storage.ListHandlersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ids := make([]model.PuppetID, 0, len(handlers))
	for _, handler := range handlers {
		puppet, err := s.storage.GetPuppet(ctx, handler.PuppetID)
		if err != nil {
			if errors.Is(err, model.ErrPuppetNotFound) {
				continue
			}
			return nil, err
		}
		if handler.Qualifies(puppet, now) {
			ids = append(ids, puppet.ID)
		}
	}
	return ids, nil
}
