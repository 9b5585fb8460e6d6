package whisper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/groups"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

// Service resolves whisper descriptors to recipient sets and answers
// read-time visibility questions. It holds no state of its own: every
// answer is computed from live storage and group membership, so a
// descriptor's meaning tracks handler and membership changes made after
// the message was sent.
type Service struct {
	storage storage.Storage
	groups  groups.Directory
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new whisper service
func New(store storage.Storage, dir groups.Directory, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		groups:  dir,
		clock:   clk,
		logger:  logger.With(slog.String("service", "whisper")),
	}
}

// ResolveRecipients computes the concrete delivery set for a whisper sent
// to the given stream: direct users, group members, qualifying puppet
// handlers, and always the sender. Resolution is read-only; a puppet ID
// that does not exist or lives in another stream fails the whole call
// with an error naming the offending ID.
func (s *Service) ResolveRecipients(ctx context.Context, streamID model.StreamID, sender model.UserID, desc *model.WhisperDescriptor) (map[model.UserID]struct{}, error) {
	now := s.clock.Now()
	recipients := make(map[model.UserID]struct{})

	for _, userID := range desc.UserIDs {
		recipients[userID] = struct{}{}
	}

	for _, groupID := range desc.GroupIDs {
		members, err := s.groups.Members(ctx, groupID)
		if err != nil {
			return nil, err
		}
		for _, userID := range members {
			recipients[userID] = struct{}{}
		}
	}

	for _, puppetID := range desc.PuppetIDs {
		puppet, err := s.storage.GetPuppet(ctx, puppetID)
		if err != nil {
			if errors.Is(err, model.ErrPuppetNotFound) {
				return nil, &model.InvalidPuppetError{PuppetID: puppetID}
			}
			return nil, err
		}
		if puppet.StreamID != streamID {
			return nil, &model.CrossStreamPuppetError{PuppetID: puppetID, StreamID: streamID}
		}

		handlers, err := s.storage.ListHandlersByPuppet(ctx, puppetID)
		if err != nil {
			return nil, err
		}
		for _, handler := range handlers {
			if handler.Qualifies(puppet, now) {
				recipients[handler.UserID] = struct{}{}
			}
		}
	}

	// The sender always sees their own whisper
	recipients[sender] = struct{}{}

	s.logger.Debug("whisper recipients resolved",
		slog.String("stream_id", string(streamID)),
		slog.Int("recipients", len(recipients)))
	return recipients, nil
}

// CanView reports whether the requester may see the message at the given
// instant. Ordinary messages are always visible here; channel-level
// access is the caller's concern. For whispers the descriptor is
// re-evaluated live: direct listing, current group membership, or a
// currently-qualifying handler row on a listed puppet each grant access.
func (s *Service) CanView(ctx context.Context, msg *model.Message, requester model.UserID, now time.Time) (bool, error) {
	if !msg.IsWhisper() {
		return true, nil
	}
	if msg.SenderID == requester {
		return true, nil
	}

	desc := msg.Whisper
	if desc.HasDirectUser(requester) {
		return true, nil
	}

	for _, groupID := range desc.GroupIDs {
		member, err := s.groups.IsMember(ctx, groupID, requester)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}

	for _, puppetID := range desc.PuppetIDs {
		handler, err := s.storage.GetHandler(ctx, puppetID, requester)
		if err != nil {
			if errors.Is(err, model.ErrHandlerNotFound) {
				continue
			}
			return false, err
		}
		puppet, err := s.storage.GetPuppet(ctx, puppetID)
		if err != nil {
			// A puppet deleted after send simply grants nobody access
			if errors.Is(err, model.ErrPuppetNotFound) {
				continue
			}
			return false, err
		}
		if handler.Qualifies(puppet, now) {
			return true, nil
		}
	}

	return false, nil
}

// FilterVisible returns the subset of messages the requester may see,
// preserving order. Every message is judged at the same instant so a
// single listing is internally consistent.
func (s *Service) FilterVisible(ctx context.Context, msgs []*model.Message, requester model.UserID) ([]*model.Message, error) {
	now := s.clock.Now()
	visible := make([]*model.Message, 0, len(msgs))
	for _, msg := range msgs {
		ok, err := s.CanView(ctx, msg, requester, now)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}
