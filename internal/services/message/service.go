package message

import (
	"context"
	"errors"
	"log/slog"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/random"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/puppet"
	"github.com/whisperhq/whisperd/internal/services/whisper"
	"github.com/whisperhq/whisperd/internal/storage"
)

const (
	idLength   = 12
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrEmptyContent is returned when a message has no content
var ErrEmptyContent = errors.New("message content must not be empty")

// Service handles the message send pipeline and visibility-filtered reads
type Service struct {
	storage  storage.Storage
	whispers *whisper.Service
	puppets  *puppet.Service
	events   *events.Bus
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// New creates a new message service
func New(store storage.Storage, whispers *whisper.Service, puppets *puppet.Service, bus *events.Bus, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage:  store,
		whispers: whispers,
		puppets:  puppets,
		events:   bus,
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("service", "message")),
	}
}

// SendRequest carries everything needed to send one message
type SendRequest struct {
	Kind     model.MessageKind
	StreamID model.StreamID
	DirectTo []model.UserID
	Sender   model.UserID
	Topic    string
	Content  string

	// Puppet fields apply to channel messages sent under a puppet name
	PuppetName      string
	PuppetAvatarURL string
	PuppetColor     *string

	Whisper *model.WhisperDescriptor
}

// Send validates, stores, and announces one message. Validation runs
// before any write: a bad whisper descriptor leaves no trace. A
// puppet-tagged send registers or refreshes the puppet as a side effect,
// then the message and its delivery records commit atomically.
func (s *Service) Send(ctx context.Context, req SendRequest) (*model.Message, error) {
	if req.Content == "" {
		return nil, ErrEmptyContent
	}
	isWhisper := !req.Whisper.IsZero()
	if isWhisper && req.Kind != model.MessageKindChannel {
		return nil, model.ErrWhisperOnDirectMessage
	}
	if req.Kind == model.MessageKindChannel {
		if _, err := s.storage.GetStream(ctx, req.StreamID); err != nil {
			return nil, err
		}
	}

	var recipients []model.UserID
	if isWhisper {
		set, err := s.whispers.ResolveRecipients(ctx, req.StreamID, req.Sender, req.Whisper)
		if err != nil {
			return nil, err
		}
		recipients = make([]model.UserID, 0, len(set))
		for userID := range set {
			recipients = append(recipients, userID)
		}
	}

	if req.PuppetName != "" && req.Kind == model.MessageKindChannel {
		if _, err := s.puppets.RegisterOrRefresh(ctx, req.StreamID, req.PuppetName, req.PuppetAvatarURL, req.PuppetColor, req.Sender); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	msg := &model.Message{
		ID:         model.MessageID("msg_" + s.random.String(idLength, idAlphabet)),
		Kind:       req.Kind,
		StreamID:   req.StreamID,
		DirectTo:   req.DirectTo,
		SenderID:   req.Sender,
		Topic:      req.Topic,
		Content:    req.Content,
		PuppetName: req.PuppetName,
		Whisper:    req.Whisper,
		SentAt:     now,
	}
	if err := s.storage.SaveMessageWithDeliveries(ctx, msg, recipients); err != nil {
		return nil, err
	}

	s.logger.Info("message sent",
		slog.String("message_id", string(msg.ID)),
		slog.String("stream_id", string(req.StreamID)),
		slog.Bool("whisper", isWhisper))
	s.events.Publish(model.Event{
		Type:      model.EventMessageSent,
		Timestamp: now,
		StreamID:  req.StreamID,
		UserID:    req.Sender,
		Payload: model.MessagePayload{
			MessageID:      msg.ID,
			RecipientCount: len(recipients),
		},
	})
	return msg, nil
}

// ListStream returns the stream's messages the requester may currently
// see, oldest first. Whisper visibility is evaluated live at call time.
func (s *Service) ListStream(ctx context.Context, streamID model.StreamID, requester model.UserID) ([]*model.Message, error) {
	if _, err := s.storage.GetStream(ctx, streamID); err != nil {
		return nil, err
	}
	msgs, err := s.storage.ListMessagesByStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return s.whispers.FilterVisible(ctx, msgs, requester)
}

// Get returns one message if the requester may see it. Invisible messages
// are indistinguishable from missing ones.
func (s *Service) Get(ctx context.Context, id model.MessageID, requester model.UserID) (*model.Message, error) {
	msg, err := s.storage.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.whispers.CanView(ctx, msg, requester, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrMessageNotFound
	}
	return msg, nil
}
