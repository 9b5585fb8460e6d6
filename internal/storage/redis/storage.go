package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) getJSON(ctx context.Context, key string, dest any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Stream operations

func (s *Storage) SaveStream(ctx context.Context, stream *model.Stream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, streamKey(stream.ID), data, 0)
	pipe.SAdd(ctx, streamsIndexKey(), string(stream.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetStream(ctx context.Context, id model.StreamID) (*model.Stream, error) {
	var stream model.Stream
	if err := s.getJSON(ctx, streamKey(id), &stream, model.ErrStreamNotFound); err != nil {
		return nil, err
	}
	return &stream, nil
}

func (s *Storage) ListStreams(ctx context.Context) ([]*model.Stream, error) {
	ids, err := s.client.SMembers(ctx, streamsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	streams := make([]*model.Stream, 0, len(ids))
	for _, id := range ids {
		stream, err := s.GetStream(ctx, model.StreamID(id))
		if err != nil {
			if errors.Is(err, model.ErrStreamNotFound) {
				continue
			}
			return nil, err
		}
		streams = append(streams, stream)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, userKey(user.ID), data, 0).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.getJSON(ctx, userKey(id), &user, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, credentialKey(cred.Username), data, 0).Err()
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	var cred model.Credential
	if err := s.getJSON(ctx, credentialKey(username), &cred, model.ErrUserNotFound); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Puppet operations

func (s *Storage) CreatePuppet(ctx context.Context, puppet *model.Puppet) error {
	// Reserve the (stream, name) key first; losing the race surfaces as
	// ErrPuppetNameExists so the caller can retry via the update path.
	ok, err := s.client.SetNX(ctx, puppetNameIndexKey(puppet.StreamID, puppet.Name), string(puppet.ID), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrPuppetNameExists
	}
	return s.writePuppet(ctx, puppet)
}

func (s *Storage) SavePuppet(ctx context.Context, puppet *model.Puppet) error {
	if err := s.client.Set(ctx, puppetNameIndexKey(puppet.StreamID, puppet.Name), string(puppet.ID), 0).Err(); err != nil {
		return err
	}
	return s.writePuppet(ctx, puppet)
}

func (s *Storage) writePuppet(ctx context.Context, puppet *model.Puppet) error {
	data, err := json.Marshal(puppet)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, puppetKey(puppet.ID), data, 0)
	pipe.ZAdd(ctx, puppetsForStreamKey(puppet.StreamID), redis.Z{
		Score:  float64(puppet.LastUsed.UnixNano()),
		Member: string(puppet.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPuppet(ctx context.Context, id model.PuppetID) (*model.Puppet, error) {
	var puppet model.Puppet
	if err := s.getJSON(ctx, puppetKey(id), &puppet, model.ErrPuppetNotFound); err != nil {
		return nil, err
	}
	return &puppet, nil
}

func (s *Storage) GetPuppetByName(ctx context.Context, streamID model.StreamID, name string) (*model.Puppet, error) {
	id, err := s.client.Get(ctx, puppetNameIndexKey(streamID, name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPuppetNotFound
		}
		return nil, err
	}
	return s.GetPuppet(ctx, model.PuppetID(id))
}

func (s *Storage) ListPuppetsByStream(ctx context.Context, streamID model.StreamID) ([]*model.Puppet, error) {
	// Highest score (most recently used) first
	ids, err := s.client.ZRevRange(ctx, puppetsForStreamKey(streamID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	puppets := make([]*model.Puppet, 0, len(ids))
	for _, id := range ids {
		puppet, err := s.GetPuppet(ctx, model.PuppetID(id))
		if err != nil {
			if errors.Is(err, model.ErrPuppetNotFound) {
				continue
			}
			return nil, err
		}
		puppets = append(puppets, puppet)
	}
	return puppets, nil
}

// Handler operations

func (s *Storage) SaveHandler(ctx context.Context, handler *model.HandlerAssociation) error {
	data, err := json.Marshal(handler)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, handlerKey(handler.PuppetID, handler.UserID), data, 0)
	pipe.SAdd(ctx, handlersForPuppetKey(handler.PuppetID), string(handler.UserID))
	pipe.SAdd(ctx, handlersForUserKey(handler.UserID), string(handler.PuppetID))
	member := recentHandlerMember(handler.PuppetID, handler.UserID)
	if handler.Type == model.HandlerRecent {
		pipe.SAdd(ctx, recentHandlersKey(), member)
	} else {
		pipe.SRem(ctx, recentHandlersKey(), member)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) (*model.HandlerAssociation, error) {
	var handler model.HandlerAssociation
	if err := s.getJSON(ctx, handlerKey(puppetID, userID), &handler, model.ErrHandlerNotFound); err != nil {
		return nil, err
	}
	return &handler, nil
}

func (s *Storage) DeleteHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, handlerKey(puppetID, userID))
	pipe.SRem(ctx, handlersForPuppetKey(puppetID), string(userID))
	pipe.SRem(ctx, handlersForUserKey(userID), string(puppetID))
	pipe.SRem(ctx, recentHandlersKey(), recentHandlerMember(puppetID, userID))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListHandlersByPuppet(ctx context.Context, puppetID model.PuppetID) ([]*model.HandlerAssociation, error) {
	userIDs, err := s.client.SMembers(ctx, handlersForPuppetKey(puppetID)).Result()
	if err != nil {
		return nil, err
	}

	handlers := make([]*model.HandlerAssociation, 0, len(userIDs))
	for _, userID := range userIDs {
		handler, err := s.GetHandler(ctx, puppetID, model.UserID(userID))
		if err != nil {
			if errors.Is(err, model.ErrHandlerNotFound) {
				continue
			}
			return nil, err
		}
		handlers = append(handlers, handler)
	}
	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].LastUsed.After(handlers[j].LastUsed)
	})
	return handlers, nil
}

func (s *Storage) ListHandlersByUser(ctx context.Context, userID model.UserID) ([]*model.HandlerAssociation, error) {
	puppetIDs, err := s.client.SMembers(ctx, handlersForUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	handlers := make([]*model.HandlerAssociation, 0, len(puppetIDs))
	for _, puppetID := range puppetIDs {
		handler, err := s.GetHandler(ctx, model.PuppetID(puppetID), userID)
		if err != nil {
			if errors.Is(err, model.ErrHandlerNotFound) {
				continue
			}
			return nil, err
		}
		handlers = append(handlers, handler)
	}
	return handlers, nil
}

func (s *Storage) ListRecentHandlers(ctx context.Context) ([]*model.HandlerAssociation, error) {
	members, err := s.client.SMembers(ctx, recentHandlersKey()).Result()
	if err != nil {
		return nil, err
	}

	handlers := make([]*model.HandlerAssociation, 0, len(members))
	for _, member := range members {
		puppetID, userID, ok := strings.Cut(member, "/")
		if !ok {
			continue
		}
		handler, err := s.GetHandler(ctx, model.PuppetID(puppetID), model.UserID(userID))
		if err != nil {
			if errors.Is(err, model.ErrHandlerNotFound) {
				continue
			}
			return nil, err
		}
		handlers = append(handlers, handler)
	}
	return handlers, nil
}

// Message operations

func (s *Storage) SaveMessageWithDeliveries(ctx context.Context, msg *model.Message, recipients []model.UserID) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// Message, stream index, and delivery records commit as one unit
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, messageKey(msg.ID), data, 0)
	if msg.Kind == model.MessageKindChannel {
		pipe.ZAdd(ctx, messagesForStreamKey(msg.StreamID), redis.Z{
			Score:  float64(msg.SentAt.UnixNano()),
			Member: string(msg.ID),
		})
	}
	if len(recipients) > 0 {
		members := make([]any, len(recipients))
		for i, userID := range recipients {
			members[i] = string(userID)
		}
		pipe.SAdd(ctx, deliveriesKey(msg.ID), members...)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetMessage(ctx context.Context, id model.MessageID) (*model.Message, error) {
	var msg model.Message
	if err := s.getJSON(ctx, messageKey(id), &msg, model.ErrMessageNotFound); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Storage) ListMessagesByStream(ctx context.Context, streamID model.StreamID) ([]*model.Message, error) {
	// Oldest first
	ids, err := s.client.ZRange(ctx, messagesForStreamKey(streamID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]*model.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.GetMessage(ctx, model.MessageID(id))
		if err != nil {
			if errors.Is(err, model.ErrMessageNotFound) {
				continue
			}
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *Storage) HasDelivery(ctx context.Context, messageID model.MessageID, userID model.UserID) (bool, error) {
	return s.client.SIsMember(ctx, deliveriesKey(messageID), string(userID)).Result()
}

func (s *Storage) ListDeliveries(ctx context.Context, messageID model.MessageID) ([]model.UserID, error) {
	members, err := s.client.SMembers(ctx, deliveriesKey(messageID)).Result()
	if err != nil {
		return nil, err
	}
	userIDs := make([]model.UserID, len(members))
	for i, member := range members {
		userIDs[i] = model.UserID(member)
	}
	return userIDs, nil
}

// Persona operations

func (s *Storage) SavePersona(ctx context.Context, persona *model.Persona) error {
	data, err := json.Marshal(persona)
	if err != nil {
		return err
	}

	// Drop the stale name index entry on rename
	if existing, err := s.GetPersona(ctx, persona.ID); err == nil && existing.Name != persona.Name {
		if err := s.client.Del(ctx, personaNameIndexKey(existing.UserID, existing.Name)).Err(); err != nil {
			return err
		}
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, personaKey(persona.ID), data, 0)
	pipe.Set(ctx, personaNameIndexKey(persona.UserID, persona.Name), string(persona.ID), 0)
	pipe.ZAdd(ctx, personasForUserKey(persona.UserID), redis.Z{
		Score:  float64(persona.CreatedAt.UnixNano()),
		Member: string(persona.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPersona(ctx context.Context, id model.PersonaID) (*model.Persona, error) {
	var persona model.Persona
	if err := s.getJSON(ctx, personaKey(id), &persona, model.ErrPersonaNotFound); err != nil {
		return nil, err
	}
	return &persona, nil
}

func (s *Storage) GetPersonaByName(ctx context.Context, userID model.UserID, name string) (*model.Persona, error) {
	id, err := s.client.Get(ctx, personaNameIndexKey(userID, name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPersonaNotFound
		}
		return nil, err
	}
	return s.GetPersona(ctx, model.PersonaID(id))
}

func (s *Storage) ListPersonasByUser(ctx context.Context, userID model.UserID) ([]*model.Persona, error) {
	// Most recently created first
	ids, err := s.client.ZRevRange(ctx, personasForUserKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	personas := make([]*model.Persona, 0, len(ids))
	for _, id := range ids {
		persona, err := s.GetPersona(ctx, model.PersonaID(id))
		if err != nil {
			if errors.Is(err, model.ErrPersonaNotFound) {
				continue
			}
			return nil, err
		}
		personas = append(personas, persona)
	}
	return personas, nil
}

// Agent claim operations

func (s *Storage) SaveAgentClaim(ctx context.Context, claim *model.AgentClaim) error {
	data, err := json.Marshal(claim)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, agentClaimKey(claim.AgentName), data, 0)
	pipe.Set(ctx, agentCodeIndexKey(claim.VerificationCode), claim.AgentName, 0)
	pipe.Set(ctx, agentKeyIndexKey(claim.APIKey), claim.AgentName, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAgentClaimByName(ctx context.Context, agentName string) (*model.AgentClaim, error) {
	var claim model.AgentClaim
	if err := s.getJSON(ctx, agentClaimKey(agentName), &claim, model.ErrAgentClaimNotFound); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (s *Storage) GetAgentClaimByCode(ctx context.Context, code string) (*model.AgentClaim, error) {
	name, err := s.client.Get(ctx, agentCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAgentClaimNotFound
		}
		return nil, err
	}
	return s.GetAgentClaimByName(ctx, name)
}

func (s *Storage) GetAgentClaimByAPIKey(ctx context.Context, apiKey string) (*model.AgentClaim, error) {
	name, err := s.client.Get(ctx, agentKeyIndexKey(apiKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAgentClaimNotFound
		}
		return nil, err
	}
	return s.GetAgentClaimByName(ctx, name)
}
