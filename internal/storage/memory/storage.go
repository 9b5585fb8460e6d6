package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	streams     map[model.StreamID]*model.Stream
	users       map[model.UserID]*model.User
	credentials map[string]*model.Credential

	puppets         map[model.PuppetID]*model.Puppet
	puppetNameIndex map[puppetNameKey]model.PuppetID

	handlers map[handlerKey]*model.HandlerAssociation

	messages   map[model.MessageID]*model.Message
	deliveries map[model.MessageID]map[model.UserID]struct{}

	personas         map[model.PersonaID]*model.Persona
	personaNameIndex map[personaNameKey]model.PersonaID

	agentClaims    map[string]*model.AgentClaim
	agentCodeIndex map[string]string
	agentKeyIndex  map[string]string
}

type puppetNameKey struct {
	streamID model.StreamID
	name     string
}

type handlerKey struct {
	puppetID model.PuppetID
	userID   model.UserID
}

type personaNameKey struct {
	userID model.UserID
	name   string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		streams:          make(map[model.StreamID]*model.Stream),
		users:            make(map[model.UserID]*model.User),
		credentials:      make(map[string]*model.Credential),
		puppets:          make(map[model.PuppetID]*model.Puppet),
		puppetNameIndex:  make(map[puppetNameKey]model.PuppetID),
		handlers:         make(map[handlerKey]*model.HandlerAssociation),
		messages:         make(map[model.MessageID]*model.Message),
		deliveries:       make(map[model.MessageID]map[model.UserID]struct{}),
		personas:         make(map[model.PersonaID]*model.Persona),
		personaNameIndex: make(map[personaNameKey]model.PersonaID),
		agentClaims:      make(map[string]*model.AgentClaim),
		agentCodeIndex:   make(map[string]string),
		agentKeyIndex:    make(map[string]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Stream operations

func (s *Storage) SaveStream(ctx context.Context, stream *model.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[stream.ID] = stream
	return nil
}

func (s *Storage) GetStream(ctx context.Context, id model.StreamID) (*model.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream, ok := s.streams[id]
	if !ok {
		return nil, model.ErrStreamNotFound
	}
	return stream, nil
}

func (s *Storage) ListStreams(ctx context.Context) ([]*model.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	streams := make([]*model.Stream, 0, len(s.streams))
	for _, stream := range s.streams {
		streams = append(streams, stream)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams, nil
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.Username] = cred
	return nil
}

func (s *Storage) GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return cred, nil
}

// Puppet operations

func (s *Storage) CreatePuppet(ctx context.Context, puppet *model.Puppet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := puppetNameKey{puppet.StreamID, puppet.Name}
	if _, exists := s.puppetNameIndex[key]; exists {
		return model.ErrPuppetNameExists
	}
	s.puppets[puppet.ID] = puppet
	s.puppetNameIndex[key] = puppet.ID
	return nil
}

func (s *Storage) SavePuppet(ctx context.Context, puppet *model.Puppet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puppets[puppet.ID] = puppet
	s.puppetNameIndex[puppetNameKey{puppet.StreamID, puppet.Name}] = puppet.ID
	return nil
}

func (s *Storage) GetPuppet(ctx context.Context, id model.PuppetID) (*model.Puppet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	puppet, ok := s.puppets[id]
	if !ok {
		return nil, model.ErrPuppetNotFound
	}
	return puppet, nil
}

func (s *Storage) GetPuppetByName(ctx context.Context, streamID model.StreamID, name string) (*model.Puppet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.puppetNameIndex[puppetNameKey{streamID, name}]
	if !ok {
		return nil, model.ErrPuppetNotFound
	}
	puppet, ok := s.puppets[id]
	if !ok {
		return nil, model.ErrPuppetNotFound
	}
	return puppet, nil
}

func (s *Storage) ListPuppetsByStream(ctx context.Context, streamID model.StreamID) ([]*model.Puppet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var puppets []*model.Puppet
	for _, puppet := range s.puppets {
		if puppet.StreamID == streamID {
			puppets = append(puppets, puppet)
		}
	}
	sort.Slice(puppets, func(i, j int) bool {
		return puppets[i].LastUsed.After(puppets[j].LastUsed)
	})
	return puppets, nil
}

// Handler operations

func (s *Storage) SaveHandler(ctx context.Context, handler *model.HandlerAssociation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[handlerKey{handler.PuppetID, handler.UserID}] = handler
	return nil
}

func (s *Storage) GetHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) (*model.HandlerAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handler, ok := s.handlers[handlerKey{puppetID, userID}]
	if !ok {
		return nil, model.ErrHandlerNotFound
	}
	return handler, nil
}

func (s *Storage) DeleteHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, handlerKey{puppetID, userID})
	return nil
}

func (s *Storage) ListHandlersByPuppet(ctx context.Context, puppetID model.PuppetID) ([]*model.HandlerAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var handlers []*model.HandlerAssociation
	for key, handler := range s.handlers {
		if key.puppetID == puppetID {
			handlers = append(handlers, handler)
		}
	}
	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].LastUsed.After(handlers[j].LastUsed)
	})
	return handlers, nil
}

func (s *Storage) ListHandlersByUser(ctx context.Context, userID model.UserID) ([]*model.HandlerAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var handlers []*model.HandlerAssociation
	for key, handler := range s.handlers {
		if key.userID == userID {
			handlers = append(handlers, handler)
		}
	}
	return handlers, nil
}

func (s *Storage) ListRecentHandlers(ctx context.Context) ([]*model.HandlerAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var handlers []*model.HandlerAssociation
	for _, handler := range s.handlers {
		if handler.Type == model.HandlerRecent {
			handlers = append(handlers, handler)
		}
	}
	return handlers, nil
}

// Message operations

func (s *Storage) SaveMessageWithDeliveries(ctx context.Context, msg *model.Message, recipients []model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = msg
	if len(recipients) > 0 {
		set := make(map[model.UserID]struct{}, len(recipients))
		for _, userID := range recipients {
			set[userID] = struct{}{}
		}
		s.deliveries[msg.ID] = set
	}
	return nil
}

func (s *Storage) GetMessage(ctx context.Context, id model.MessageID) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, model.ErrMessageNotFound
	}
	return msg, nil
}

func (s *Storage) ListMessagesByStream(ctx context.Context, streamID model.StreamID) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []*model.Message
	for _, msg := range s.messages {
		if msg.Kind == model.MessageKindChannel && msg.StreamID == streamID {
			msgs = append(msgs, msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
	return msgs, nil
}

func (s *Storage) HasDelivery(ctx context.Context, messageID model.MessageID, userID model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deliveries[messageID][userID]
	return ok, nil
}

func (s *Storage) ListDeliveries(ctx context.Context, messageID model.MessageID) ([]model.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.deliveries[messageID]
	if !ok {
		return nil, nil
	}
	userIDs := make([]model.UserID, 0, len(set))
	for userID := range set {
		userIDs = append(userIDs, userID)
	}
	return userIDs, nil
}

// Persona operations

func (s *Storage) SavePersona(ctx context.Context, persona *model.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.personas[persona.ID]; ok && existing.Name != persona.Name {
		delete(s.personaNameIndex, personaNameKey{existing.UserID, existing.Name})
	}
	s.personas[persona.ID] = persona
	s.personaNameIndex[personaNameKey{persona.UserID, persona.Name}] = persona.ID
	return nil
}

func (s *Storage) GetPersona(ctx context.Context, id model.PersonaID) (*model.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	persona, ok := s.personas[id]
	if !ok {
		return nil, model.ErrPersonaNotFound
	}
	return persona, nil
}

func (s *Storage) GetPersonaByName(ctx context.Context, userID model.UserID, name string) (*model.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.personaNameIndex[personaNameKey{userID, name}]
	if !ok {
		return nil, model.ErrPersonaNotFound
	}
	persona, ok := s.personas[id]
	if !ok {
		return nil, model.ErrPersonaNotFound
	}
	return persona, nil
}

func (s *Storage) ListPersonasByUser(ctx context.Context, userID model.UserID) ([]*model.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var personas []*model.Persona
	for _, persona := range s.personas {
		if persona.UserID == userID {
			personas = append(personas, persona)
		}
	}
	sort.Slice(personas, func(i, j int) bool {
		return personas[i].CreatedAt.After(personas[j].CreatedAt)
	})
	return personas, nil
}

// Agent claim operations

func (s *Storage) SaveAgentClaim(ctx context.Context, claim *model.AgentClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentClaims[claim.AgentName] = claim
	s.agentCodeIndex[claim.VerificationCode] = claim.AgentName
	s.agentKeyIndex[claim.APIKey] = claim.AgentName
	return nil
}

func (s *Storage) GetAgentClaimByName(ctx context.Context, agentName string) (*model.AgentClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.agentClaims[agentName]
	if !ok {
		return nil, model.ErrAgentClaimNotFound
	}
	return claim, nil
}

func (s *Storage) GetAgentClaimByCode(ctx context.Context, code string) (*model.AgentClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.agentCodeIndex[code]
	if !ok {
		return nil, model.ErrAgentClaimNotFound
	}
	return s.agentClaims[name], nil
}

func (s *Storage) GetAgentClaimByAPIKey(ctx context.Context, apiKey string) (*model.AgentClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.agentKeyIndex[apiKey]
	if !ok {
		return nil, model.ErrAgentClaimNotFound
	}
	return s.agentClaims[name], nil
}
