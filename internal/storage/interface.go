package storage

import (
	"context"

	"github.com/whisperhq/whisperd/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Stream operations
	SaveStream(ctx context.Context, stream *model.Stream) error
	GetStream(ctx context.Context, id model.StreamID) (*model.Stream, error)
	ListStreams(ctx context.Context) ([]*model.Stream, error)

	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	SaveCredential(ctx context.Context, cred *model.Credential) error
	GetCredentialByUsername(ctx context.Context, username string) (*model.Credential, error)

	// Puppet operations.
	// CreatePuppet fails with model.ErrPuppetNameExists when the
	// (stream, name) key is already taken; callers resolve the race by
	// retrying through the lookup-and-update path.
	CreatePuppet(ctx context.Context, puppet *model.Puppet) error
	SavePuppet(ctx context.Context, puppet *model.Puppet) error
	GetPuppet(ctx context.Context, id model.PuppetID) (*model.Puppet, error)
	GetPuppetByName(ctx context.Context, streamID model.StreamID, name string) (*model.Puppet, error)
	ListPuppetsByStream(ctx context.Context, streamID model.StreamID) ([]*model.Puppet, error)

	// Handler operations, keyed by (puppet, user)
	SaveHandler(ctx context.Context, handler *model.HandlerAssociation) error
	GetHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) (*model.HandlerAssociation, error)
	DeleteHandler(ctx context.Context, puppetID model.PuppetID, userID model.UserID) error
	ListHandlersByPuppet(ctx context.Context, puppetID model.PuppetID) ([]*model.HandlerAssociation, error)
	ListHandlersByUser(ctx context.Context, userID model.UserID) ([]*model.HandlerAssociation, error)
	ListRecentHandlers(ctx context.Context) ([]*model.HandlerAssociation, error)

	// Message operations.
	// SaveMessageWithDeliveries stores the message and its delivery
	// records as one atomic write; a failure leaves neither behind.
	SaveMessageWithDeliveries(ctx context.Context, msg *model.Message, recipients []model.UserID) error
	GetMessage(ctx context.Context, id model.MessageID) (*model.Message, error)
	ListMessagesByStream(ctx context.Context, streamID model.StreamID) ([]*model.Message, error)
	HasDelivery(ctx context.Context, messageID model.MessageID, userID model.UserID) (bool, error)
	ListDeliveries(ctx context.Context, messageID model.MessageID) ([]model.UserID, error)

	// Persona operations
	SavePersona(ctx context.Context, persona *model.Persona) error
	GetPersona(ctx context.Context, id model.PersonaID) (*model.Persona, error)
	GetPersonaByName(ctx context.Context, userID model.UserID, name string) (*model.Persona, error)
	ListPersonasByUser(ctx context.Context, userID model.UserID) ([]*model.Persona, error)

	// Agent claim operations
	SaveAgentClaim(ctx context.Context, claim *model.AgentClaim) error
	GetAgentClaimByName(ctx context.Context, agentName string) (*model.AgentClaim, error)
	GetAgentClaimByCode(ctx context.Context, code string) (*model.AgentClaim, error)
	GetAgentClaimByAPIKey(ctx context.Context, apiKey string) (*model.AgentClaim, error)
}
