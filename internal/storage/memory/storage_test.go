package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/whisperhq/whisperd/internal/model"
)

type MemoryStorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	base    time.Time
}

func TestMemoryStorageSuite(t *testing.T) {
	suite.Run(t, new(MemoryStorageSuite))
}

func (s *MemoryStorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MemoryStorageSuite) TestCreatePuppetEnforcesNameUniqueness() {
	puppet := &model.Puppet{ID: "pup_1", StreamID: "str_1", Name: "Gandalf", LastUsed: s.base}
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, puppet))

	err := s.storage.CreatePuppet(s.ctx, &model.Puppet{ID: "pup_2", StreamID: "str_1", Name: "Gandalf"})
	s.ErrorIs(err, model.ErrPuppetNameExists)

	// Different stream, same name is fine
	s.NoError(s.storage.CreatePuppet(s.ctx, &model.Puppet{ID: "pup_3", StreamID: "str_2", Name: "Gandalf"}))
}

func (s *MemoryStorageSuite) TestGetPuppetByName() {
	puppet := &model.Puppet{ID: "pup_1", StreamID: "str_1", Name: "Gandalf", LastUsed: s.base}
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, puppet))

	retrieved, err := s.storage.GetPuppetByName(s.ctx, "str_1", "Gandalf")
	s.Require().NoError(err)
	s.Equal(model.PuppetID("pup_1"), retrieved.ID)

	_, err = s.storage.GetPuppetByName(s.ctx, "str_2", "Gandalf")
	s.ErrorIs(err, model.ErrPuppetNotFound)
}

func (s *MemoryStorageSuite) TestListPuppetsByStreamMostRecentFirst() {
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, &model.Puppet{
		ID: "pup_old", StreamID: "str_1", Name: "Innkeeper", LastUsed: s.base,
	}))
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, &model.Puppet{
		ID: "pup_new", StreamID: "str_1", Name: "Gandalf", LastUsed: s.base.Add(time.Hour),
	}))
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, &model.Puppet{
		ID: "pup_other", StreamID: "str_2", Name: "Stranger", LastUsed: s.base,
	}))

	puppets, err := s.storage.ListPuppetsByStream(s.ctx, "str_1")
	s.Require().NoError(err)
	s.Require().Len(puppets, 2)
	s.Equal(model.PuppetID("pup_new"), puppets[0].ID)
	s.Equal(model.PuppetID("pup_old"), puppets[1].ID)
}

func (s *MemoryStorageSuite) TestHandlerLifecycle() {
	h := &model.HandlerAssociation{PuppetID: "pup_1", UserID: "u_1", Type: model.HandlerRecent, LastUsed: s.base}
	s.Require().NoError(s.storage.SaveHandler(s.ctx, h))

	retrieved, err := s.storage.GetHandler(s.ctx, "pup_1", "u_1")
	s.Require().NoError(err)
	s.Equal(model.HandlerRecent, retrieved.Type)

	s.Require().NoError(s.storage.DeleteHandler(s.ctx, "pup_1", "u_1"))
	_, err = s.storage.GetHandler(s.ctx, "pup_1", "u_1")
	s.ErrorIs(err, model.ErrHandlerNotFound)
}

func (s *MemoryStorageSuite) TestListRecentHandlersExcludesClaimed() {
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: "pup_1", UserID: "u_1", Type: model.HandlerRecent, LastUsed: s.base,
	}))
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: "pup_1", UserID: "u_2", Type: model.HandlerClaimed, LastUsed: s.base,
	}))

	recent, err := s.storage.ListRecentHandlers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(model.UserID("u_1"), recent[0].UserID)
}

func (s *MemoryStorageSuite) TestListHandlersByPuppetAndUser() {
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: "pup_1", UserID: "u_1", Type: model.HandlerRecent, LastUsed: s.base,
	}))
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: "pup_1", UserID: "u_2", Type: model.HandlerClaimed, LastUsed: s.base.Add(time.Minute),
	}))
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: "pup_2", UserID: "u_1", Type: model.HandlerRecent, LastUsed: s.base,
	}))

	byPuppet, err := s.storage.ListHandlersByPuppet(s.ctx, "pup_1")
	s.Require().NoError(err)
	s.Require().Len(byPuppet, 2)
	// Most recently active first
	s.Equal(model.UserID("u_2"), byPuppet[0].UserID)

	byUser, err := s.storage.ListHandlersByUser(s.ctx, "u_1")
	s.Require().NoError(err)
	s.Len(byUser, 2)
}

func (s *MemoryStorageSuite) TestMessageDeliveries() {
	msg := &model.Message{
		ID: "msg_1", Kind: model.MessageKindChannel, StreamID: "str_1",
		SenderID: "u_gm", Content: "hello", SentAt: s.base,
	}
	s.Require().NoError(s.storage.SaveMessageWithDeliveries(s.ctx, msg, []model.UserID{"u_gm", "u_alice"}))

	has, err := s.storage.HasDelivery(s.ctx, "msg_1", "u_alice")
	s.Require().NoError(err)
	s.True(has)

	has, err = s.storage.HasDelivery(s.ctx, "msg_1", "u_bob")
	s.Require().NoError(err)
	s.False(has)

	deliveries, err := s.storage.ListDeliveries(s.ctx, "msg_1")
	s.Require().NoError(err)
	s.ElementsMatch([]model.UserID{"u_gm", "u_alice"}, deliveries)
}

func (s *MemoryStorageSuite) TestListMessagesByStreamOldestFirst() {
	later := &model.Message{ID: "msg_2", Kind: model.MessageKindChannel, StreamID: "str_1", SenderID: "u_gm", SentAt: s.base.Add(time.Minute)}
	earlier := &model.Message{ID: "msg_1", Kind: model.MessageKindChannel, StreamID: "str_1", SenderID: "u_gm", SentAt: s.base}
	direct := &model.Message{ID: "msg_dm", Kind: model.MessageKindDirect, SenderID: "u_gm", SentAt: s.base}

	s.Require().NoError(s.storage.SaveMessageWithDeliveries(s.ctx, later, nil))
	s.Require().NoError(s.storage.SaveMessageWithDeliveries(s.ctx, earlier, nil))
	s.Require().NoError(s.storage.SaveMessageWithDeliveries(s.ctx, direct, []model.UserID{"u_gm"}))

	msgs, err := s.storage.ListMessagesByStream(s.ctx, "str_1")
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal(model.MessageID("msg_1"), msgs[0].ID)
	s.Equal(model.MessageID("msg_2"), msgs[1].ID)
}

func (s *MemoryStorageSuite) TestPersonaRenameDropsOldNameIndex() {
	persona := &model.Persona{ID: "per_1", UserID: "u_1", Name: "Night Owl", IsActive: true, CreatedAt: s.base}
	s.Require().NoError(s.storage.SavePersona(s.ctx, persona))

	renamed := *persona
	renamed.Name = "Early Bird"
	s.Require().NoError(s.storage.SavePersona(s.ctx, &renamed))

	_, err := s.storage.GetPersonaByName(s.ctx, "u_1", "Night Owl")
	s.ErrorIs(err, model.ErrPersonaNotFound)

	byName, err := s.storage.GetPersonaByName(s.ctx, "u_1", "Early Bird")
	s.Require().NoError(err)
	s.Equal(model.PersonaID("per_1"), byName.ID)
}

func (s *MemoryStorageSuite) TestAgentClaimIndexes() {
	claim := &model.AgentClaim{
		AgentName:        "crow-bot",
		UserID:           "u_agent",
		APIKey:           "key-123",
		VerificationCode: "A1B2",
		CreatedAt:        s.base,
	}
	s.Require().NoError(s.storage.SaveAgentClaim(s.ctx, claim))

	byCode, err := s.storage.GetAgentClaimByCode(s.ctx, "A1B2")
	s.Require().NoError(err)
	s.Equal("crow-bot", byCode.AgentName)

	byKey, err := s.storage.GetAgentClaimByAPIKey(s.ctx, "key-123")
	s.Require().NoError(err)
	s.Equal("crow-bot", byKey.AgentName)

	_, err = s.storage.GetAgentClaimByName(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrAgentClaimNotFound)
}
