package persona

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/whisperhq/whisperd/internal/dependencies/mocks"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	"github.com/whisperhq/whisperd/internal/testutil"
)

type PersonaServiceSuite struct {
	suite.Suite

	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service

	ctx   context.Context
	alice model.UserID
	bob   model.UserID
}

func TestPersonaServiceSuite(t *testing.T) {
	suite.Run(t, new(PersonaServiceSuite))
}

func (s *PersonaServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	for i := 0; i < 30; i++ {
		s.random.QueueString(fmt.Sprintf("id%010d", i))
	}

	logger := testutil.NopLogger()
	s.service = New(s.storage, events.NewBus(logger), s.clock, s.random, logger)

	s.alice = "u_alice"
	s.bob = "u_bob"
}

func (s *PersonaServiceSuite) TestCreateAndList() {
	created, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "http://a/crow.png", "#222222", "hardboiled corvid")
	s.Require().NoError(err)
	s.True(created.IsActive)

	personas, err := s.service.List(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(personas, 1)
	s.Equal("Detective Crow", personas[0].Name)
}

func (s *PersonaServiceSuite) TestListScopedToOwner() {
	_, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.Require().NoError(err)

	personas, err := s.service.List(s.ctx, s.bob)
	s.Require().NoError(err)
	s.Empty(personas)
}

func (s *PersonaServiceSuite) TestCreateRejectsDuplicateName() {
	_, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.ErrorIs(err, model.ErrPersonaNameExists)

	// Same name under a different user is fine
	_, err = s.service.Create(s.ctx, s.bob, "Detective Crow", "", "", "")
	s.NoError(err)
}

func (s *PersonaServiceSuite) TestCreateValidatesFields() {
	_, err := s.service.Create(s.ctx, s.alice, "  ", "", "", "")
	s.ErrorIs(err, ErrInvalidName)

	_, err = s.service.Create(s.ctx, s.alice, strings.Repeat("x", model.MaxPersonaNameLength+1), "", "", "")
	s.ErrorIs(err, ErrInvalidName)

	_, err = s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", strings.Repeat("x", model.MaxPersonaBioLength+1))
	s.ErrorIs(err, ErrBioTooLong)
}

func (s *PersonaServiceSuite) TestCreateEnforcesLimit() {
	for i := 0; i < model.MaxPersonasPerUser; i++ {
		_, err := s.service.Create(s.ctx, s.alice, fmt.Sprintf("Persona %d", i), "", "", "")
		s.Require().NoError(err)
	}

	_, err := s.service.Create(s.ctx, s.alice, "One Too Many", "", "", "")
	s.ErrorIs(err, model.ErrPersonaLimitReached)
}

func (s *PersonaServiceSuite) TestDeleteFreesLimitSlot() {
	for i := 0; i < model.MaxPersonasPerUser; i++ {
		_, err := s.service.Create(s.ctx, s.alice, fmt.Sprintf("Persona %d", i), "", "", "")
		s.Require().NoError(err)
	}
	personas, err := s.service.List(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Require().NoError(s.service.Delete(s.ctx, personas[0].ID, s.alice))

	_, err = s.service.Create(s.ctx, s.alice, "Replacement", "", "", "")
	s.NoError(err)
}

func (s *PersonaServiceSuite) TestUpdatePartialFields() {
	created, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "http://a/crow.png", "#222222", "hardboiled corvid")
	s.Require().NoError(err)

	clear := ""
	newBio := "retired"
	updated, err := s.service.Update(s.ctx, created.ID, s.alice, UpdateRequest{
		AvatarURL: &clear,
		Bio:       &newBio,
	})
	s.Require().NoError(err)
	// Untouched fields survive; explicit empty string clears
	s.Equal("Detective Crow", updated.Name)
	s.Equal("#222222", updated.Color)
	s.Equal("", updated.AvatarURL)
	s.Equal("retired", updated.Bio)
}

func (s *PersonaServiceSuite) TestUpdateRenameChecksUniqueness() {
	_, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.Require().NoError(err)
	second, err := s.service.Create(s.ctx, s.alice, "Night Owl", "", "", "")
	s.Require().NoError(err)

	taken := "Detective Crow"
	_, err = s.service.Update(s.ctx, second.ID, s.alice, UpdateRequest{Name: &taken})
	s.ErrorIs(err, model.ErrPersonaNameExists)

	// Renaming to its own current name is a no-op, not a conflict
	same := "Night Owl"
	_, err = s.service.Update(s.ctx, second.ID, s.alice, UpdateRequest{Name: &same})
	s.NoError(err)
}

func (s *PersonaServiceSuite) TestUpdateOtherUsersPersonaHidden() {
	created, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.Require().NoError(err)

	name := "Stolen"
	_, err = s.service.Update(s.ctx, created.ID, s.bob, UpdateRequest{Name: &name})
	s.ErrorIs(err, model.ErrPersonaNotFound)
}

func (s *PersonaServiceSuite) TestDeleteIsSoft() {
	created, err := s.service.Create(s.ctx, s.alice, "Detective Crow", "", "", "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Delete(s.ctx, created.ID, s.alice))

	// Gone from the user's view
	_, err = s.service.Get(s.ctx, created.ID, s.alice)
	s.ErrorIs(err, model.ErrPersonaNotFound)

	// But the row survives for message display history
	stored, err := s.storage.GetPersona(s.ctx, created.ID)
	s.Require().NoError(err)
	s.False(stored.IsActive)
}
