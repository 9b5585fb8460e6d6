package puppet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/whisperhq/whisperd/internal/dependencies/mocks"
	"github.com/whisperhq/whisperd/internal/events"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	"github.com/whisperhq/whisperd/internal/testutil"
)

type PuppetServiceSuite struct {
	suite.Suite

	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service

	ctx      context.Context
	streamID model.StreamID
	alice    model.UserID
	bob      model.UserID
}

func TestPuppetServiceSuite(t *testing.T) {
	suite.Run(t, new(PuppetServiceSuite))
}

func (s *PuppetServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.random.QueueString("aaa000000001", "aaa000000002", "aaa000000003", "aaa000000004")

	logger := testutil.NopLogger()
	s.service = New(s.storage, events.NewBus(logger), s.clock, s.random, logger)

	s.streamID = "str_test"
	s.Require().NoError(s.storage.SaveStream(s.ctx, &model.Stream{
		ID:        s.streamID,
		Name:      "general",
		CreatedAt: s.clock.Now(),
	}))

	s.alice = "u_alice"
	s.bob = "u_bob"
	for _, id := range []model.UserID{s.alice, s.bob} {
		s.Require().NoError(s.storage.SaveUser(s.ctx, &model.User{
			ID:        id,
			CreatedAt: s.clock.Now(),
		}))
	}
}

func (s *PuppetServiceSuite) TestRegisterCreatesOpenPuppetWithDefaults() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	s.Equal(model.PuppetID("pup_aaa000000001"), puppet.ID)
	s.Equal(model.VisibilityOpen, puppet.VisibilityMode)
	s.Equal(model.DefaultRecentHandlerWindowHours, puppet.RecentHandlerWindowHours)
	s.Equal(s.alice, puppet.CreatedBy)
	s.Equal(s.clock.Now(), puppet.LastUsed)
}

func (s *PuppetServiceSuite) TestRegisterRecordsSenderAsRecentHandler() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	handler, err := s.storage.GetHandler(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(model.HandlerRecent, handler.Type)
	s.Equal(s.clock.Now(), handler.LastUsed)
}

func (s *PuppetServiceSuite) TestRegisterSameNameRefreshesExistingRow() {
	first, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "http://a/1.png", nil, s.alice)
	s.Require().NoError(err)

	s.clock.Advance(1 * time.Hour)
	second, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.bob)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(s.clock.Now(), second.LastUsed)
	// Empty avatar leaves the stored one intact
	s.Equal("http://a/1.png", second.AvatarURL)
}

func (s *PuppetServiceSuite) TestRegisterExplicitEmptyColorClears() {
	blue := "#0000ff"
	_, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", &blue, s.alice)
	s.Require().NoError(err)

	clear := ""
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", &clear, s.alice)
	s.Require().NoError(err)
	s.Equal("", puppet.Color)
}

func (s *PuppetServiceSuite) TestRegisterDoesNotDowngradeClaimedHandler() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	_, err = s.service.Claim(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)
	_, err = s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	handler, err := s.storage.GetHandler(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(model.HandlerClaimed, handler.Type)
	s.Equal(s.clock.Now(), handler.LastUsed)
}

func (s *PuppetServiceSuite) TestRegisterUnknownStreamFails() {
	_, err := s.service.RegisterOrRefresh(s.ctx, "str_nope", "Gandalf", "", nil, s.alice)
	s.ErrorIs(err, model.ErrStreamNotFound)
}

func (s *PuppetServiceSuite) TestSameNameInDifferentStreamsIsDistinct() {
	otherStream := model.StreamID("str_other")
	s.Require().NoError(s.storage.SaveStream(s.ctx, &model.Stream{ID: otherStream, Name: "other", CreatedAt: s.clock.Now()}))

	first, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	second, err := s.service.RegisterOrRefresh(s.ctx, otherStream, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	s.NotEqual(first.ID, second.ID)
}

func (s *PuppetServiceSuite) TestClaimCreatesClaimedHandler() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	handler, err := s.service.Claim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)
	s.Equal(model.HandlerClaimed, handler.Type)
}

func (s *PuppetServiceSuite) TestClaimUpgradesRecentHandler() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	handler, err := s.storage.GetHandler(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(model.HandlerRecent, handler.Type)

	claimed, err := s.service.Claim(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(model.HandlerClaimed, claimed.Type)
}

func (s *PuppetServiceSuite) TestClaimIsIdempotent() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	_, err = s.service.Claim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)
	_, err = s.service.Claim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)

	handlers, err := s.service.Handlers(s.ctx, puppet.ID)
	s.Require().NoError(err)
	count := 0
	for _, h := range handlers {
		if h.UserID == s.bob {
			count++
		}
	}
	s.Equal(1, count)
}

func (s *PuppetServiceSuite) TestClaimUnknownPuppetFails() {
	_, err := s.service.Claim(s.ctx, "pup_nope", s.alice)
	s.ErrorIs(err, model.ErrPuppetNotFound)

	var invalid *model.InvalidPuppetError
	s.ErrorAs(err, &invalid)
	s.Equal(model.PuppetID("pup_nope"), invalid.PuppetID)
}

func (s *PuppetServiceSuite) TestUnclaimRemovesOnlyClaimedRows() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	// Alice's row is recent, not claimed; unclaim is a no-op
	removed, err := s.service.Unclaim(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.False(removed)

	handler, err := s.storage.GetHandler(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(model.HandlerRecent, handler.Type)
}

func (s *PuppetServiceSuite) TestUnclaimDeletesClaim() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	_, err = s.service.Claim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)

	removed, err := s.service.Unclaim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)
	s.True(removed)

	_, err = s.storage.GetHandler(s.ctx, puppet.ID, s.bob)
	s.ErrorIs(err, model.ErrHandlerNotFound)
}

func (s *PuppetServiceSuite) TestUnclaimMissingHandlerIsNoOp() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	removed, err := s.service.Unclaim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)
	s.False(removed)
}

func (s *PuppetServiceSuite) TestSetVisibilityByCreator() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	window := 48
	updated, err := s.service.SetVisibility(s.ctx, puppet.ID, s.alice, model.VisibilityClaimed, &window)
	s.Require().NoError(err)
	s.Equal(model.VisibilityClaimed, updated.VisibilityMode)
	s.Equal(48, updated.RecentHandlerWindowHours)
}

func (s *PuppetServiceSuite) TestSetVisibilityKeepsWindowWhenOmitted() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	updated, err := s.service.SetVisibility(s.ctx, puppet.ID, s.alice, model.VisibilityClaimed, nil)
	s.Require().NoError(err)
	s.Equal(model.DefaultRecentHandlerWindowHours, updated.RecentHandlerWindowHours)
}

func (s *PuppetServiceSuite) TestSetVisibilityByClaimedHandler() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	_, err = s.service.Claim(s.ctx, puppet.ID, s.bob)
	s.Require().NoError(err)

	_, err = s.service.SetVisibility(s.ctx, puppet.ID, s.bob, model.VisibilityClaimed, nil)
	s.NoError(err)
}

func (s *PuppetServiceSuite) TestSetVisibilityRejectsOutsiders() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	_, err = s.service.SetVisibility(s.ctx, puppet.ID, s.bob, model.VisibilityClaimed, nil)
	s.ErrorIs(err, model.ErrUnauthorizedClaim)
}

func (s *PuppetServiceSuite) TestSetVisibilityValidatesInput() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	_, err = s.service.SetVisibility(s.ctx, puppet.ID, s.alice, "secret", nil)
	s.ErrorIs(err, model.ErrInvalidVisibility)

	zero := 0
	_, err = s.service.SetVisibility(s.ctx, puppet.ID, s.alice, model.VisibilityOpen, &zero)
	s.ErrorIs(err, model.ErrInvalidWindow)
}

func (s *PuppetServiceSuite) TestHandledPuppetIDsAppliesWindowInOpenMode() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)

	// 23h later the recent row still qualifies
	s.clock.Advance(23 * time.Hour)
	ids, err := s.service.HandledPuppetIDs(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Equal([]model.PuppetID{puppet.ID}, ids)

	// 25h later it has aged out
	s.clock.Advance(2 * time.Hour)
	ids, err = s.service.HandledPuppetIDs(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *PuppetServiceSuite) TestHandledPuppetIDsClaimedModeIgnoresTimestamps() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	_, err = s.service.Claim(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)
	_, err = s.service.SetVisibility(s.ctx, puppet.ID, s.alice, model.VisibilityClaimed, nil)
	s.Require().NoError(err)

	s.clock.Advance(30 * 24 * time.Hour)
	ids, err := s.service.HandledPuppetIDs(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Equal([]model.PuppetID{puppet.ID}, ids)
}

func (s *PuppetServiceSuite) TestHandledPuppetIDsOpenModeWindowsClaimedRowsToo() {
	puppet, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	_, err = s.service.Claim(s.ctx, puppet.ID, s.alice)
	s.Require().NoError(err)

	// Open mode windows every handler row, claimed included
	s.clock.Advance(25 * time.Hour)
	ids, err := s.service.HandledPuppetIDs(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *PuppetServiceSuite) TestListReturnsStreamPuppets() {
	_, err := s.service.RegisterOrRefresh(s.ctx, s.streamID, "Gandalf", "", nil, s.alice)
	s.Require().NoError(err)
	s.clock.Advance(time.Minute)
	_, err = s.service.RegisterOrRefresh(s.ctx, s.streamID, "Saruman", "", nil, s.bob)
	s.Require().NoError(err)

	puppets, err := s.service.List(s.ctx, s.streamID)
	s.Require().NoError(err)
	s.Require().Len(puppets, 2)
	// Most recently used first
	s.Equal("Saruman", puppets[0].Name)
	s.Equal("Gandalf", puppets[1].Name)
}
