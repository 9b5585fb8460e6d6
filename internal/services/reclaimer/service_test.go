package reclaimer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/whisperhq/whisperd/internal/dependencies/groups"
	"github.com/whisperhq/whisperd/internal/dependencies/mocks"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/whisper"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	"github.com/whisperhq/whisperd/internal/testutil"
)

type ReclaimerSuite struct {
	suite.Suite

	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service

	ctx      context.Context
	streamID model.StreamID
}

func TestReclaimerSuite(t *testing.T) {
	suite.Run(t, new(ReclaimerSuite))
}

func (s *ReclaimerSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, testutil.NopLogger())

	s.streamID = "str_test"
	s.Require().NoError(s.storage.SaveStream(s.ctx, &model.Stream{
		ID:        s.streamID,
		Name:      "general",
		CreatedAt: s.clock.Now(),
	}))
}

func (s *ReclaimerSuite) savePuppet(id model.PuppetID, mode model.VisibilityMode, windowHours int) {
	s.Require().NoError(s.storage.CreatePuppet(s.ctx, &model.Puppet{
		ID:                       id,
		StreamID:                 s.streamID,
		Name:                     string(id),
		VisibilityMode:           mode,
		RecentHandlerWindowHours: windowHours,
		LastUsed:                 s.clock.Now(),
		CreatedAt:                s.clock.Now(),
	}))
}

func (s *ReclaimerSuite) saveHandler(puppetID model.PuppetID, userID model.UserID, handlerType model.HandlerType, age time.Duration) {
	s.Require().NoError(s.storage.SaveHandler(s.ctx, &model.HandlerAssociation{
		PuppetID: puppetID,
		UserID:   userID,
		Type:     handlerType,
		LastUsed: s.clock.Now().Add(-age),
	}))
}

func (s *ReclaimerSuite) TestSweepDeletesStaleRecentRows() {
	s.savePuppet("pup_a", model.VisibilityOpen, 24)
	s.saveHandler("pup_a", "u_fresh", model.HandlerRecent, 1*time.Hour)
	s.saveHandler("pup_a", "u_stale", model.HandlerRecent, 30*time.Hour)

	count, err := s.service.Sweep(s.ctx, s.clock.Now(), true)
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.storage.GetHandler(s.ctx, "pup_a", "u_stale")
	s.ErrorIs(err, model.ErrHandlerNotFound)
	_, err = s.storage.GetHandler(s.ctx, "pup_a", "u_fresh")
	s.NoError(err)
}

func (s *ReclaimerSuite) TestSweepDryRunCountsWithoutDeleting() {
	s.savePuppet("pup_a", model.VisibilityOpen, 24)
	s.saveHandler("pup_a", "u_stale", model.HandlerRecent, 30*time.Hour)

	count, err := s.service.Sweep(s.ctx, s.clock.Now(), false)
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.storage.GetHandler(s.ctx, "pup_a", "u_stale")
	s.NoError(err)
}

func (s *ReclaimerSuite) TestSweepNeverTouchesClaimedRows() {
	s.savePuppet("pup_a", model.VisibilityOpen, 24)
	s.saveHandler("pup_a", "u_claimed", model.HandlerClaimed, 90*24*time.Hour)

	count, err := s.service.Sweep(s.ctx, s.clock.Now(), true)
	s.Require().NoError(err)
	s.Equal(0, count)

	_, err = s.storage.GetHandler(s.ctx, "pup_a", "u_claimed")
	s.NoError(err)
}

func (s *ReclaimerSuite) TestSweepSkipsClaimedModePuppets() {
	s.savePuppet("pup_a", model.VisibilityClaimed, 24)
	s.saveHandler("pup_a", "u_old", model.HandlerRecent, 30*time.Hour)

	count, err := s.service.Sweep(s.ctx, s.clock.Now(), true)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *ReclaimerSuite) TestSweepHonorsPerPuppetWindows() {
	s.savePuppet("pup_short", model.VisibilityOpen, 1)
	s.savePuppet("pup_long", model.VisibilityOpen, 48)
	s.saveHandler("pup_short", "u_x", model.HandlerRecent, 2*time.Hour)
	s.saveHandler("pup_long", "u_x", model.HandlerRecent, 2*time.Hour)

	count, err := s.service.Sweep(s.ctx, s.clock.Now(), true)
	s.Require().NoError(err)
	s.Equal(1, count)

	_, err = s.storage.GetHandler(s.ctx, "pup_short", "u_x")
	s.ErrorIs(err, model.ErrHandlerNotFound)
	_, err = s.storage.GetHandler(s.ctx, "pup_long", "u_x")
	s.NoError(err)
}

// Sweeping changes no visibility outcome: an aged-out recent row already
// grants nothing before it is deleted.
func (s *ReclaimerSuite) TestSweepIsVisibilityNeutral() {
	s.savePuppet("pup_a", model.VisibilityOpen, 24)
	s.saveHandler("pup_a", "u_stale", model.HandlerRecent, 30*time.Hour)

	whispers := whisper.New(s.storage, groups.NewStatic(), s.clock, testutil.NopLogger())
	msg := &model.Message{
		ID:       "msg_1",
		Kind:     model.MessageKindChannel,
		StreamID: s.streamID,
		SenderID: "u_sender",
		Content:  "psst",
		Whisper:  &model.WhisperDescriptor{PuppetIDs: []model.PuppetID{"pup_a"}},
		SentAt:   s.clock.Now(),
	}

	before, err := whispers.CanView(s.ctx, msg, "u_stale", s.clock.Now())
	s.Require().NoError(err)

	_, err = s.service.Sweep(s.ctx, s.clock.Now(), true)
	s.Require().NoError(err)

	after, err := whispers.CanView(s.ctx, msg, "u_stale", s.clock.Now())
	s.Require().NoError(err)
	s.Equal(before, after)
	s.False(after)
}
