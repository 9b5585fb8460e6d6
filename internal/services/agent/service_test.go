package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/whisperhq/whisperd/internal/dependencies/mocks"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage/memory"
	"github.com/whisperhq/whisperd/internal/testutil"
)

type AgentServiceSuite struct {
	suite.Suite

	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service

	ctx       context.Context
	tweetHTML string
}

func TestAgentServiceSuite(t *testing.T) {
	suite.Run(t, new(AgentServiceSuite))
}

func (s *AgentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.random.QueueString("agentuser001", "A1B2", "agentuser002", "C3D4")

	s.service = New(s.storage, s.clock, s.random, http.DefaultClient, "https://whisper.example", testutil.NopLogger())
}

// verifyThrough rebuilds the service with a transport that serves the
// given HTML for any tweet URL
func (s *AgentServiceSuite) verifyThrough(html string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	s.T().Cleanup(server.Close)

	client := &http.Client{Transport: rewriteTransport{target: server.URL[len("http://"):]}}
	s.service = New(s.storage, s.clock, s.random, client, "https://whisper.example", testutil.NopLogger())
	return server
}

// rewriteTransport redirects all requests to the test server over plain HTTP
type rewriteTransport struct {
	target string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.target
	return http.DefaultTransport.RoundTrip(req)
}

func (s *AgentServiceSuite) TestRegisterIssuesKeyAndClaimURL() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	s.Equal("crow-bot", reg.AgentName)
	s.Equal(model.UserID("u_agentuser001"), reg.UserID)
	s.NotEmpty(reg.APIKey)
	s.Equal("A1B2", reg.VerificationCode)
	s.Equal("https://whisper.example/claim/A1B2", reg.ClaimURL)

	user, err := s.storage.GetUser(s.ctx, reg.UserID)
	s.Require().NoError(err)
	s.True(user.IsAgent)
}

func (s *AgentServiceSuite) TestRegisterValidatesName() {
	for _, name := range []string{"", "ab", "has space", "bad!chars", "名前"} {
		_, err := s.service.Register(s.ctx, name)
		s.ErrorIs(err, model.ErrInvalidAgentName, "name %q", name)
	}
}

func (s *AgentServiceSuite) TestRegisterRejectsTakenName() {
	_, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "crow-bot")
	s.ErrorIs(err, model.ErrAgentNameExists)
}

func (s *AgentServiceSuite) TestClaimSucceedsWhenTweetContainsCode() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	s.verifyThrough(`<html><body><p>vouching for my agent, code A1B2</p></body></html>`)
	claim, err := s.service.Claim(s.ctx, reg.VerificationCode, "https://x.com/someone/status/123")
	s.Require().NoError(err)

	s.True(claim.Claimed)
	s.Require().NotNil(claim.ClaimedAt)
	s.Equal(s.clock.Now(), *claim.ClaimedAt)
	s.Equal("https://x.com/someone/status/123", claim.TweetURL)
}

func (s *AgentServiceSuite) TestClaimFailsWhenCodeMissing() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	s.verifyThrough(`<html><body><p>just a normal post</p></body></html>`)
	_, err = s.service.Claim(s.ctx, reg.VerificationCode, "https://x.com/someone/status/123")
	s.ErrorIs(err, model.ErrVerificationFailed)

	status, err := s.service.Status(s.ctx, "crow-bot")
	s.Require().NoError(err)
	s.False(status.Claimed)
}

func (s *AgentServiceSuite) TestClaimValidatesTweetURL() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	for _, bad := range []string{
		"http://x.com/someone/status/123",
		"https://example.com/someone/status/123",
		"https://x.com/someone",
		"not a url",
	} {
		_, err := s.service.Claim(s.ctx, reg.VerificationCode, bad)
		s.ErrorIs(err, model.ErrInvalidTweetURL, "url %q", bad)
	}
}

func (s *AgentServiceSuite) TestClaimUnknownCode() {
	_, err := s.service.Claim(s.ctx, "ZZZZ", "https://x.com/someone/status/123")
	s.ErrorIs(err, model.ErrAgentClaimNotFound)
}

func (s *AgentServiceSuite) TestClaimIsIdempotent() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	s.verifyThrough(`<html><body>A1B2</body></html>`)
	first, err := s.service.Claim(s.ctx, reg.VerificationCode, "https://x.com/someone/status/123")
	s.Require().NoError(err)

	// The second claim returns the record without re-fetching anything
	s.service = New(s.storage, s.clock, s.random, nil, "https://whisper.example", testutil.NopLogger())
	second, err := s.service.Claim(s.ctx, reg.VerificationCode, "https://x.com/other/status/456")
	s.Require().NoError(err)
	s.Equal(first.TweetURL, second.TweetURL)
}

func (s *AgentServiceSuite) TestAuthenticateByAPIKey() {
	reg, err := s.service.Register(s.ctx, "crow-bot")
	s.Require().NoError(err)

	user, err := s.service.Authenticate(s.ctx, reg.APIKey)
	s.Require().NoError(err)
	s.Equal(reg.UserID, user.ID)

	_, err = s.service.Authenticate(s.ctx, "not-a-key")
	s.ErrorIs(err, model.ErrAgentClaimNotFound)
}
