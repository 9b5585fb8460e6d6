package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/whisperhq/whisperd/internal/dependencies/clock"
	"github.com/whisperhq/whisperd/internal/dependencies/random"
	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/storage"
)

const (
	userIDLength = 12
	idAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"

	codeLength   = 4
	codeAlphabet = "0123456789ABCDEF"
)

var agentNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// Hosts accepted for verification tweet links
var tweetHosts = map[string]bool{
	"twitter.com":     true,
	"www.twitter.com": true,
	"x.com":           true,
	"www.x.com":       true,
}

// Service handles agent self-registration and human verification. An
// agent registers itself and receives an API key plus a claim URL; a
// human vouches for the agent by posting the verification code publicly
// and submitting the post's URL.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// New creates a new agent service. baseURL is the public URL claim links
// are built against.
func New(store storage.Storage, clk clock.Clock, rnd random.Random, client *http.Client, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		clock:   clk,
		random:  rnd,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("service", "agent")),
	}
}

// Registration is returned once at registration time; the API key is not
// retrievable afterwards.
type Registration struct {
	UserID           model.UserID `json:"user_id"`
	AgentName        string       `json:"agent_name"`
	APIKey           string       `json:"api_key"`
	VerificationCode string       `json:"verification_code"`
	ClaimURL         string       `json:"claim_url"`
}

// Register creates an agent user and its unclaimed verification record
func (s *Service) Register(ctx context.Context, agentName string) (*Registration, error) {
	if !agentNamePattern.MatchString(agentName) {
		return nil, model.ErrInvalidAgentName
	}

	existing, err := s.storage.GetAgentClaimByName(ctx, agentName)
	if err != nil && !errors.Is(err, model.ErrAgentClaimNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, model.ErrAgentNameExists
	}

	now := s.clock.Now()
	user := &model.User{
		ID:          model.UserID("u_" + s.random.String(userIDLength, idAlphabet)),
		DisplayName: agentName,
		IsAgent:     true,
		CreatedAt:   now,
	}
	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	claim := &model.AgentClaim{
		UserID:           user.ID,
		AgentName:        agentName,
		APIKey:           uuid.NewString(),
		VerificationCode: s.random.String(codeLength, codeAlphabet),
		CreatedAt:        now,
	}
	if err := s.storage.SaveAgentClaim(ctx, claim); err != nil {
		return nil, err
	}

	s.logger.Info("agent registered",
		slog.String("agent_name", agentName),
		slog.String("user_id", string(user.ID)))
	return &Registration{
		UserID:           user.ID,
		AgentName:        agentName,
		APIKey:           claim.APIKey,
		VerificationCode: claim.VerificationCode,
		ClaimURL:         fmt.Sprintf("%s/claim/%s", s.baseURL, claim.VerificationCode),
	}, nil
}

// Claim verifies an agent by fetching the given tweet and checking that
// it contains the verification code. Claiming an already-claimed record
// is a no-op.
func (s *Service) Claim(ctx context.Context, code, tweetURL string) (*model.AgentClaim, error) {
	claim, err := s.storage.GetAgentClaimByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if claim.Claimed {
		return claim, nil
	}

	if err := validateTweetURL(tweetURL); err != nil {
		return nil, err
	}
	ok, err := s.tweetContainsCode(ctx, tweetURL, claim.VerificationCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrVerificationFailed
	}

	now := s.clock.Now()
	claim.Claimed = true
	claim.ClaimedAt = &now
	claim.TweetURL = tweetURL
	if err := s.storage.SaveAgentClaim(ctx, claim); err != nil {
		return nil, err
	}

	s.logger.Info("agent claimed",
		slog.String("agent_name", claim.AgentName),
		slog.String("tweet_url", tweetURL))
	return claim, nil
}

// Status returns the verification record for an agent name
func (s *Service) Status(ctx context.Context, agentName string) (*model.AgentClaim, error) {
	return s.storage.GetAgentClaimByName(ctx, agentName)
}

// Authenticate resolves an API key to its agent user
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*model.User, error) {
	claim, err := s.storage.GetAgentClaimByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return s.storage.GetUser(ctx, claim.UserID)
}

func validateTweetURL(tweetURL string) error {
	parsed, err := url.Parse(tweetURL)
	if err != nil || parsed.Scheme != "https" {
		return model.ErrInvalidTweetURL
	}
	if !tweetHosts[parsed.Host] {
		return model.ErrInvalidTweetURL
	}
	if !strings.Contains(parsed.Path, "/status/") {
		return model.ErrInvalidTweetURL
	}
	return nil
}

// tweetContainsCode fetches the tweet page and searches its visible text
// for the verification code
func (s *Service) tweetContainsCode(ctx context.Context, tweetURL, code string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tweetURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetching tweet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fetching tweet: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parsing tweet page: %w", err)
	}
	return strings.Contains(doc.Text(), code), nil
}
