package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisperhq/whisperd/internal/api"
	"github.com/whisperhq/whisperd/internal/api/response"
	"github.com/whisperhq/whisperd/internal/factory"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:           logger,
		Clock:            app.Clock,
		AuthService:      app.AuthService,
		AgentService:     app.AgentService,
		StreamService:    app.StreamService,
		PuppetService:    app.PuppetService,
		MessageService:   app.MessageService,
		PersonaService:   app.PersonaService,
		ReclaimerService: app.ReclaimerService,
		EventBus:         app.EventBus,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// registerUser creates an account and returns its session token and user ID
func (ts *testServer) registerUser(t *testing.T, username string) (string, string) {
	t.Helper()
	body := map[string]string{
		"username":     username,
		"password":     "secret123",
		"display_name": username,
	}
	rr := ts.request(http.MethodPost, "/api/v1/users/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.SessionToken, resp.User.ID
}

// createStream makes a stream and returns its ID
func (ts *testServer) createStream(t *testing.T, token, name string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/streams", map[string]string{"name": name}, token)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.Stream
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.ID
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	token, userID := ts.registerUser(t, "alice")
	assert.NotEmpty(t, token)

	loginBody := map[string]string{"username": "alice", "password": "secret123"}
	rr := ts.request(http.MethodPost, "/api/v1/users/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.Equal(t, userID, loginResp.User.ID)
}

func TestGetMeRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, _ := ts.registerUser(t, "alice")
	rr = ts.request(http.MethodGet, "/api/v1/users/me", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPuppetRegistrationAndListing(t *testing.T) {
	ts := newTestServer(t)
	token, userID := ts.registerUser(t, "gm")
	streamID := ts.createStream(t, token, "campaign")

	rr := ts.request(http.MethodPost, "/api/v1/streams/"+streamID+"/puppets", map[string]string{"name": "Gandalf"}, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var puppet response.Puppet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &puppet))
	assert.Equal(t, "Gandalf", puppet.Name)
	assert.Equal(t, "open", puppet.VisibilityMode)
	assert.Equal(t, 24, puppet.RecentHandlerWindowHours)
	assert.Equal(t, userID, puppet.CreatedBy)

	rr = ts.request(http.MethodGet, "/api/v1/streams/"+streamID+"/puppets", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var list response.PuppetList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Puppets, 1)
	assert.Equal(t, puppet.ID, list.Puppets[0].ID)
}

func TestPuppetClaimFlow(t *testing.T) {
	ts := newTestServer(t)
	gmToken, _ := ts.registerUser(t, "gm")
	playerToken, playerID := ts.registerUser(t, "player")
	streamID := ts.createStream(t, gmToken, "campaign")

	rr := ts.request(http.MethodPost, "/api/v1/streams/"+streamID+"/puppets", map[string]string{"name": "Gandalf"}, gmToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var puppet response.Puppet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &puppet))

	// Player claims the puppet
	rr = ts.request(http.MethodPost, "/api/v1/puppets/"+puppet.ID+"/claim", nil, playerToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	var claimed response.Handler
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &claimed))
	assert.Equal(t, "claimed", claimed.Type)
	assert.Equal(t, playerID, claimed.UserID)

	// And unclaims
	rr = ts.request(http.MethodDelete, "/api/v1/puppets/"+puppet.ID+"/claim", nil, playerToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	var unclaim response.UnclaimResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &unclaim))
	assert.True(t, unclaim.Removed)
}

func TestSetVisibility(t *testing.T) {
	ts := newTestServer(t)
	gmToken, _ := ts.registerUser(t, "gm")
	otherToken, _ := ts.registerUser(t, "other")
	streamID := ts.createStream(t, gmToken, "campaign")

	rr := ts.request(http.MethodPost, "/api/v1/streams/"+streamID+"/puppets", map[string]string{"name": "Gandalf"}, gmToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var puppet response.Puppet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &puppet))

	// An uninvolved user may not change visibility
	body := map[string]any{"visibility_mode": "claimed"}
	rr = ts.request(http.MethodPatch, "/api/v1/puppets/"+puppet.ID+"/visibility", body, otherToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// The creator may
	body = map[string]any{"visibility_mode": "claimed", "recent_handler_window_hours": 48}
	rr = ts.request(http.MethodPatch, "/api/v1/puppets/"+puppet.ID+"/visibility", body, gmToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	var updated response.Puppet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "claimed", updated.VisibilityMode)
	assert.Equal(t, 48, updated.RecentHandlerWindowHours)

	// Bad inputs are rejected
	rr = ts.request(http.MethodPatch, "/api/v1/puppets/"+puppet.ID+"/visibility", map[string]any{"visibility_mode": "secret"}, gmToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWhisperVisibilityOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	gmToken, _ := ts.registerUser(t, "gm")
	aliceToken, aliceID := ts.registerUser(t, "alice")
	bobToken, _ := ts.registerUser(t, "bob")
	streamID := ts.createStream(t, gmToken, "campaign")

	// GM whispers to Alice
	body := map[string]any{
		"kind":      "channel",
		"stream_id": streamID,
		"content":   "the innkeeper is lying",
		"whisper":   map[string]any{"user_ids": []string{aliceID}},
	}
	rr := ts.request(http.MethodPost, "/api/v1/messages", body, gmToken)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var sent response.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sent))
	require.NotNil(t, sent.Whisper)

	// Alice sees it in the stream listing, Bob does not
	rr = ts.request(http.MethodGet, "/api/v1/streams/"+streamID+"/messages", nil, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var forAlice response.MessageList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &forAlice))
	assert.Len(t, forAlice.Messages, 1)

	rr = ts.request(http.MethodGet, "/api/v1/streams/"+streamID+"/messages", nil, bobToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var forBob response.MessageList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &forBob))
	assert.Empty(t, forBob.Messages)

	// Direct fetch behaves the same: invisible means 404
	rr = ts.request(http.MethodGet, "/api/v1/messages/"+sent.ID, nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWhisperToUnknownPuppetNamesOffender(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "gm")
	streamID := ts.createStream(t, token, "campaign")

	body := map[string]any{
		"kind":      "channel",
		"stream_id": streamID,
		"content":   "psst",
		"whisper":   map[string]any{"puppet_ids": []string{"pup_nope"}},
	}
	rr := ts.request(http.MethodPost, "/api/v1/messages", body, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "pup_nope")
}

func TestWhisperOnDirectMessageRejected(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "gm")
	_, aliceID := ts.registerUser(t, "alice")
	_, bobID := ts.registerUser(t, "bob")

	body := map[string]any{
		"kind":      "direct",
		"direct_to": []string{aliceID},
		"content":   "psst",
		"whisper":   map[string]any{"user_ids": []string{bobID}},
	}
	rr := ts.request(http.MethodPost, "/api/v1/messages", body, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "WHISPER_ON_DIRECT_MESSAGE")
}

func TestPersonaCRUD(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "alice")

	body := map[string]string{"name": "Night Owl", "color": "#112233"}
	rr := ts.request(http.MethodPost, "/api/v1/personas", body, token)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var created response.Persona
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// Duplicate name conflicts
	rr = ts.request(http.MethodPost, "/api/v1/personas", body, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Partial update
	rr = ts.request(http.MethodPatch, "/api/v1/personas/"+created.ID, map[string]string{"bio": "nocturnal"}, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var updated response.Persona
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "nocturnal", updated.Bio)
	assert.Equal(t, "#112233", updated.Color)

	// Delete then list empty
	rr = ts.request(http.MethodDelete, "/api/v1/personas/"+created.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/personas", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	var list response.PersonaList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list.Personas)
}

func TestAgentRegisterAndAPIKeyAuth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/agents/register", map[string]string{"agent_name": "crow-bot"}, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	var reg struct {
		UserID    string `json:"user_id"`
		APIKey    string `json:"api_key"`
		ClaimURL  string `json:"claim_url"`
		AgentName string `json:"agent_name"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.APIKey)
	assert.NotEmpty(t, reg.ClaimURL)

	// The API key authenticates requests via the X-API-Key header
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("X-API-Key", reg.APIKey)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var me response.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, reg.UserID, me.ID)
	assert.True(t, me.IsAgent)

	// Status endpoint never leaks the key
	rr = ts.request(http.MethodGet, "/api/v1/agents/crow-bot", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), reg.APIKey)
}

func TestSweepEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerUser(t, "gm")
	streamID := ts.createStream(t, token, "campaign")

	rr := ts.request(http.MethodPost, "/api/v1/streams/"+streamID+"/puppets", map[string]string{"name": "Gandalf"}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	ts.app.MockClock.Advance(48 * time.Hour)

	// Dry run by default
	rr = ts.request(http.MethodPost, "/api/v1/maintenance/sweep-handlers", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	var sweep response.SweepResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sweep))
	assert.Equal(t, 1, sweep.Stale)
	assert.False(t, sweep.Committed)

	// Commit
	rr = ts.request(http.MethodPost, "/api/v1/maintenance/sweep-handlers", map[string]bool{"commit": true}, token)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sweep))
	assert.Equal(t, 1, sweep.Stale)
	assert.True(t, sweep.Committed)

	// Nothing left on a second pass
	rr = ts.request(http.MethodPost, "/api/v1/maintenance/sweep-handlers", nil, token)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sweep))
	assert.Equal(t, 0, sweep.Stale)
}
