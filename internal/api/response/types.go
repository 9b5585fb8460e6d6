package response

import (
	"time"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/auth"
)

// User represents a user in API responses
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsAgent     bool   `json:"is_agent,omitempty"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		IsAgent:     u.IsAgent,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(&s.User),
		SessionToken: s.Token,
	}
}

// Stream represents a stream in API responses
type Stream struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamFromModel converts model.Stream
func StreamFromModel(s *model.Stream) Stream {
	return Stream{
		ID:        string(s.ID),
		Name:      s.Name,
		CreatedBy: string(s.CreatedBy),
		CreatedAt: s.CreatedAt,
	}
}

// Puppet represents a puppet in API responses
type Puppet struct {
	ID                       string    `json:"id"`
	StreamID                 string    `json:"stream_id"`
	Name                     string    `json:"name"`
	AvatarURL                string    `json:"avatar_url,omitempty"`
	Color                    string    `json:"color,omitempty"`
	CreatedBy                string    `json:"created_by"`
	VisibilityMode           string    `json:"visibility_mode"`
	RecentHandlerWindowHours int       `json:"recent_handler_window_hours"`
	LastUsed                 time.Time `json:"last_used"`
	CreatedAt                time.Time `json:"created_at"`
}

// PuppetFromModel converts model.Puppet
func PuppetFromModel(p *model.Puppet) Puppet {
	return Puppet{
		ID:                       string(p.ID),
		StreamID:                 string(p.StreamID),
		Name:                     p.Name,
		AvatarURL:                p.AvatarURL,
		Color:                    p.Color,
		CreatedBy:                string(p.CreatedBy),
		VisibilityMode:           string(p.VisibilityMode),
		RecentHandlerWindowHours: p.RecentHandlerWindowHours,
		LastUsed:                 p.LastUsed,
		CreatedAt:                p.CreatedAt,
	}
}

// PuppetList is the response for listing a stream's puppets
type PuppetList struct {
	Puppets []Puppet `json:"puppets"`
}

// PuppetListFromModel converts a slice of model.Puppet
func PuppetListFromModel(puppets []*model.Puppet) PuppetList {
	out := make([]Puppet, len(puppets))
	for i, p := range puppets {
		out[i] = PuppetFromModel(p)
	}
	return PuppetList{Puppets: out}
}

// Handler represents a handler association in API responses
type Handler struct {
	PuppetID string    `json:"puppet_id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"handler_type"`
	LastUsed time.Time `json:"last_used"`
}

// HandlerFromModel converts model.HandlerAssociation
func HandlerFromModel(h *model.HandlerAssociation) Handler {
	return Handler{
		PuppetID: string(h.PuppetID),
		UserID:   string(h.UserID),
		Type:     string(h.Type),
		LastUsed: h.LastUsed,
	}
}

// HandlerList is the response for listing a puppet's handlers
type HandlerList struct {
	Handlers []Handler `json:"handlers"`
}

// HandlerListFromModel converts a slice of model.HandlerAssociation
func HandlerListFromModel(handlers []*model.HandlerAssociation) HandlerList {
	out := make([]Handler, len(handlers))
	for i, h := range handlers {
		out[i] = HandlerFromModel(h)
	}
	return HandlerList{Handlers: out}
}

// UnclaimResponse reports whether an unclaim removed anything
type UnclaimResponse struct {
	Removed bool `json:"removed"`
}

// Whisper represents a whisper descriptor in API responses
type Whisper struct {
	UserIDs   []string `json:"user_ids,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
	PuppetIDs []string `json:"puppet_ids,omitempty"`
}

// WhisperFromModel converts model.WhisperDescriptor
func WhisperFromModel(d *model.WhisperDescriptor) *Whisper {
	if d.IsZero() {
		return nil
	}
	w := &Whisper{}
	for _, id := range d.UserIDs {
		w.UserIDs = append(w.UserIDs, string(id))
	}
	for _, id := range d.GroupIDs {
		w.GroupIDs = append(w.GroupIDs, string(id))
	}
	for _, id := range d.PuppetIDs {
		w.PuppetIDs = append(w.PuppetIDs, string(id))
	}
	return w
}

// Message represents a message in API responses
type Message struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	StreamID   string    `json:"stream_id,omitempty"`
	SenderID   string    `json:"sender_id"`
	Topic      string    `json:"topic,omitempty"`
	Content    string    `json:"content"`
	PuppetName string    `json:"puppet_name,omitempty"`
	Whisper    *Whisper  `json:"whisper,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// MessageFromModel converts model.Message
func MessageFromModel(m *model.Message) Message {
	msg := Message{
		ID:         string(m.ID),
		Kind:       string(m.Kind),
		StreamID:   string(m.StreamID),
		SenderID:   string(m.SenderID),
		Topic:      m.Topic,
		Content:    m.Content,
		PuppetName: m.PuppetName,
		SentAt:     m.SentAt,
	}
	if m.Whisper != nil {
		msg.Whisper = WhisperFromModel(m.Whisper)
	}
	return msg
}

// MessageList is the response for listing a stream's messages
type MessageList struct {
	Messages []Message `json:"messages"`
}

// MessageListFromModel converts a slice of model.Message
func MessageListFromModel(msgs []*model.Message) MessageList {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = MessageFromModel(m)
	}
	return MessageList{Messages: out}
}

// Persona represents a persona in API responses
type Persona struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Color     string    `json:"color,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonaFromModel converts model.Persona
func PersonaFromModel(p *model.Persona) Persona {
	return Persona{
		ID:        string(p.ID),
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Color:     p.Color,
		Bio:       p.Bio,
		CreatedAt: p.CreatedAt,
	}
}

// PersonaList is the response for listing a user's personas
type PersonaList struct {
	Personas []Persona `json:"personas"`
}

// PersonaListFromModel converts a slice of model.Persona
func PersonaListFromModel(personas []*model.Persona) PersonaList {
	out := make([]Persona, len(personas))
	for i, p := range personas {
		out[i] = PersonaFromModel(p)
	}
	return PersonaList{Personas: out}
}

// AgentStatus represents an agent's verification state
type AgentStatus struct {
	AgentName string     `json:"agent_name"`
	UserID    string     `json:"user_id"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	TweetURL  string     `json:"tweet_url,omitempty"`
}

// AgentStatusFromModel converts model.AgentClaim, omitting secrets
func AgentStatusFromModel(c *model.AgentClaim) AgentStatus {
	return AgentStatus{
		AgentName: c.AgentName,
		UserID:    string(c.UserID),
		Claimed:   c.Claimed,
		ClaimedAt: c.ClaimedAt,
		TweetURL:  c.TweetURL,
	}
}

// SweepResponse reports the outcome of a stale-handler sweep
type SweepResponse struct {
	Stale     int  `json:"stale"`
	Committed bool `json:"committed"`
}
