package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case Stream:
		o.printStream(v)
	case StreamList:
		o.printStreamList(v)
	case Puppet:
		o.printPuppet(v)
	case PuppetList:
		o.printPuppetList(v)
	case Handler:
		o.printHandler(v)
	case HandlerList:
		o.printHandlerList(v)
	case UnclaimResult:
		o.printUnclaimResult(v)
	case Message:
		o.printChatMessage(v)
	case MessageList:
		o.printMessageList(v)
	case Persona:
		o.printPersona(v)
	case PersonaList:
		o.printPersonaList(v)
	case AgentRegistration:
		o.printAgentRegistration(v)
	case AgentStatus:
		o.printAgentStatus(v)
	case SweepResult:
		o.printSweepResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsAgent     bool   `json:"is_agent,omitempty"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

// Stream response type
type Stream struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamList response type
type StreamList struct {
	Streams []Stream `json:"streams"`
}

// Puppet response type
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

// PuppetList response type
type PuppetList struct {
	Puppets []Puppet `json:"puppets"`
}

// Handler response type
type Handler struct {
	PuppetID string    `json:"puppet_id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"handler_type"`
	LastUsed time.Time `json:"last_used"`
}

// HandlerList response type
type HandlerList struct {
	Handlers []Handler `json:"handlers"`
}

// UnclaimResult response type
type UnclaimResult struct {
	Removed bool `json:"removed"`
}

// Whisper response type
type Whisper struct {
	UserIDs   []string `json:"user_ids,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
	PuppetIDs []string `json:"puppet_ids,omitempty"`
}

// Message response type
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

// MessageList response type
type MessageList struct {
	Messages []Message `json:"messages"`
}

// Persona response type
type Persona struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Color     string    `json:"color,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PersonaList response type
type PersonaList struct {
	Personas []Persona `json:"personas"`
}

// AgentRegistration response type
type AgentRegistration struct {
	UserID           string `json:"user_id"`
	AgentName        string `json:"agent_name"`
	APIKey           string `json:"api_key"`
	VerificationCode string `json:"verification_code"`
	ClaimURL         string `json:"claim_url"`
}

// AgentStatus response type
type AgentStatus struct {
	AgentName string     `json:"agent_name"`
	UserID    string     `json:"user_id"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
	TweetURL  string     `json:"tweet_url,omitempty"`
}

// SweepResult response type
type SweepResult struct {
	Stale     int  `json:"stale"`
	Committed bool `json:"committed"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	agentStr := "no"
	if u.IsAgent {
		agentStr = "yes"
	}
	fmt.Printf("User: %s (%s)\n", u.DisplayName, u.ID)
	fmt.Printf("Agent: %s\n", agentStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printStream(s Stream) {
	fmt.Printf("Stream: %s (%s)\n", s.Name, s.ID)
	fmt.Printf("Created: %s\n", s.CreatedAt.Format(time.RFC3339))
}

func (o *Output) printStreamList(l StreamList) {
	fmt.Printf("Streams (%d):\n", len(l.Streams))
	for _, s := range l.Streams {
		fmt.Printf("  - %s (%s)\n", s.Name, s.ID)
	}
}

func (o *Output) printPuppet(p Puppet) {
	fmt.Printf("Puppet: %s (%s)\n", p.Name, p.ID)
	fmt.Printf("Stream: %s\n", p.StreamID)
	fmt.Printf("Visibility: %s", p.VisibilityMode)
	if p.VisibilityMode == "open" {
		fmt.Printf(" (window: %dh)", p.RecentHandlerWindowHours)
	}
	fmt.Println()
	if p.Color != "" {
		fmt.Printf("Color: %s\n", p.Color)
	}
	fmt.Printf("Last Used: %s\n", p.LastUsed.Format(time.RFC3339))
}

func (o *Output) printPuppetList(l PuppetList) {
	fmt.Printf("Puppets (%d):\n", len(l.Puppets))
	for _, p := range l.Puppets {
		fmt.Printf("  - %s (%s) - %s, last used %s\n",
			p.Name, p.ID, p.VisibilityMode, p.LastUsed.Format("2006-01-02 15:04"))
	}
}

func (o *Output) printHandler(h Handler) {
	fmt.Printf("Handler: %s\n", h.UserID)
	fmt.Printf("Puppet: %s\n", h.PuppetID)
	fmt.Printf("Type: %s\n", h.Type)
	fmt.Printf("Last Used: %s\n", h.LastUsed.Format(time.RFC3339))
}

func (o *Output) printHandlerList(l HandlerList) {
	fmt.Printf("Handlers (%d):\n", len(l.Handlers))
	for _, h := range l.Handlers {
		fmt.Printf("  - %s [%s] last used %s\n",
			h.UserID, h.Type, h.LastUsed.Format("2006-01-02 15:04"))
	}
}

func (o *Output) printUnclaimResult(u UnclaimResult) {
	if u.Removed {
		fmt.Println("Claim removed")
	} else {
		fmt.Println("Nothing to remove")
	}
}

func (o *Output) printChatMessage(m Message) {
	sender := m.SenderID
	if m.PuppetName != "" {
		sender = fmt.Sprintf("%s (as %s)", m.SenderID, m.PuppetName)
	}
	ts := m.SentAt.Format("2006-01-02 15:04")
	whisperStr := ""
	if m.Whisper != nil {
		parts := []string{}
		parts = append(parts, m.Whisper.UserIDs...)
		parts = append(parts, m.Whisper.GroupIDs...)
		parts = append(parts, m.Whisper.PuppetIDs...)
		whisperStr = fmt.Sprintf(" [whisper to %s]", strings.Join(parts, ", "))
	}
	fmt.Printf("[%s] %s%s: %s\n", ts, sender, whisperStr, m.Content)
}

func (o *Output) printMessageList(l MessageList) {
	for _, m := range l.Messages {
		o.printChatMessage(m)
	}
	if len(l.Messages) == 0 {
		fmt.Println("No visible messages")
	}
}

func (o *Output) printPersona(p Persona) {
	fmt.Printf("Persona: %s (%s)\n", p.Name, p.ID)
	if p.Color != "" {
		fmt.Printf("Color: %s\n", p.Color)
	}
	if p.Bio != "" {
		fmt.Printf("Bio: %s\n", p.Bio)
	}
}

func (o *Output) printPersonaList(l PersonaList) {
	fmt.Printf("Personas (%d):\n", len(l.Personas))
	for _, p := range l.Personas {
		fmt.Printf("  - %s (%s)\n", p.Name, p.ID)
	}
}

func (o *Output) printAgentRegistration(r AgentRegistration) {
	fmt.Printf("Agent: %s (%s)\n", r.AgentName, r.UserID)
	fmt.Printf("API Key: %s\n", r.APIKey)
	fmt.Printf("Verification Code: %s\n", r.VerificationCode)
	fmt.Printf("Claim URL: %s\n", r.ClaimURL)
	fmt.Println()
	fmt.Println("Save the API key now - it will not be shown again.")
}

func (o *Output) printAgentStatus(s AgentStatus) {
	claimedStr := "no"
	if s.Claimed {
		claimedStr = "yes"
	}
	fmt.Printf("Agent: %s (%s)\n", s.AgentName, s.UserID)
	fmt.Printf("Claimed: %s\n", claimedStr)
	if s.ClaimedAt != nil {
		fmt.Printf("Claimed At: %s\n", s.ClaimedAt.Format(time.RFC3339))
	}
	if s.TweetURL != "" {
		fmt.Printf("Tweet: %s\n", s.TweetURL)
	}
}

func (o *Output) printSweepResult(s SweepResult) {
	if s.Committed {
		fmt.Printf("Removed %d stale handler(s)\n", s.Stale)
	} else {
		fmt.Printf("Dry run: %d stale handler(s) would be removed\n", s.Stale)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
