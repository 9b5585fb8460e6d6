package model

import "time"

// PuppetID uniquely identifies a puppet
type PuppetID string

// VisibilityMode controls which handlers qualify to receive a puppet's whispers
type VisibilityMode string

const (
	// VisibilityClaimed means only explicitly claimed handlers qualify
	VisibilityClaimed VisibilityMode = "claimed"
	// VisibilityOpen means any handler active within the recency window qualifies
	VisibilityOpen VisibilityMode = "open"
)

// Valid reports whether the mode is a known visibility mode
func (m VisibilityMode) Valid() bool {
	return m == VisibilityClaimed || m == VisibilityOpen
}

// DefaultRecentHandlerWindowHours is the default recency window for open puppets
const DefaultRecentHandlerWindowHours = 24

// Puppet is a named in-channel identity that real users handle.
// (StreamID, Name) is unique.
type Puppet struct {
	ID                       PuppetID       `json:"id"`
	StreamID                 StreamID       `json:"stream_id"`
	Name                     string         `json:"name"`
	AvatarURL                string         `json:"avatar_url,omitempty"`
	Color                    string         `json:"color,omitempty"`
	CreatedBy                UserID         `json:"created_by"`
	VisibilityMode           VisibilityMode `json:"visibility_mode"`
	RecentHandlerWindowHours int            `json:"recent_handler_window_hours"`
	LastUsed                 time.Time      `json:"last_used"`
	CreatedAt                time.Time      `json:"created_at"`
}

// Window returns the puppet's recency window as a duration
func (p *Puppet) Window() time.Duration {
	return time.Duration(p.RecentHandlerWindowHours) * time.Hour
}
