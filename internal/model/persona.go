package model

import "time"

// PersonaID uniquely identifies a persona
type PersonaID string

// Persona limits
const (
	MaxPersonaNameLength = 100
	MaxPersonaBioLength  = 500
	MaxPersonasPerUser   = 20
)

// Persona is a user-owned character identity. Unlike puppets, personas are
// personal and portable: they belong to a user, not a stream, and carry no
// access-control semantics. (UserID, Name) is unique.
type Persona struct {
	ID        PersonaID `json:"id"`
	UserID    UserID    `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Color     string    `json:"color,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
