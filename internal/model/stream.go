package model

import "time"

// StreamID uniquely identifies a channel
type StreamID string

// Stream is a channel that messages and puppets are scoped to
type Stream struct {
	ID        StreamID  `json:"id"`
	Name      string    `json:"name"`
	CreatedBy UserID    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
