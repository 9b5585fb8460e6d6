package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Puppet registry events
	EventPuppetRegistered  EventType = "puppet_registered"
	EventPuppetUpdated     EventType = "puppet_updated"
	EventHandlerClaimed    EventType = "handler_claimed"
	EventHandlerUnclaimed  EventType = "handler_unclaimed"
	EventVisibilityChanged EventType = "visibility_changed"

	// Persona events
	EventPersonaAdded   EventType = "persona_added"
	EventPersonaUpdated EventType = "persona_updated"
	EventPersonaRemoved EventType = "persona_removed"

	// Message events
	EventMessageSent EventType = "message_sent"
)

// Event is the base structure for all events. Events are published after
// the storage write they describe has committed, and carry enough data
// for a listener to refresh its local view without re-querying.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	StreamID  StreamID  `json:"stream_id,omitempty"`
	PuppetID  PuppetID  `json:"puppet_id,omitempty"`
	UserID    UserID    `json:"user_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// PuppetPayload carries the puppet row for registry events
type PuppetPayload struct {
	Puppet *Puppet `json:"puppet"`
}

// HandlerPayload carries the handler row for claim/unclaim events
type HandlerPayload struct {
	PuppetID PuppetID    `json:"puppet_id"`
	UserID   UserID      `json:"user_id"`
	Type     HandlerType `json:"handler_type,omitempty"`
}

// VisibilityPayload carries the new mode and window for visibility events
type VisibilityPayload struct {
	PuppetID    PuppetID       `json:"puppet_id"`
	Mode        VisibilityMode `json:"visibility_mode"`
	WindowHours int            `json:"recent_handler_window_hours"`
}

// PersonaPayload carries the persona row for persona events
type PersonaPayload struct {
	Persona *Persona  `json:"persona,omitempty"`
	ID      PersonaID `json:"persona_id,omitempty"`
}

// MessagePayload carries the message ID and recipient count for send events
type MessagePayload struct {
	MessageID      MessageID `json:"message_id"`
	RecipientCount int       `json:"recipient_count,omitempty"`
}
