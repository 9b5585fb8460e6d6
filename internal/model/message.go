package model

import "time"

// MessageID uniquely identifies a message
type MessageID string

// MessageKind distinguishes channel messages from direct messages
type MessageKind string

const (
	// MessageKindChannel is a message sent to a stream
	MessageKindChannel MessageKind = "channel"
	// MessageKindDirect is a one-to-one or small-group direct message
	MessageKindDirect MessageKind = "direct"
)

// Message is a stored message. Whisper is nil for ordinary messages; when
// set, the message is visible only to the recipients the descriptor
// resolves to at read time.
type Message struct {
	ID       MessageID   `json:"id"`
	Kind     MessageKind `json:"kind"`
	StreamID StreamID    `json:"stream_id,omitempty"`
	DirectTo []UserID    `json:"direct_to,omitempty"`
	SenderID UserID      `json:"sender_id"`
	Topic    string      `json:"topic,omitempty"`
	Content  string      `json:"content"`

	// Puppet display fields, set when the message was sent as a puppet
	PuppetName string `json:"puppet_name,omitempty"`

	Whisper *WhisperDescriptor `json:"whisper,omitempty"`
	SentAt  time.Time          `json:"sent_at"`
}

// IsWhisper reports whether the message carries a whisper descriptor
func (m *Message) IsWhisper() bool {
	return !m.Whisper.IsZero()
}
