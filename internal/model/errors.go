package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Stream/user errors
	ErrStreamNotFound = errors.New("stream not found")
	ErrUserNotFound   = errors.New("user not found")

	// Puppet errors
	ErrPuppetNotFound    = errors.New("puppet not found")
	ErrPuppetWrongStream = errors.New("puppet belongs to a different stream")
	ErrPuppetNameExists  = errors.New("puppet name already registered in stream")
	ErrInvalidVisibility = errors.New("invalid visibility mode")
	ErrInvalidWindow     = errors.New("recency window must be positive")

	// Handler errors
	ErrHandlerNotFound   = errors.New("handler association not found")
	ErrUnauthorizedClaim = errors.New("not permitted to modify this puppet's handlers")

	// Whisper errors
	ErrWhisperOnDirectMessage = errors.New("whisper recipients are only allowed on channel messages")

	// Message errors
	ErrMessageNotFound = errors.New("message not found")

	// Persona errors
	ErrPersonaNotFound     = errors.New("persona not found")
	ErrPersonaNameExists   = errors.New("persona with this name already exists")
	ErrPersonaLimitReached = errors.New("maximum number of personas reached")

	// Agent errors
	ErrAgentClaimNotFound = errors.New("agent claim not found")
	ErrAgentNameExists    = errors.New("agent name already registered")
	ErrVerificationFailed = errors.New("verification code not found at the provided URL")
	ErrInvalidAgentName   = errors.New("agent name must be 3-50 characters of letters, numbers, underscores, and hyphens")
	ErrInvalidTweetURL    = errors.New("verification URL must be a tweet link")
)

// InvalidPuppetError reports a whisper referencing a puppet ID that does
// not exist. It unwraps to ErrPuppetNotFound.
type InvalidPuppetError struct {
	PuppetID PuppetID
}

func (e *InvalidPuppetError) Error() string {
	return fmt.Sprintf("puppet %q does not exist", e.PuppetID)
}

func (e *InvalidPuppetError) Unwrap() error {
	return ErrPuppetNotFound
}

// CrossStreamPuppetError reports a whisper referencing a puppet that
// exists but is registered in a different stream than the message target.
// It unwraps to ErrPuppetWrongStream.
type CrossStreamPuppetError struct {
	PuppetID PuppetID
	StreamID StreamID
}

func (e *CrossStreamPuppetError) Error() string {
	return fmt.Sprintf("puppet %q is not registered in stream %q", e.PuppetID, e.StreamID)
}

func (e *CrossStreamPuppetError) Unwrap() error {
	return ErrPuppetWrongStream
}
