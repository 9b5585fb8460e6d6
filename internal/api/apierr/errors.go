package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/whisperhq/whisperd/internal/model"
	"github.com/whisperhq/whisperd/internal/services/auth"
	"github.com/whisperhq/whisperd/internal/services/message"
	"github.com/whisperhq/whisperd/internal/services/persona"
	"github.com/whisperhq/whisperd/internal/services/stream"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeStreamNotFound      = "STREAM_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodePuppetNotFound      = "PUPPET_NOT_FOUND"
	CodePuppetWrongStream   = "PUPPET_WRONG_STREAM"
	CodeInvalidVisibility   = "INVALID_VISIBILITY"
	CodeInvalidWindow       = "INVALID_WINDOW"
	CodeWhisperOnDirect     = "WHISPER_ON_DIRECT_MESSAGE"
	CodeMessageNotFound     = "MESSAGE_NOT_FOUND"
	CodePersonaNotFound     = "PERSONA_NOT_FOUND"
	CodePersonaNameExists   = "PERSONA_NAME_EXISTS"
	CodePersonaLimitReached = "PERSONA_LIMIT_REACHED"
	CodeInvalidPersona      = "INVALID_PERSONA"
	CodeAgentClaimNotFound  = "AGENT_CLAIM_NOT_FOUND"
	CodeAgentNameExists     = "AGENT_NAME_EXISTS"
	CodeInvalidAgentName    = "INVALID_AGENT_NAME"
	CodeInvalidTweetURL     = "INVALID_TWEET_URL"
	CodeVerificationFailed  = "VERIFICATION_FAILED"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Puppet reference errors carry the offending ID in their message
	var invalidPuppet *model.InvalidPuppetError
	if errors.As(err, &invalidPuppet) {
		return &httpError{http.StatusBadRequest, APIError{CodePuppetNotFound, invalidPuppet.Error()}}
	}
	var crossStream *model.CrossStreamPuppetError
	if errors.As(err, &crossStream) {
		return &httpError{http.StatusBadRequest, APIError{CodePuppetWrongStream, crossStream.Error()}}
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrStreamNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeStreamNotFound, "Stream not found"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrPuppetNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePuppetNotFound, "Puppet not found"}}
	case errors.Is(err, model.ErrPuppetWrongStream):
		return &httpError{http.StatusBadRequest, APIError{CodePuppetWrongStream, "Puppet belongs to a different stream"}}
	case errors.Is(err, model.ErrInvalidVisibility):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidVisibility, "Visibility mode must be 'claimed' or 'open'"}}
	case errors.Is(err, model.ErrInvalidWindow):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidWindow, "Recency window must be positive"}}
	case errors.Is(err, model.ErrUnauthorizedClaim):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Not permitted to modify this puppet"}}
	case errors.Is(err, model.ErrWhisperOnDirectMessage):
		return &httpError{http.StatusBadRequest, APIError{CodeWhisperOnDirect, "Whisper recipients are only allowed on channel messages"}}
	case errors.Is(err, model.ErrMessageNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMessageNotFound, "Message not found"}}
	case errors.Is(err, model.ErrPersonaNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePersonaNotFound, "Persona not found"}}
	case errors.Is(err, model.ErrPersonaNameExists):
		return &httpError{http.StatusConflict, APIError{CodePersonaNameExists, "Persona with this name already exists"}}
	case errors.Is(err, model.ErrPersonaLimitReached):
		return &httpError{http.StatusConflict, APIError{CodePersonaLimitReached, "Maximum number of personas reached"}}
	case errors.Is(err, model.ErrAgentClaimNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeAgentClaimNotFound, "Agent claim not found"}}
	case errors.Is(err, model.ErrAgentNameExists):
		return &httpError{http.StatusConflict, APIError{CodeAgentNameExists, "Agent name already registered"}}
	case errors.Is(err, model.ErrInvalidAgentName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidAgentName, "Agent name must be 3-50 characters of letters, numbers, underscores, and hyphens"}}
	case errors.Is(err, model.ErrInvalidTweetURL):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTweetURL, "Verification URL must be a tweet link"}}
	case errors.Is(err, model.ErrVerificationFailed):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeVerificationFailed, "Verification code not found at the provided URL"}}

	// Map service validation errors
	case errors.Is(err, stream.ErrInvalidStreamName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Stream name must not be empty"}}
	case errors.Is(err, message.ErrEmptyContent):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Message content must not be empty"}}
	case errors.Is(err, persona.ErrInvalidName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPersona, "Persona name must be 1-100 characters"}}
	case errors.Is(err, persona.ErrBioTooLong):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPersona, "Persona bio must be at most 500 characters"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
