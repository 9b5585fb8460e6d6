package request

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateStreamRequest is the request body for creating a stream
type CreateStreamRequest struct {
	Name string `json:"name"`
}

// RegisterPuppetRequest is the request body for registering a puppet in a
// stream. Color uses a pointer so an explicit empty string clears the
// stored value while omission leaves it alone.
type RegisterPuppetRequest struct {
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// SetVisibilityRequest is the request body for changing puppet visibility
type SetVisibilityRequest struct {
	VisibilityMode           string `json:"visibility_mode"`
	RecentHandlerWindowHours *int   `json:"recent_handler_window_hours,omitempty"`
}

// WhisperRequest carries the unexpanded whisper recipient lists
type WhisperRequest struct {
	UserIDs   []string `json:"user_ids,omitempty"`
	GroupIDs  []string `json:"group_ids,omitempty"`
	PuppetIDs []string `json:"puppet_ids,omitempty"`
}

// SendMessageRequest is the request body for sending a message
type SendMessageRequest struct {
	Kind            string          `json:"kind"`
	StreamID        string          `json:"stream_id,omitempty"`
	DirectTo        []string        `json:"direct_to,omitempty"`
	Topic           string          `json:"topic,omitempty"`
	Content         string          `json:"content"`
	PuppetName      string          `json:"puppet_name,omitempty"`
	PuppetAvatarURL string          `json:"puppet_avatar_url,omitempty"`
	PuppetColor     *string         `json:"puppet_color,omitempty"`
	Whisper         *WhisperRequest `json:"whisper,omitempty"`
}

// CreatePersonaRequest is the request body for creating a persona
type CreatePersonaRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Color     string `json:"color,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// UpdatePersonaRequest is the request body for partially updating a
// persona. Nil fields are left unchanged; explicit empty strings clear.
type UpdatePersonaRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Color     *string `json:"color,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// RegisterAgentRequest is the request body for agent self-registration
type RegisterAgentRequest struct {
	AgentName string `json:"agent_name"`
}

// ClaimAgentRequest is the request body for claiming an agent
type ClaimAgentRequest struct {
	TweetURL string `json:"tweet_url"`
}

// SweepRequest is the request body for the stale-handler sweep
type SweepRequest struct {
	Commit bool `json:"commit"`
}
