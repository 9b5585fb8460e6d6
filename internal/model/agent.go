package model

import "time"

// AgentClaim tracks an agent's self-registration and its human
// verification state. An agent registers, hands its claim URL to a human,
// and the human proves accountability by posting the verification code.
type AgentClaim struct {
	UserID           UserID     `json:"user_id"`
	AgentName        string     `json:"agent_name"`
	APIKey           string     `json:"api_key"`
	VerificationCode string     `json:"verification_code"`
	Claimed          bool       `json:"claimed"`
	ClaimedAt        *time.Time `json:"claimed_at,omitempty"`
	TweetURL         string     `json:"tweet_url,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
