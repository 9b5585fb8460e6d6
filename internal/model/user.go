package model

import "time"

// UserID uniquely identifies a user
type UserID string

// GroupID identifies a user group managed by the external group directory
type GroupID string

// User is a human or agent account
type User struct {
	ID          UserID    `json:"id"`
	DisplayName string    `json:"display_name"`
	IsAgent     bool      `json:"is_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

// Credential holds login credentials for a user
type Credential struct {
	UserID       UserID    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
