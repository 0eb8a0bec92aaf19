package models

import (
	"time"
)

// User is a registered account. Email is the primary key.
type User struct {
	Email        string    `json:"email" badgerhold:"key" validate:"required,email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an opaque bearer token issued at login.
type Session struct {
	Token     string    `json:"token" badgerhold:"key"`
	Email     string    `json:"email" badgerhold:"index"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
