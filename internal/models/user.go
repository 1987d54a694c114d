package models

import "time"

// User represents an account holder
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session represents an authenticated session. The ID doubles as the refresh token.
type Session struct {
	ID          string
	UserID      string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RefreshedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// OneTimeCode is an emailed sign-in code. Only its bcrypt hash is stored.
type OneTimeCode struct {
	ID        int64
	Email     string
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the code has expired
func (c *OneTimeCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsUsed reports whether the code was already redeemed
func (c *OneTimeCode) IsUsed() bool {
	return c.UsedAt != nil
}
