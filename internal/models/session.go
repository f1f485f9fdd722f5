package models

import "time"

// Session is an authenticated admin session, persisted in the session
// repository (redis with in-memory failover) keyed by token.
type Session struct {
	Token     string    `json:"token"`
	AdminName string    `json:"admin_name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}
