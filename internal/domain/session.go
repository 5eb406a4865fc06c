package domain

import "time"

// Session is the server-side state bound to an opaque client token.
// A Session value only exists for a client that passed Authenticate;
// absence of a session is the anonymous state.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	LoggedIn  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
