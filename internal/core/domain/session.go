package domain

import "time"

// Session binds an opaque cookie value to a user id.
type Session struct {
	ID        string
	UserID    string
	Remember  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
