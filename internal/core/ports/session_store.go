package ports

import (
	"context"
	"time"

	"github.com/quillhub/blog/internal/core/domain"
)

// SessionStore keeps login sessions server-side so logout and revocation take
// effect immediately.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session, ttl time.Duration) error
	// Get returns domain.ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// LoginThrottle counts failed logins per key (normalised email).
type LoginThrottle interface {
	Blocked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
