package ports

import (
	"context"

	"github.com/quillhub/blog/internal/core/domain"
)

type LoginInput struct {
	Email    string `field:"email"    validate:"required,email"`
	Password string `field:"password" validate:"required"`
	Remember bool   `validate:"-"`
}

// AuthService establishes and resolves login sessions.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*domain.Session, *domain.User, error)
	Logout(ctx context.Context, sessionID string) error
	// CurrentUser returns nil, nil for anonymous requests.
	CurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
}
