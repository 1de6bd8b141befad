package ports

import (
	"context"

	"github.com/quillhub/blog/internal/core/domain"
)

type RequestResetInput struct {
	Email string `field:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Password        string `field:"password"         validate:"required,maxbytes=72"`
	ConfirmPassword string `field:"confirm_password" validate:"required,eqfield=Password"`
}

// ResetService drives the forgotten-password flow.
type ResetService interface {
	// RequestReset emails a reset link when the address belongs to a user and
	// silently does nothing otherwise.
	RequestReset(ctx context.Context, input RequestResetInput) error
	VerifyToken(ctx context.Context, token string) (*domain.User, error)
	ResetPassword(ctx context.Context, token string, input ResetPasswordInput) (*domain.User, error)
}
