package ports

import (
	"context"
	"io"

	"github.com/quillhub/blog/internal/core/domain"
)

type RegisterInput struct {
	Username        string `field:"username"         validate:"required,min=2,max=20"`
	Email           string `field:"email"            validate:"required,email,max=120"`
	Password        string `field:"password"         validate:"required,maxbytes=72"`
	ConfirmPassword string `field:"confirm_password" validate:"required,eqfield=Password"`
}

// AvatarUpload is a raw uploaded file. Filename is only used for its extension.
type AvatarUpload struct {
	Filename string
	Content  io.Reader
}

type UpdateProfileInput struct {
	Username string        `field:"username" validate:"required,min=2,max=20"`
	Email    string        `field:"email"    validate:"required,email,max=120"`
	Avatar   *AvatarUpload `validate:"-"`
}

// AccountService covers the credential store operations.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User, input UpdateProfileInput) (*domain.User, error)
	UpdatePassword(ctx context.Context, user *domain.User, password string) error
}
