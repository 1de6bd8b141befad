package ports

import (
	"context"
	"time"

	"github.com/quillhub/blog/internal/core/domain"
)

// UserRepository persists users. Implementations enforce username and email
// uniqueness at the storage level and report violations as
// domain.ErrDuplicateUsername, domain.ErrDuplicateEmail or, when the violated
// constraint cannot be identified, domain.ErrStorageConflict.
type UserRepository interface {
	// Create inserts user and returns the stored copy with its assigned ID.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByIDs returns the users found, keyed by id. Missing ids are skipped.
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	// FindByEmail expects an address already normalised with domain.NormalizeEmail.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// UpdateProfile overwrites username, email, avatar file and updated_at.
	UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error
}
