package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillhub/blog/internal/core/domain"
)

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	m := userModel{
		ID:           id.String(),
		Username:     user.Username,
		Email:        user.Email,
		ImageFile:    user.AvatarFile,
		PasswordHash: user.PasswordHash,
		CreatedAt:    dbTime(user.CreatedAt),
		UpdatedAt:    dbTime(user.UpdatedAt),
	}
	if m.ImageFile == "" {
		m.ImageFile = domain.DefaultAvatar
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", translateError(err))
	}
	return m.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	out := make(map[string]*domain.User, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	var models []userModel
	if err := r.db.WithContext(ctx).Where("id IN ?", valid).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for i := range models {
		out[models[i].ID] = models[i].toDomain()
	}
	return out, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// UpdateProfile writes username, email and avatar in one transaction and
// reads the row back.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) (*domain.User, error) {
	if !validID(user.ID) {
		return nil, domain.ErrUserNotFound
	}

	var saved userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).Where("id = ?", user.ID).Updates(map[string]any{
			"username":   user.Username,
			"email":      user.Email,
			"image_file": user.AvatarFile,
			"updated_at": dbTime(user.UpdatedAt),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		return tx.First(&saved, "id = ?", user.ID).Error
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", translateError(err))
	}
	return saved.toDomain(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	if !validID(userID) {
		return domain.ErrUserNotFound
	}

	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash": passwordHash,
		"updated_at":    dbTime(at),
	})
	if res.Error != nil {
		return fmt.Errorf("update password: %w", translateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

// validID guards queries against ids that cannot exist, which PostgreSQL
// would otherwise reject with a type error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
