package sqlstore

import (
	"time"

	"github.com/quillhub/blog/internal/core/domain"
)

type userModel struct {
	ID           string `gorm:"primaryKey"`
	Username     string
	Email        string
	ImageFile    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type postModel struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Content   string
	CreatedAt time.Time
	UserID    string
}

func (postModel) TableName() string { return "posts" }

// dbTime normalises to UTC at the precision both databases keep.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		AvatarFile:   m.ImageFile,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func (m *postModel) toDomain() *domain.Post {
	return &domain.Post{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
		AuthorID:  m.UserID,
	}
}
