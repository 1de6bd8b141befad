package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// PostRepository implements ports.PostRepository.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}

	m := postModel{
		ID:        id.String(),
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: dbTime(post.CreatedAt),
		UserID:    post.AuthorID,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return m.toDomain(), nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, domain.ErrPostNotFound
	}

	var m postModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return m.toDomain(), nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if !validID(post.ID) {
		return nil, domain.ErrPostNotFound
	}

	res := r.db.WithContext(ctx).Model(&postModel{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":   post.Title,
		"content": post.Content,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("update post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrPostNotFound
	}
	return r.FindByID(ctx, post.ID)
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrPostNotFound
	}

	res := r.db.WithContext(ctx).Delete(&postModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete post: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// List returns one page ordered by created_at DESC, id DESC and the total
// number of matching posts.
func (r *PostRepository) List(ctx context.Context, f ports.ListPostsFilter) ([]*domain.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&postModel{})
	if f.AuthorID != "" {
		if !validID(f.AuthorID) {
			return []*domain.Post{}, 0, nil
		}
		q = q.Where("user_id = ?", f.AuthorID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	var models []postModel
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(f.Limit).
		Offset((page - 1) * f.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]*domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, models[i].toDomain())
	}
	return posts, total, nil
}
