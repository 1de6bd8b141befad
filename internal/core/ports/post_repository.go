package ports

import (
	"context"

	"github.com/quillhub/blog/internal/core/domain"
)

// ListPostsFilter carries the query parameters for a page of posts.
// Results are always ordered by created_at DESC, id DESC.
type ListPostsFilter struct {
	AuthorID string // empty = every author
	Page     int    // 1-based
	Limit    int
}

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) (*domain.Post, error)
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	// Update overwrites title and content only.
	Update(ctx context.Context, post *domain.Post) (*domain.Post, error)
	Delete(ctx context.Context, id string) error
	// List returns one page of posts matching filter and the total count.
	List(ctx context.Context, filter ListPostsFilter) ([]*domain.Post, int64, error)
}
