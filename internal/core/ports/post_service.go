package ports

import (
	"context"
	"time"

	"github.com/quillhub/blog/internal/core/domain"
)

type PostInput struct {
	Title   string `field:"title"   validate:"required,max=100"`
	Content string `field:"content" validate:"required"`
}

// ListPostsInput carries the parameters of a listing request.
type ListPostsInput struct {
	AuthorUsername string // optional: restrict to one author
	Page           int
	PerPage        int
}

// PostDetail is a post joined with the public fields of its author.
type PostDetail struct {
	ID             string
	Title          string
	Content        string
	CreatedAt      time.Time
	AuthorID       string
	AuthorUsername string
	AuthorAvatar   string
}

// PostPage is one page of a newest-first listing.
type PostPage struct {
	Items      []PostDetail
	Page       int
	PerPage    int
	Total      int64
	TotalPages int
	HasNext    bool
}

// PostService defines use-case operations for posts. Mutations take the acting
// user and enforce ownership.
type PostService interface {
	Create(ctx context.Context, author *domain.User, input PostInput) (*domain.Post, error)
	Get(ctx context.Context, id string) (*PostDetail, error)
	GetForEdit(ctx context.Context, actor *domain.User, id string) (*domain.Post, error)
	Update(ctx context.Context, actor *domain.User, id string, input PostInput) (*domain.Post, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
	ListPage(ctx context.Context, input ListPostsInput) (*PostPage, error)
}
