package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

const (
	DefaultPostsPerPage = 5
	maxPostsPerPage     = 50
)

// PostService implements the post use cases on top of PostRepository.
type PostService struct {
	posts   ports.PostRepository
	users   ports.UserRepository
	perPage int
	log     zerolog.Logger
	now     func() time.Time
}

// NewPostService returns a PostService. perPage <= 0 uses DefaultPostsPerPage.
func NewPostService(posts ports.PostRepository, users ports.UserRepository, perPage int, log zerolog.Logger) *PostService {
	if perPage <= 0 {
		perPage = DefaultPostsPerPage
	}
	return &PostService{
		posts:   posts,
		users:   users,
		perPage: perPage,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new post authored by author.
func (s *PostService) Create(ctx context.Context, author *domain.User, in ports.PostInput) (*domain.Post, error) {
	if author == nil {
		return nil, domain.ErrForbidden
	}

	in = normalizePostInput(in)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	post, err := s.posts.Create(ctx, &domain.Post{
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: s.now(),
		AuthorID:  author.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.log.Info().Str("post_id", post.ID).Str("author_id", author.ID).Msg("post created")
	return post, nil
}

// Get returns a post joined with its author.
func (s *PostService) Get(ctx context.Context, id string) (*ports.PostDetail, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	author, err := s.users.FindByID(ctx, post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("load post author: %w", err)
	}

	detail := toPostDetail(post, author)
	return &detail, nil
}

// GetForEdit returns a post only if actor may mutate it.
func (s *PostService) GetForEdit(ctx context.Context, actor *domain.User, id string) (*domain.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanMutatePost(actor, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Update changes title and content of a post owned by actor.
func (s *PostService) Update(ctx context.Context, actor *domain.User, id string, in ports.PostInput) (*domain.Post, error) {
	post, err := s.GetForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in = normalizePostInput(in)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Content = in.Content

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	s.log.Info().Str("post_id", id).Str("author_id", actor.ID).Msg("post updated")
	return updated, nil
}

// Delete removes a post owned by actor.
func (s *PostService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if _, err := s.GetForEdit(ctx, actor, id); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.log.Info().Str("post_id", id).Str("author_id", actor.ID).Msg("post deleted")
	return nil
}

// ListPage returns one newest-first page. Pages past the end are empty, not
// an error; an unknown AuthorUsername is domain.ErrUserNotFound.
func (s *PostService) ListPage(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	perPage := in.PerPage
	if perPage <= 0 {
		perPage = s.perPage
	}
	if perPage > maxPostsPerPage {
		perPage = maxPostsPerPage
	}

	filter := ports.ListPostsFilter{Page: page, Limit: perPage}
	if in.AuthorUsername != "" {
		author, err := s.users.FindByUsername(ctx, in.AuthorUsername)
		if err != nil {
			return nil, err
		}
		filter.AuthorID = author.ID
	}

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	authors, err := s.users.FindByIDs(ctx, authorIDs(posts))
	if err != nil {
		return nil, fmt.Errorf("load post authors: %w", err)
	}

	items := make([]ports.PostDetail, 0, len(posts))
	for _, p := range posts {
		items = append(items, toPostDetail(p, authors[p.AuthorID]))
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &ports.PostPage{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}, nil
}

func normalizePostInput(in ports.PostInput) ports.PostInput {
	in.Title = strings.TrimSpace(in.Title)
	if strings.TrimSpace(in.Content) == "" {
		in.Content = ""
	}
	return in
}

func authorIDs(posts []*domain.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.AuthorID]; ok {
			continue
		}
		seen[p.AuthorID] = struct{}{}
		ids = append(ids, p.AuthorID)
	}
	return ids
}

func toPostDetail(p *domain.Post, author *domain.User) ports.PostDetail {
	d := ports.PostDetail{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		AuthorID:  p.AuthorID,
	}
	if author != nil {
		d.AuthorUsername = author.Username
		d.AuthorAvatar = author.AvatarFile
	}
	return d
}
