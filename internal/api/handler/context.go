package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/api/middleware"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// AvatarURLs turns a stored avatar file name into a public URL.
type AvatarURLs interface {
	URL(name string) string
}

// requireUser returns the authenticated user. Routes that call it sit behind
// middleware.RequireAuth, so a nil user is a wiring bug and reported as 403.
func requireUser(c echo.Context) (*domain.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

// --- View models ---

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type authorResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type postLinks struct {
	Self   string `json:"self"`
	Author string `json:"author,omitempty"`
}

type postResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Author    authorResponse `json:"author"`
	Links     postLinks      `json:"_links"`
}

type pageResponse struct {
	Items      []postResponse `json:"items"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
	HasNext    bool           `json:"has_next"`
	HasPrev    bool           `json:"has_prev"`
	// Pages lists the page numbers to offer as links; 0 marks a gap.
	Pages []int `json:"pages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *domain.User, avatars AvatarURLs, withEmail bool) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: avatars.URL(u.AvatarFile),
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		resp.Email = u.Email
	}
	return resp
}

func toPostResponse(d ports.PostDetail, avatars AvatarURLs) postResponse {
	resp := postResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		Author: authorResponse{
			ID:       d.AuthorID,
			Username: d.AuthorUsername,
		},
		Links: postLinks{Self: "/post/" + d.ID},
	}
	if d.AuthorUsername != "" {
		resp.Author.AvatarURL = avatars.URL(d.AuthorAvatar)
		resp.Links.Author = "/user/" + d.AuthorUsername
	}
	return resp
}

// ownPost builds the detail view of a post whose author is the current user.
func ownPost(p *domain.Post, author *domain.User) ports.PostDetail {
	return ports.PostDetail{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		CreatedAt:      p.CreatedAt,
		AuthorID:       p.AuthorID,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.AvatarFile,
	}
}

func toPageResponse(p *ports.PostPage, avatars AvatarURLs) pageResponse {
	items := make([]postResponse, 0, len(p.Items))
	for _, d := range p.Items {
		items = append(items, toPostResponse(d, avatars))
	}
	return pageResponse{
		Items:      items,
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.Page > 1,
		Pages:      pageLinks(p.Page, p.TotalPages),
	}
}

// pageLinks returns the first and last page, the current page with one
// neighbour on each side, and 0 for every run of skipped pages.
func pageLinks(current, total int) []int {
	const leftEdge, leftCurrent, rightCurrent, rightEdge = 1, 1, 2, 1

	links := []int{}
	last := 0
	for n := 1; n <= total; n++ {
		if n <= leftEdge ||
			(n > current-leftCurrent-1 && n < current+rightCurrent) ||
			n > total-rightEdge {
			if last+1 != n {
				links = append(links, 0)
			}
			links = append(links, n)
			last = n
		}
	}
	return links
}

// listParams reads ?page= and ?per_page=. Missing or malformed values fall
// back to defaults; range coercion happens in the service.
func listParams(c echo.Context) (page, perPage int) {
	page = 1
	_ = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("per_page", &perPage).
		BindErrors()
	return page, perPage
}

// redirectOnInvalidToken maps domain.ErrInvalidToken to the reset-request
// page and passes any other error through.
func redirectOnInvalidToken(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidToken) {
		return c.Redirect(http.StatusFound, "/reset_password?error=invalid_token")
	}
	return err
}
