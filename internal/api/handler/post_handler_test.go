package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

var (
	alice = &domain.User{ID: "u-alice", Username: "alice", Email: "alice@example.com", AvatarFile: "a1b2.png"}
	bob   = &domain.User{ID: "u-bob", Username: "bob", Email: "bob@example.com", AvatarFile: domain.DefaultAvatar}
)

func onePage(in ports.ListPostsInput) *ports.PostPage {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &ports.PostPage{
		Items: []ports.PostDetail{{
			ID: testPostID, Title: "Hello", Content: "World", CreatedAt: created,
			AuthorID: alice.ID, AuthorUsername: alice.Username, AuthorAvatar: alice.AvatarFile,
		}},
		Page:       in.Page,
		PerPage:    5,
		Total:      11,
		TotalPages: 3,
		HasNext:    in.Page < 3,
	}
}

func TestPostHandler_Home(t *testing.T) {
	var got ports.ListPostsInput
	stub := &stubPostService{
		listPageFn: func(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error) {
			got = in
			return onePage(in), nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodGet, "/home?page=2", nil, "", nil)
	if err := h.Home(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Page != 2 || got.AuthorUsername != "" {
		t.Fatalf("unexpected list input: %+v", got)
	}

	var resp pageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Page != 2 || resp.TotalPages != 3 || !resp.HasNext || !resp.HasPrev {
		t.Fatalf("unexpected paging: %+v", resp)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(resp.Items))
	}
	item := resp.Items[0]
	if item.Author.Username != "alice" || item.Author.AvatarURL != "/static/profile_pics/a1b2.png" {
		t.Fatalf("author not joined: %+v", item.Author)
	}
	if item.Links.Self != "/post/"+testPostID || item.Links.Author != "/user/alice" {
		t.Fatalf("unexpected links: %+v", item.Links)
	}
}

func TestPostHandler_Home_MalformedPageFallsBack(t *testing.T) {
	var got ports.ListPostsInput
	stub := &stubPostService{
		listPageFn: func(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error) {
			got = in
			return &ports.PostPage{Page: 1, PerPage: 5}, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodGet, "/home?page=abc", nil, "", nil)
	if err := h.Home(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Page != 1 {
		t.Fatalf("expected page 1, got %d", got.Page)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if items, ok := resp["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("empty page must render items as [], got %v", resp["items"])
	}
}

func TestPostHandler_UserPosts(t *testing.T) {
	stub := &stubPostService{
		listPageFn: func(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error) {
			if in.AuthorUsername == "ghost" {
				return nil, domain.ErrUserNotFound
			}
			return onePage(in), nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodGet, "/user/alice", nil, "", nil)
	withParams(c, "/user/:username", "username", "alice")
	if err := h.UserPosts(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/user/ghost", nil, "", nil)
	withParams(c, "/user/:username", "username", "ghost")
	if err := h.UserPosts(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostHandler_Show_InvalidIDIsNotFound(t *testing.T) {
	stub := &stubPostService{
		getFn: func(context.Context, string) (*ports.PostDetail, error) {
			t.Fatalf("service should not be called for a malformed id")
			return nil, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, _ := newContext(http.MethodGet, "/post/42", nil, "", nil)
	withParams(c, "/post/:id", "id", "42")
	if err := h.Show(c); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestPostHandler_Show(t *testing.T) {
	stub := &stubPostService{
		getFn: func(ctx context.Context, id string) (*ports.PostDetail, error) {
			return &ports.PostDetail{ID: id, Title: "T", Content: "C", AuthorID: bob.ID, AuthorUsername: "bob", AuthorAvatar: domain.DefaultAvatar}, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodGet, "/post/"+testPostID, nil, "", nil)
	withParams(c, "/post/:id", "id", testPostID)
	if err := h.Show(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp postResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != testPostID || resp.Author.AvatarURL != "/static/profile_pics/default.jpg" {
		t.Fatalf("unexpected post: %+v", resp)
	}
}

func TestPostHandler_Create(t *testing.T) {
	stub := &stubPostService{
		createFn: func(ctx context.Context, author *domain.User, in ports.PostInput) (*domain.Post, error) {
			if author != alice || in.Title != "First" || in.Content != "Body" {
				t.Fatalf("unexpected create: %v %+v", author, in)
			}
			return &domain.Post{ID: testPostID, Title: in.Title, Content: in.Content, AuthorID: author.ID}, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodPost, "/post/new", jsonBody(`{"title":"First","content":"Body"}`), echo.MIMEApplicationJSON, alice)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/post/"+testPostID {
		t.Fatalf("unexpected Location %q", loc)
	}

	var resp postResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Author.Username != "alice" {
		t.Fatalf("expected author alice, got %+v", resp.Author)
	}
}

func TestPostHandler_Create_AnonymousIsForbidden(t *testing.T) {
	h := NewPostHandler(&stubPostService{}, testAvatars, nil)

	c, _ := newContext(http.MethodPost, "/post/new", jsonBody(`{}`), echo.MIMEApplicationJSON, nil)
	if err := h.Create(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPostHandler_EditForm(t *testing.T) {
	stub := &stubPostService{
		getForEditFn: func(ctx context.Context, actor *domain.User, id string) (*domain.Post, error) {
			if actor != alice {
				return nil, domain.ErrForbidden
			}
			return &domain.Post{ID: id, Title: "Old", Content: "Text", AuthorID: alice.ID}, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodGet, "/post/"+testPostID+"/update", nil, "", alice)
	withParams(c, "/post/:id/update", "id", testPostID)
	if err := h.EditForm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp postFormResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Values == nil || resp.Values.Title != "Old" || resp.Form.Title != "Update Post" {
		t.Fatalf("unexpected edit form: %+v", resp)
	}

	c, _ = newContext(http.MethodGet, "/post/"+testPostID+"/update", nil, "", bob)
	withParams(c, "/post/:id/update", "id", testPostID)
	if err := h.EditForm(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bob, got %v", err)
	}
}

func TestPostHandler_Update_ForbiddenPassesThrough(t *testing.T) {
	stub := &stubPostService{
		updateFn: func(ctx context.Context, actor *domain.User, id string, in ports.PostInput) (*domain.Post, error) {
			return nil, domain.ErrForbidden
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, _ := newContext(http.MethodPost, "/post/"+testPostID+"/update", jsonBody(`{"title":"x","content":"y"}`), echo.MIMEApplicationJSON, bob)
	withParams(c, "/post/:id/update", "id", testPostID)
	if err := h.Update(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestPostHandler_Update(t *testing.T) {
	stub := &stubPostService{
		updateFn: func(ctx context.Context, actor *domain.User, id string, in ports.PostInput) (*domain.Post, error) {
			return &domain.Post{ID: id, Title: in.Title, Content: in.Content, AuthorID: actor.ID}, nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodPost, "/post/"+testPostID+"/update", jsonBody(`{"title":"New","content":"Body"}`), echo.MIMEApplicationJSON, alice)
	withParams(c, "/post/:id/update", "id", testPostID)
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp postResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Title != "New" {
		t.Fatalf("unexpected update response %d %+v", rec.Code, resp)
	}
}

func TestPostHandler_Delete(t *testing.T) {
	var deleted string
	stub := &stubPostService{
		deleteFn: func(ctx context.Context, actor *domain.User, id string) error {
			deleted = id
			return nil
		},
	}
	h := NewPostHandler(stub, testAvatars, nil)

	c, rec := newContext(http.MethodPost, "/post/"+testPostID+"/delete", nil, "", alice)
	withParams(c, "/post/:id/delete", "id", testPostID)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if deleted != testPostID {
		t.Fatalf("expected %s deleted, got %q", testPostID, deleted)
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/home" {
		t.Fatalf("expected 302 /home, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestPageLinks(t *testing.T) {
	tests := []struct {
		current, total int
		want           []int
	}{
		{1, 0, []int{}},
		{1, 1, []int{1}},
		{1, 3, []int{1, 2, 3}},
		{1, 12, []int{1, 2, 0, 12}},
		{6, 12, []int{1, 0, 5, 6, 7, 0, 12}},
		{12, 12, []int{1, 0, 11, 12}},
		{3, 5, []int{1, 2, 3, 4, 5}},
	}
	for _, tc := range tests {
		if got := pageLinks(tc.current, tc.total); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("pageLinks(%d, %d) = %v, want %v", tc.current, tc.total, got, tc.want)
		}
	}
}
