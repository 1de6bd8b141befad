package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/api/middleware"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

type stubAccountService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	updateProfileFn func(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error)
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateProfileFn(ctx, user, in)
}

func (s *stubAccountService) UpdatePassword(context.Context, *domain.User, string) error {
	return nil
}

type stubAuthService struct {
	loginFn  func(ctx context.Context, in ports.LoginInput) (*domain.Session, *domain.User, error)
	logoutFn func(ctx context.Context, sessionID string) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, *domain.User, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	return s.logoutFn(ctx, sessionID)
}

func (s *stubAuthService) CurrentUser(context.Context, string) (*domain.User, error) {
	return nil, nil
}

type stubPostService struct {
	createFn     func(ctx context.Context, author *domain.User, in ports.PostInput) (*domain.Post, error)
	getFn        func(ctx context.Context, id string) (*ports.PostDetail, error)
	getForEditFn func(ctx context.Context, actor *domain.User, id string) (*domain.Post, error)
	updateFn     func(ctx context.Context, actor *domain.User, id string, in ports.PostInput) (*domain.Post, error)
	deleteFn     func(ctx context.Context, actor *domain.User, id string) error
	listPageFn   func(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error)
}

func (s *stubPostService) Create(ctx context.Context, author *domain.User, in ports.PostInput) (*domain.Post, error) {
	return s.createFn(ctx, author, in)
}

func (s *stubPostService) Get(ctx context.Context, id string) (*ports.PostDetail, error) {
	return s.getFn(ctx, id)
}

func (s *stubPostService) GetForEdit(ctx context.Context, actor *domain.User, id string) (*domain.Post, error) {
	return s.getForEditFn(ctx, actor, id)
}

func (s *stubPostService) Update(ctx context.Context, actor *domain.User, id string, in ports.PostInput) (*domain.Post, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubPostService) Delete(ctx context.Context, actor *domain.User, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubPostService) ListPage(ctx context.Context, in ports.ListPostsInput) (*ports.PostPage, error) {
	return s.listPageFn(ctx, in)
}

type stubResetService struct {
	requestFn func(ctx context.Context, in ports.RequestResetInput) error
	verifyFn  func(ctx context.Context, token string) (*domain.User, error)
	resetFn   func(ctx context.Context, token string, in ports.ResetPasswordInput) (*domain.User, error)
}

func (s *stubResetService) RequestReset(ctx context.Context, in ports.RequestResetInput) error {
	return s.requestFn(ctx, in)
}

func (s *stubResetService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	return s.verifyFn(ctx, token)
}

func (s *stubResetService) ResetPassword(ctx context.Context, token string, in ports.ResetPasswordInput) (*domain.User, error) {
	return s.resetFn(ctx, token, in)
}

// prefixURLs serves avatars from a fixed URL prefix.
type prefixURLs string

func (p prefixURLs) URL(name string) string { return string(p) + name }

const testAvatars = prefixURLs("/static/profile_pics/")

const testPostID = "01890a5d-ac96-774b-bcce-b302099a8057"

// newContext builds an echo context with the handler validator installed.
// user, when non-nil, is attached as the logged-in user.
func newContext(method, target string, body io.Reader, contentType string, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		middleware.SetUser(c, user)
	}
	return c, rec
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

func withParams(c echo.Context, path string, kv ...string) {
	c.SetPath(path)
	names := make([]string, 0, len(kv)/2)
	values := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}
