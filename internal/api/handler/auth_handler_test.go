package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/api/middleware"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

func newAuthHandler(accounts *stubAccountService, auth *stubAuthService) *AuthHandler {
	if accounts == nil {
		accounts = &stubAccountService{}
	}
	if auth == nil {
		auth = &stubAuthService{}
	}
	return NewAuthHandler(accounts, auth, testAvatars, CookieConfig{}, nil, zerolog.Nop())
}

func sessionFor(remember bool) *domain.Session {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ttl := 12 * time.Hour
	if remember {
		ttl = 8760 * time.Hour
	}
	return &domain.Session{ID: "sess-1", UserID: "u1", Remember: remember, CreatedAt: created, ExpiresAt: created.Add(ttl)}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" || in.ConfirmPassword != "secret" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Username: in.Username, Email: in.Email, AvatarFile: domain.DefaultAvatar}, nil
		},
	}
	h := newAuthHandler(stub, nil)

	body := jsonBody(`{"username":"alice","email":"alice@example.com","password":"secret","confirm_password":"secret"}`)
	c, rec := newContext(http.MethodPost, "/register", body, echo.MIMEApplicationJSON, nil)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["avatar_url"] != "/static/profile_pics/default.jpg" {
		t.Fatalf("unexpected avatar url: %v", resp["avatar_url"])
	}
}

func TestAuthHandler_Register_FormEncoded(t *testing.T) {
	var got ports.RegisterInput
	stub := &stubAccountService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			got = in
			return &domain.User{ID: "u1", Username: in.Username}, nil
		},
	}
	h := newAuthHandler(stub, nil)

	form := url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"pw"}, "confirm_password": {"pw"}}
	c, rec := newContext(http.MethodPost, "/register", strings.NewReader(form.Encode()), echo.MIMEApplicationForm, nil)

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated || got.Username != "bob" || got.ConfirmPassword != "pw" {
		t.Fatalf("form body not bound: code=%d input=%+v", rec.Code, got)
	}
}

func TestAuthHandler_Register_DuplicatePassesThrough(t *testing.T) {
	dup := domain.NewValidationError().
		Add("username", "taken", domain.ErrDuplicateUsername).
		Add("email", "taken", domain.ErrDuplicateEmail)
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) { return nil, dup },
	}
	h := newAuthHandler(stub, nil)

	c, _ := newContext(http.MethodPost, "/register", jsonBody(`{"username":"bob"}`), echo.MIMEApplicationJSON, nil)
	err := h.Register(c)
	if !errors.Is(err, domain.ErrDuplicateEmail) || !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected both duplicate errors, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := newAuthHandler(stub, nil)

	c, _ := newContext(http.MethodPost, "/register", jsonBody("not-json"), echo.MIMEApplicationJSON, nil)
	err := h.Register(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 bind error, got %v", err)
	}
}

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*domain.Session, *domain.User, error) {
			if in.Email != "alice@example.com" || in.Password != "secret" || in.Remember {
				t.Fatalf("unexpected input: %+v", in)
			}
			return sessionFor(false), &domain.User{ID: "u1"}, nil
		},
	}
	h := newAuthHandler(nil, stub)

	c, rec := newContext(http.MethodPost, "/login", jsonBody(`{"email":"alice@example.com","password":"secret"}`), echo.MIMEApplicationJSON, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/home" {
		t.Fatalf("expected redirect to /home, got %q", loc)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != middleware.SessionCookie || ck.Value != "sess-1" {
		t.Fatalf("unexpected cookie %s=%s", ck.Name, ck.Value)
	}
	if !ck.HttpOnly || ck.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie must be HttpOnly and SameSite=Lax: %+v", ck)
	}
	if ck.MaxAge != 0 {
		t.Fatalf("non-remembered login must use a session cookie, got MaxAge=%d", ck.MaxAge)
	}
}

func TestAuthHandler_Login_RememberIsPersistent(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*domain.Session, *domain.User, error) {
			if !in.Remember {
				t.Fatalf("remember flag not bound")
			}
			return sessionFor(true), &domain.User{ID: "u1"}, nil
		},
	}
	h := newAuthHandler(nil, stub)

	form := url.Values{"email": {"alice@example.com"}, "password": {"secret"}, "remember": {"true"}}
	c, rec := newContext(http.MethodPost, "/login", strings.NewReader(form.Encode()), echo.MIMEApplicationForm, nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	ck := rec.Result().Cookies()[0]
	if want := int((8760 * time.Hour).Seconds()); ck.MaxAge != want {
		t.Fatalf("expected MaxAge %d, got %d", want, ck.MaxAge)
	}
}

func TestAuthHandler_Login_Next(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.Session, *domain.User, error) {
			return sessionFor(false), &domain.User{ID: "u1"}, nil
		},
	}
	h := newAuthHandler(nil, stub)

	tests := []struct {
		target string
		want   string
	}{
		{"/login?next=%2Faccount", "/account"},
		{"/login?next=%2F%2Fevil.example.com", "/home"},
		{"/login?next=https%3A%2F%2Fevil.example.com", "/home"},
	}
	for _, tc := range tests {
		c, rec := newContext(http.MethodPost, tc.target, jsonBody(`{"email":"a@example.com","password":"x"}`), echo.MIMEApplicationJSON, nil)
		if err := h.Login(c); err != nil {
			t.Fatalf("%s: handler error: %v", tc.target, err)
		}
		if loc := rec.Header().Get(echo.HeaderLocation); loc != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.target, tc.want, loc)
		}
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*domain.Session, *domain.User, error) {
			return nil, nil, domain.ErrInvalidCredentials
		},
	}
	h := newAuthHandler(nil, stub)

	c, rec := newContext(http.MethodPost, "/login", jsonBody(`{"email":"a@example.com","password":"bad"}`), echo.MIMEApplicationJSON, nil)
	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookie may be set on failure")
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	var loggedOut string
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, id string) error {
			loggedOut = id
			return nil
		},
	}
	h := newAuthHandler(nil, stub)

	c, rec := newContext(http.MethodGet, "/logout", nil, "", nil)
	c.Request().AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "sess-9"})

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if loggedOut != "sess-9" {
		t.Fatalf("expected session sess-9 to be deleted, got %q", loggedOut)
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/home" {
		t.Fatalf("expected 302 /home, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	ck := rec.Result().Cookies()[0]
	if ck.Value != "" || ck.MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", ck)
	}
}

func TestAuthHandler_Logout_StoreErrorStillClearsCookie(t *testing.T) {
	stub := &stubAuthService{
		logoutFn: func(context.Context, string) error { return errors.New("redis down") },
	}
	h := newAuthHandler(nil, stub)

	c, rec := newContext(http.MethodGet, "/logout", nil, "", nil)
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected redirect with cleared cookie")
	}
}

func TestAuthHandler_Forms(t *testing.T) {
	h := newAuthHandler(nil, nil)

	for name, fn := range map[string]echo.HandlerFunc{"register": h.RegisterForm, "login": h.LoginForm} {
		c, rec := newContext(http.MethodGet, "/"+name, nil, "", nil)
		if err := fn(c); err != nil {
			t.Fatalf("%s: handler error: %v", name, err)
		}
		var resp formResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: invalid json: %v", name, err)
		}
		if len(resp.Form.Fields) == 0 {
			t.Fatalf("%s: expected form fields", name)
		}
	}
}
