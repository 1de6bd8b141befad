package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/core/domain"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "session"

const (
	ctxUserKey    = "user"
	ctxSessionKey = "session_id"
)

// UserResolver maps a session id to its user. nil, nil means anonymous.
type UserResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*domain.User, error)
}

// Session resolves the session cookie and injects the current user into the
// context. Resolution failures are logged and the request continues as
// anonymous.
func Session(resolver UserResolver, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			user, err := resolver.CurrentUser(c.Request().Context(), cookie.Value)
			if err != nil {
				log.Warn().Err(err).Str("path", c.Path()).Msg("session lookup failed, continuing as anonymous")
				return next(c)
			}

			c.Set(ctxSessionKey, cookie.Value)
			if user != nil {
				SetUser(c, user)
			}
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(ctxUserKey).(*domain.User)
	return user
}

// SetUser marks the request as made by user.
func SetUser(c echo.Context, user *domain.User) {
	c.Set(ctxUserKey, user)
}

// SessionID returns the raw session id presented by the client, if any.
func SessionID(c echo.Context) string {
	if id, ok := c.Get(ctxSessionKey).(string); ok {
		return id
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth redirects anonymous requests to the login page, remembering the
// original request URI in the next parameter.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				target := "/login?next=" + url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

// RedirectIfAuthenticated sends logged-in users to target, for pages that only
// make sense anonymously (login, register, reset request).
func RedirectIfAuthenticated(target string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) != nil {
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

// SafeNext returns next when it is a local absolute path and fallback
// otherwise, so login cannot be used as an open redirect.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
