package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quillhub/blog/internal/api/metrics"
	"github.com/quillhub/blog/internal/api/middleware"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Secure bool
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	accounts ports.AccountService
	auth     ports.AuthService
	avatars  AvatarURLs
	cookie   CookieConfig
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewAuthHandler(
	accounts ports.AccountService,
	auth ports.AuthService,
	avatars AvatarURLs,
	cookie CookieConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		auth:     auth,
		avatars:  avatars,
		cookie:   cookie,
		metrics:  m,
		log:      log,
	}
}

type registerRequest struct {
	Username        string `json:"username"         form:"username"`
	Email           string `json:"email"            form:"email"`
	Password        string `json:"password"         form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
	Next     string `json:"next"     form:"next"`
}

type formResponse struct {
	Form  formSchema `json:"form"`
	Error string     `json:"error,omitempty"`
}

// RegisterForm handles GET /register.
//
// @Summary      Describe the registration form
// @Tags         auth
// @Produce      json
// @Success      200  {object}  formResponse
// @Router       /register [get]
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return c.JSON(http.StatusOK, formResponse{Form: registerForm()})
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      422   {object}  map[string]any
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	user, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	h.metrics.UserRegistered()

	return c.JSON(http.StatusCreated, toUserResponse(user, h.avatars, true))
}

// LoginForm handles GET /login.
//
// @Summary      Describe the login form
// @Tags         auth
// @Produce      json
// @Success      200  {object}  formResponse
// @Router       /login [get]
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, formResponse{Form: loginForm()})
}

// Login verifies credentials, sets the session cookie and redirects to the
// local path given in next, or /home.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Param        next  query     string        false  "Local path to continue to"
// @Param        body  body      loginRequest  true   "Login credentials"
// @Success      302
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	session, _, err := h.auth.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Remember: req.Remember,
	})
	if err != nil {
		h.metrics.Login(metrics.LoginFailure)
		return err
	}
	h.metrics.Login(metrics.LoginSuccess)

	c.SetCookie(h.sessionCookie(session))

	next := c.QueryParam("next")
	if next == "" {
		next = req.Next
	}
	return c.Redirect(http.StatusFound, middleware.SafeNext(next, "/home"))
}

// Logout handles GET /logout.
//
// @Summary      Logout
// @Tags         auth
// @Success      302
// @Router       /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), middleware.SessionID(c)); err != nil {
		h.log.Warn().Err(err).Msg("failed to delete session on logout")
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/home")
}

// sessionCookie is persistent only for remembered logins; otherwise the
// browser drops it when it closes.
func (h *AuthHandler) sessionCookie(s *domain.Session) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.Remember {
		cookie.MaxAge = int(s.ExpiresAt.Sub(s.CreatedAt).Seconds())
		cookie.Expires = s.ExpiresAt
	}
	return cookie
}

