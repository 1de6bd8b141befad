package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/api/metrics"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

const (
	msgResetSent    = "An email has been sent with instructions to reset your password."
	msgInvalidToken = "That is an invalid or expired token"
)

// ResetHandler drives the forgotten-password flow.
type ResetHandler struct {
	resets  ports.ResetService
	metrics *metrics.Metrics
}

func NewResetHandler(resets ports.ResetService, m *metrics.Metrics) *ResetHandler {
	return &ResetHandler{resets: resets, metrics: m}
}

type resetRequestRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"         form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type tokenParam struct {
	Token string `param:"token" validate:"required,jwt"`
}

// RequestForm handles GET /reset_password. After a rejected token link the
// client lands here with ?error=invalid_token.
//
// @Summary      Describe the reset-request form
// @Tags         reset
// @Produce      json
// @Param        error  query     string  false  "invalid_token after a bad link"
// @Success      200    {object}  formResponse
// @Router       /reset_password [get]
func (h *ResetHandler) RequestForm(c echo.Context) error {
	resp := formResponse{Form: resetRequestForm()}
	if c.QueryParam("error") == "invalid_token" {
		resp.Error = msgInvalidToken
	}
	return c.JSON(http.StatusOK, resp)
}

// Request handles POST /reset_password. The response is the same whether or
// not the address belongs to an account.
//
// @Summary      Email a password reset link
// @Tags         reset
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        body  body      resetRequestRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      422   {object}  map[string]any
// @Router       /reset_password [post]
func (h *ResetHandler) Request(c echo.Context) error {
	var req resetRequestRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if err := h.resets.RequestReset(c.Request().Context(), ports.RequestResetInput{Email: req.Email}); err != nil {
		return err
	}
	h.metrics.PasswordReset(metrics.ResetRequested)

	return c.JSON(http.StatusOK, messageResponse{Message: msgResetSent})
}

// TokenForm handles GET /reset_password/:token.
//
// @Summary      Check a reset link and describe the new-password form
// @Tags         reset
// @Produce      json
// @Param        token  path      string  true  "Reset token from the email"
// @Success      200    {object}  formResponse
// @Failure      302
// @Router       /reset_password/{token} [get]
func (h *ResetHandler) TokenForm(c echo.Context) error {
	token, err := h.token(c)
	if err != nil {
		return h.rejected(c, err)
	}
	if _, err := h.resets.VerifyToken(c.Request().Context(), token); err != nil {
		return h.rejected(c, err)
	}
	return c.JSON(http.StatusOK, formResponse{Form: resetForm()})
}

// Reset handles POST /reset_password/:token and sends the user to the login
// page on success.
//
// @Summary      Set a new password using a reset link
// @Tags         reset
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Param        token  path      string                true  "Reset token from the email"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      302
// @Failure      422    {object}  map[string]any
// @Router       /reset_password/{token} [post]
func (h *ResetHandler) Reset(c echo.Context) error {
	token, err := h.token(c)
	if err != nil {
		return h.rejected(c, err)
	}

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	_, err = h.resets.ResetPassword(c.Request().Context(), token, ports.ResetPasswordInput{
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return h.rejected(c, err)
	}
	h.metrics.PasswordReset(metrics.ResetCompleted)

	return c.Redirect(http.StatusFound, "/login")
}

func (h *ResetHandler) token(c echo.Context) (string, error) {
	p := tokenParam{Token: c.Param("token")}
	if err := c.Validate(&p); err != nil {
		return "", domain.ErrInvalidToken
	}
	return p.Token, nil
}

func (h *ResetHandler) rejected(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidToken) {
		h.metrics.PasswordReset(metrics.ResetRejected)
	}
	return redirectOnInvalidToken(c, err)
}
