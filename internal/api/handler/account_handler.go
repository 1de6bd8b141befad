package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quillhub/blog/internal/api/metrics"
	"github.com/quillhub/blog/internal/core/domain"
	"github.com/quillhub/blog/internal/core/ports"
)

// DefaultMaxAvatarBytes is the largest avatar upload accepted.
const DefaultMaxAvatarBytes = 5 << 20

// multipartOverhead is the allowance for form fields and part headers on top
// of the file itself.
const multipartOverhead = 64 << 10

// AccountHandler serves the profile of the logged-in user.
type AccountHandler struct {
	accounts  ports.AccountService
	avatars   AvatarURLs
	maxUpload int64
	metrics   *metrics.Metrics
}

// NewAccountHandler returns an AccountHandler. maxUpload <= 0 uses
// DefaultMaxAvatarBytes.
func NewAccountHandler(accounts ports.AccountService, avatars AvatarURLs, maxUpload int64, m *metrics.Metrics) *AccountHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxAvatarBytes
	}
	return &AccountHandler{accounts: accounts, avatars: avatars, maxUpload: maxUpload, metrics: m}
}

type accountRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
}

type accountResponse struct {
	User userResponse `json:"user"`
	Form formSchema   `json:"form"`
}

// Show handles GET /account.
//
// @Summary      Current user's profile
// @Tags         account
// @Produce      json
// @Success      200  {object}  accountResponse
// @Failure      302
// @Router       /account [get]
func (h *AccountHandler) Show(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{
		User: toUserResponse(user, h.avatars, true),
		Form: accountForm(),
	})
}

// Update handles POST /account. The body may be JSON, urlencoded or
// multipart; only multipart bodies can carry a new picture.
//
// @Summary      Update username, email and profile picture
// @Tags         account
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        username  formData  string  true   "New username"
// @Param        email     formData  string  true   "New email"
// @Param        picture   formData  file    false  "JPEG or PNG image, at most 5 MiB"
// @Success      200       {object}  accountResponse
// @Failure      422       {object}  map[string]any
// @Router       /account [post]
func (h *AccountHandler) Update(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUpload+multipartOverhead)

	var body accountRequest
	if err := c.Bind(&body); err != nil {
		if tooLarge(err) {
			return h.tooLargeError()
		}
		return err
	}

	input := ports.UpdateProfileInput{Username: body.Username, Email: body.Email}

	fh, err := c.FormFile("picture")
	switch {
	case err == nil:
		if fh.Size > h.maxUpload {
			return h.tooLargeError()
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer func(f multipart.File) { _ = f.Close() }(f)
		input.Avatar = &ports.AvatarUpload{Filename: fh.Filename, Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case tooLarge(err):
		return h.tooLargeError()
	default:
		return fmt.Errorf("read upload: %w", err)
	}

	updated, err := h.accounts.UpdateProfile(c.Request().Context(), user, input)
	if err != nil {
		return err
	}
	if input.Avatar != nil {
		h.metrics.AvatarUploaded()
	}

	return c.JSON(http.StatusOK, accountResponse{
		User: toUserResponse(updated, h.avatars, true),
		Form: accountForm(),
	})
}

func (h *AccountHandler) tooLargeError() error {
	limit := fmt.Sprintf("%d bytes", h.maxUpload)
	if h.maxUpload >= 1<<20 {
		limit = fmt.Sprintf("%d MiB", h.maxUpload>>20)
	}
	return domain.NewValidationError().Add("picture", "File is larger than "+limit+".", domain.ErrUnsupportedImage)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
