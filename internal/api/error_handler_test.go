package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/blog/internal/core/domain"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
		wantField string
	}{
		{
			name:      "validation error",
			err:       domain.NewValidationError().Add("title", "title is required", nil),
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "validation failed",
			wantField: "title",
		},
		{
			name:      "duplicate username",
			err:       fmt.Errorf("insert: %w", domain.ErrDuplicateUsername),
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "validation failed",
			wantField: "username",
		},
		{
			name:      "duplicate email",
			err:       domain.ErrDuplicateEmail,
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "validation failed",
			wantField: "email",
		},
		{
			name:      "unsupported image",
			err:       domain.ErrUnsupportedImage,
			wantCode:  http.StatusUnprocessableEntity,
			wantError: "validation failed",
			wantField: "picture",
		},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, msgLoginFailed, ""},
		{"bad token", domain.ErrInvalidToken, http.StatusBadRequest, "invalid or expired token", ""},
		{"missing post", fmt.Errorf("get: %w", domain.ErrPostNotFound), http.StatusNotFound, "post not found", ""},
		{"missing user", domain.ErrUserNotFound, http.StatusNotFound, "user not found", ""},
		{"not the author", domain.ErrForbidden, http.StatusForbidden, "access forbidden", ""},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "too many requests"), http.StatusTooManyRequests, "too many requests", ""},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error", ""},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tc.err, c)

			require.Equal(t, tc.wantCode, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp.Error)
			if tc.wantField != "" {
				assert.Contains(t, resp.Fields, tc.wantField)
			} else {
				assert.Empty(t, resp.Fields)
			}
			assert.NotContains(t, rec.Body.String(), "disk on fire")
		})
	}
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodHead, "/post/x", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrPostNotFound, c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}
