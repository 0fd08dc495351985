package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload"},
		{"not authenticated", domain.ErrNotAuthenticated, http.StatusUnauthorized, "not signed in"},
		{"role already set", fmt.Errorf("choose: %w", domain.ErrRoleAlreadySet), http.StatusConflict, "role already chosen"},
		{"invalid role", fmt.Errorf("%w: \"admin\"", domain.ErrInvalidRole), http.StatusUnprocessableEntity, "invalid role: \"admin\""},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"user exists", domain.ErrUserExists, http.StatusConflict, "user already exists"},
		{"unsupported provider", domain.ErrUnsupportedProvider, http.StatusBadRequest, "unsupported oauth provider"},
		{"store", fmt.Errorf("%w: timeout", domain.ErrStore), http.StatusServiceUnavailable, "profile store unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	e := echo.New()
	handle := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handle(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, resp.Error)
			}
		})
	}
}
