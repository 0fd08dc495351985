package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorStatus maps a domain error to its HTTP status. An empty msg means the
// error text itself is shown to the client.
type errorStatus struct {
	err  error
	code int
	msg  string
}

// Order matters: ErrNotAuthenticated and ErrRoleAlreadySet wrap
// ErrPrecondition.
var errorStatuses = []errorStatus{
	{domain.ErrNotAuthenticated, http.StatusUnauthorized, "not signed in"},
	{domain.ErrRoleAlreadySet, http.StatusConflict, "role already chosen"},
	{domain.ErrPrecondition, http.StatusConflict, ""},
	{domain.ErrInvalidRole, http.StatusUnprocessableEntity, ""},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
	{domain.ErrUserExists, http.StatusConflict, "user already exists"},
	{domain.ErrUnsupportedProvider, http.StatusBadRequest, ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
	{context.Canceled, http.StatusServiceUnavailable, "request cancelled"},
}

// NewHTTPErrorHandler renders every error as {"error": "..."}. Store
// failures and unknown errors are logged; their details never reach the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	if errors.Is(err, domain.ErrStore) {
		logRequestError(log, c, err).Msg("profile store error")
		return http.StatusServiceUnavailable, "profile store unavailable"
	}

	for _, s := range errorStatuses {
		if !errors.Is(err, s.err) {
			continue
		}
		if s.msg == "" {
			return s.code, err.Error()
		}
		return s.code, s.msg
	}

	logRequestError(log, c, err).Msg("unhandled error")
	return http.StatusInternalServerError, "internal server error"
}

func logRequestError(log zerolog.Logger, c echo.Context, err error) *zerolog.Event {
	return log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
}
