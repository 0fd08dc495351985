package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubconnect/clubconnect/internal/api/middleware"
	"github.com/clubconnect/clubconnect/internal/core/domain"
	"github.com/clubconnect/clubconnect/internal/core/service"
)

// ctxDevice returns the device resolved by the Device middleware and fails
// fast when the middleware did not run.
func ctxDevice(c echo.Context) (*service.Device, error) {
	d, _ := c.Get(middleware.ContextDevice).(*service.Device)
	if d == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing device identity")
	}
	return d, nil
}

// ctxUser returns the current user injected by the RequireUser middleware.
func ctxUser(c echo.Context) (*domain.CurrentUser, error) {
	u, _ := c.Get(middleware.ContextUser).(*domain.CurrentUser)
	if u == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return u, nil
}
