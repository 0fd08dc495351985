package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// SessionHandler exposes the synchronizer state of the caller's device.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Get handles GET /v1/session.
//
// @Summary      Current session state
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}
	st, err := d.Sync.Settled(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(st, st.Path))
}

// SetPath handles PUT /v1/session/path: the app reports the path it shows
// and learns whether it must navigate elsewhere.
//
// @Summary      Report the current path
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      pathRequest  true  "Path shown by the app"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/session/path [put]
func (h *SessionHandler) SetPath(c echo.Context) error {
	var req pathRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	// Let the startup reconciliation finish so the decision is not
	// suppressed by the booting phase.
	if _, err := d.Sync.Settled(c.Request().Context()); err != nil {
		return err
	}
	st := d.Sync.SetPath(req.Path)
	return c.JSON(http.StatusOK, toSessionResponse(st, req.Path))
}

// ChooseRole handles POST /v1/session/role.
//
// @Summary      Choose the user's role
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      roleRequest  true  "fan or creator"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/session/role [post]
func (h *SessionHandler) ChooseRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}
	d, err := ctxDevice(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	before, err := d.Sync.Settled(ctx)
	if err != nil {
		return err
	}
	st, err := d.Sync.ChooseRole(ctx, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(st, before.Path))
}
