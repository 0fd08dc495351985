package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

var dashboardSections = map[domain.Role][]dashboardSection{
	domain.RoleFan: {
		{Key: "feed", Title: "Your feed"},
		{Key: "followed_clubs", Title: "Clubs you follow"},
		{Key: "discover", Title: "Discover clubs"},
	},
	domain.RoleCreator: {
		{Key: "my_clubs", Title: "Your clubs"},
		{Key: "posts", Title: "Posts"},
		{Key: "supporters", Title: "Supporters"},
	},
}

// DashboardHandler serves the role-specific dashboard descriptor.
type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Get handles GET /v1/dashboard.
//
// @Summary      Dashboard for the current role
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/dashboard [get]
func (h *DashboardHandler) Get(c echo.Context) error {
	u, err := ctxUser(c)
	if err != nil {
		return err
	}
	sections, ok := dashboardSections[u.Role]
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "role not chosen")
	}

	return c.JSON(http.StatusOK, dashboardResponse{
		Role:     string(u.Role),
		Greeting: "Welcome back, " + u.FullName,
		Sections: sections,
	})
}
