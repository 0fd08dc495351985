package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clubconnect/clubconnect/internal/core/domain"
)

// RBAC enforces role-based access control. It expects RequireUser to have
// run. A user who has not chosen a role yet is sent to the role chooser.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if role == "" {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":    "role not chosen",
					"navigate": domain.PathRoleChooser,
				})
			}
			if _, ok := allowed[domain.Role(role)]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
