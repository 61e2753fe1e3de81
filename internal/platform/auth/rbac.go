package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return apperr.New(apperr.Forbidden,
				"You do not have permission to perform this action (required role: %s)", strings.Join(roles, " or "))
		}
	}
}

func HasRole(userRoles []string, required ...string) bool {
	for _, has := range userRoles {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}
