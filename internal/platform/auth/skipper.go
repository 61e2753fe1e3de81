package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route patterns reachable without a session: health
// checks and the account bootstrap flows.
var publicPaths = map[string]bool{
	"/health":                             true,
	"/health/db":                          true,
	"/api/v1/users/register":              true,
	"/api/v1/users/login":                 true,
	"/api/v1/users/forgot-password":       true,
	"/api/v1/users/reset-password/:token": true,
}

// AuthSkipper returns true for requests whose matched route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
