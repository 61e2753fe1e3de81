package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout sets a deadline on each request's context and answers 504
// when the handler overruns it. Paths under skipPrefix (the websocket feed)
// are long-lived and left alone.
func RequestTimeout(timeout time.Duration, skipPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipPrefix != "" && strings.HasPrefix(c.Request().URL.Path, skipPrefix) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					return echo.NewHTTPError(http.StatusGatewayTimeout,
						"Request processing exceeded the allowed time limit")
				}
				return ctx.Err()
			}
		}
	}
}
