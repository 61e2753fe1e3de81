package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Kind    string   `json:"kind,omitempty"`
	Items   []string `json:"items,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func statusWord(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

// ErrorHandler renders errors for echo.HTTPErrorHandler. Operational errors
// and echo HTTP errors always report their message. Anything else becomes a
// generic 500; in development the underlying error text is included.
func ErrorHandler(logger zerolog.Logger, dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := renderError(err, dev)
		if code >= 500 {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func renderError(err error, dev bool) (int, ErrorBody) {
	if e, ok := apperr.As(err); ok {
		code := e.Status()
		body := ErrorBody{Status: statusWord(code), Message: e.Message, Kind: string(e.Kind), Items: e.Items}
		if dev && e.Err != nil {
			body.Error = e.Err.Error()
		}
		return code, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := fmt.Sprintf("%v", he.Message)
		if he.Internal != nil && dev {
			return he.Code, ErrorBody{Status: statusWord(he.Code), Message: msg, Error: he.Internal.Error()}
		}
		return he.Code, ErrorBody{Status: statusWord(he.Code), Message: msg}
	}

	body := ErrorBody{Status: "error", Message: "Something went very wrong!"}
	if dev {
		body.Error = err.Error()
	}
	return http.StatusInternalServerError, body
}
