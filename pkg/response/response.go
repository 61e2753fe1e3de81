// Package response writes the success envelope shared by every handler.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Status: "success", Data: data})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Status: "success", Data: data})
}

// Message answers 200 with a message and no data.
func Message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, Envelope{Status: "success", Message: msg})
}

// WithToken answers with a freshly issued token alongside data.
func WithToken(c echo.Context, code int, token string, data interface{}) error {
	return c.JSON(code, Envelope{Status: "success", Token: token, Data: data})
}
