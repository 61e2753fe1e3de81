package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		path   string
		public bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/api/v1/users/login", true},
		{"/api/v1/users/register", true},
		{"/api/v1/users/forgot-password", true},
		{"/api/v1/users/reset-password/:token", true},
		{"/api/v1/users/me/password", false},
		{"/api/v1/patients", false},
		{"/api/v1/patients/:id/orders", false},
		{"/api/v1/reports/census", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.SetPath(tt.path)

			if AuthSkipper(c) != tt.public {
				t.Errorf("AuthSkipper(%s) = %v, want %v", tt.path, !tt.public, tt.public)
			}
			if IsPublicPath(tt.path) != tt.public {
				t.Errorf("IsPublicPath(%s) mismatch", tt.path)
			}
		})
	}
}
