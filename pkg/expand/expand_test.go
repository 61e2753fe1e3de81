package expand

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

func TestParse(t *testing.T) {
	s := Parse(" Diet, room,,orders ")
	if len(s) != 3 || !s.Has("diet") || !s.Has("room") || !s.Has("orders") {
		t.Errorf("unexpected set %v", s)
	}
	if !Parse("").Empty() {
		t.Error("expected empty set")
	}
}

func TestFromContext(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?expand=diet,room", nil), httptest.NewRecorder())
	s, err := FromContext(c, "diet", "room", "orders")
	if err != nil || !s.Has("diet") || s.Has("orders") {
		t.Fatalf("unexpected %v %v", s, err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?expand=diet,secrets", nil), httptest.NewRecorder())
	if _, err := FromContext(c, "diet"); !apperr.IsKind(err, apperr.Validation) {
		t.Errorf("expected Validation error, got %v", err)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if s, err := FromContext(c, "diet"); err != nil || !s.Empty() {
		t.Errorf("no expand param must yield an empty set, got %v %v", s, err)
	}
}
