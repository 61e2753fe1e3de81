package menu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/middleware"
)

func newTestRouter() (*fixture, *echo.Echo) {
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), false)
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return f, e
}

func serveAs(e *echo.Echo, role, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), uuid.NewString(), role, "jti"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateMenu(t *testing.T) {
	f, e := newTestRouter()
	body := `{"day":"Tuesday","meal_period":"Lunch","option":"Hot",` +
		`"diet_ids":["` + f.regular.ID.String() + `"],"entree_id":"` + f.burger.ID.String() + `"}`

	if rec := serveAs(e, auth.RoleDietitian, http.MethodPost, "/api/v1/menus", body); rec.Code != http.StatusForbidden {
		t.Errorf("dietitian: expected 403, got %d", rec.Code)
	}
	rec := serveAs(e, auth.RoleAdmin, http.MethodPost, "/api/v1/menus", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"entree_id":"`+f.burger.ID.String()+`"`) {
		t.Errorf("expected entree in body, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateMenu_ChangeOption(t *testing.T) {
	f, e := newTestRouter()
	m := f.lunch(OptionHot)
	if err := f.svc.CreateMenu(context.Background(), m); err != nil {
		t.Fatalf("CreateMenu: %v", err)
	}

	rec := serveAs(e, auth.RoleAdmin, http.MethodPatch, "/api/v1/menus/"+m.ID.String(), `{"option":"Cold"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.repo.menus[m.ID].Option != OptionCold || len(f.repo.menus[m.ID].SideIDs) != 1 {
		t.Errorf("unexpected stored menu %+v", f.repo.menus[m.ID])
	}
}

func TestHandler_ListMenus(t *testing.T) {
	f, e := newTestRouter()
	f.svc.CreateMenu(context.Background(), f.lunch(OptionHot))

	rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/menus?day=Tuesday&expand=items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"results":1`) || !strings.Contains(rec.Body.String(), `"name":"Burger"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	if rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/menus?diet_id=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad diet_id, got %d", rec.Code)
	}
}

func TestHandler_GetMenu_NotFound(t *testing.T) {
	_, e := newTestRouter()
	rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/menus/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "No menu was found with that ID") {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
