package patient

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

func TestHandler_CreatePatient(t *testing.T) {
	f, e := newTestRouter()
	body := `{"first_name":"Ada","last_name":"Lovelace","date_of_birth":"1950-12-10",` +
		`"room_id":"` + f.room101.ID.String() + `","diet_id":"` + f.regular.ID.String() + `",` +
		`"known_allergies":["Peanuts"],"is_high_risk":true}`

	for _, role := range []string{auth.RoleNCA, auth.RoleDietitian, auth.RoleLeadNCA} {
		if rec := serveAs(e, role, http.MethodPost, "/api/v1/patients", body); rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", role, rec.Code)
		}
	}
	rec := serveAs(e, auth.RoleNurse, http.MethodPost, "/api/v1/patients", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("nurse: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, want := range []string{`"unit_name":"4 West"`, `"date_of_birth":"1950-12-10"`, `"known_allergies":["peanuts"]`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected %s in body, got %s", want, rec.Body.String())
		}
	}

	rec = serveAs(e, auth.RoleAdmin, http.MethodPost, "/api/v1/patients", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("admin duplicate room: expected 409, got %d", rec.Code)
	}
}

func TestHandler_CreatePatient_UnknownRoom(t *testing.T) {
	f, e := newTestRouter()
	body := `{"first_name":"Ada","last_name":"Lovelace","date_of_birth":"1950-12-10",` +
		`"room_id":"` + uuid.NewString() + `","diet_id":"` + f.regular.ID.String() + `"}`
	rec := serveAs(e, auth.RoleNurse, http.MethodPost, "/api/v1/patients", body)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "No room was found with that ID") {
		t.Fatalf("expected 404 naming the room, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_UpdatePatient_Partial(t *testing.T) {
	f, e := newTestRouter()
	p := f.admission()
	if err := f.svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	rec := serveAs(e, auth.RoleNurse, http.MethodPatch, "/api/v1/patients/"+p.ID.String(), `{"status":"NPO"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored := f.repo.patients[p.ID]
	if stored.Status != StatusNPO || stored.LastName != "Lovelace" || stored.UnitName != "4 West" {
		t.Errorf("expected a partial update, got %+v", stored)
	}

	rec = serveAs(e, auth.RoleNurse, http.MethodPatch, "/api/v1/patients/"+p.ID.String(), `{"status":"Fasting"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad status, got %d", rec.Code)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	f, e := newTestRouter()
	p := f.admission()
	f.svc.CreatePatient(context.Background(), p)

	rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients/"+p.ID.String()+"?expand=room", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"room":{`) {
		t.Errorf("expected the expanded room, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients/"+p.ID.String()+"?expand=items", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unsupported expansion, got %d", rec.Code)
	}
	if rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients/42", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	f, e := newTestRouter()
	a := f.admission()
	a.IsHighRisk = true
	f.svc.CreatePatient(context.Background(), a)
	b := f.admission()
	b.RoomID = f.room102.ID
	f.svc.CreatePatient(context.Background(), b)

	rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients?high_risk=true", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"results":1`) {
		t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	rec = serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients?unit=4%20West", "")
	if !strings.Contains(rec.Body.String(), `"results":2`) {
		t.Errorf("expected both 4 West patients, got %s", rec.Body.String())
	}
	if rec := serveAs(e, auth.RoleNCA, http.MethodGet, "/api/v1/patients?high_risk=maybe", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	f, e := newTestRouter()
	p := f.admission()
	f.svc.CreatePatient(context.Background(), p)

	if rec := serveAs(e, auth.RoleNCA, http.MethodDelete, "/api/v1/patients/"+p.ID.String(), ""); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if rec := serveAs(e, auth.RoleAdmin, http.MethodDelete, "/api/v1/patients/"+p.ID.String(), ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(f.repo.patients) != 0 {
		t.Error("expected patient removed")
	}
}
