package reporting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/middleware"
)

type fakeRepo struct {
	patients []PatientRow
	items    []OrderedItem
	since    time.Time
	day      string
	period   string
	failWith error
}

func (f *fakeRepo) Patients(context.Context) ([]PatientRow, error) {
	return f.patients, f.failWith
}

func (f *fakeRepo) PatientsUpdatedSince(_ context.Context, since time.Time) ([]PatientRow, error) {
	f.since = since
	var out []PatientRow
	for _, p := range f.patients {
		if !p.UpdatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, f.failWith
}

func (f *fakeRepo) HighRiskPatients(context.Context) ([]PatientRow, error) {
	var out []PatientRow
	for _, p := range f.patients {
		if p.IsHighRisk {
			out = append(out, p)
		}
	}
	return out, f.failWith
}

func (f *fakeRepo) OrderedItems(_ context.Context, day, mealPeriod string) ([]OrderedItem, error) {
	f.day, f.period = day, mealPeriod
	return f.items, f.failWith
}

var reportNow = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(repo *fakeRepo) *echo.Echo {
	svc := NewService(repo)
	svc.now = func() time.Time { return reportNow }
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), false)
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func serveAs(e *echo.Echo, role, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), uuid.NewString(), role, "jti"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Census(t *testing.T) {
	repo := &fakeRepo{patients: []PatientRow{
		{UnitName: "A", Status: "Eating"}, {UnitName: "A", Status: "NPO"},
		{UnitName: "A", Status: "Eating"}, {UnitName: "B", Status: "NPO"},
	}}
	rec := serveAs(newTestRouter(repo), auth.RoleNCA, "/api/v1/reports/census")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `"eating":[{"unit":"A","num_patients":2},{"unit":"B","num_patients":0}]`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("expected %s in %s", want, rec.Body.String())
	}
}

func TestHandler_PatientUpdates(t *testing.T) {
	repo := &fakeRepo{patients: []PatientRow{
		{UnitName: "A", RoomNumber: 7, FirstName: "Ada", LastName: "Lovelace", DietName: "Regular", UpdatedAt: reportNow.Add(-10 * time.Minute)},
		{UnitName: "A", RoomNumber: 8, FirstName: "Alan", LastName: "Turing", DietName: "Regular", UpdatedAt: reportNow.Add(-2 * time.Hour)},
	}}
	e := newTestRouter(repo)

	rec := serveAs(e, auth.RoleLeadNCA, "/api/v1/reports/patient-updates?range=15")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !repo.since.Equal(reportNow.Add(-15 * time.Minute)) {
		t.Errorf("expected a 15 minute window, got since=%s", repo.since)
	}
	if !strings.Contains(rec.Body.String(), `"rooms":["7 Ada Lovelace Regular"]`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	serveAs(e, auth.RoleLeadNCA, "/api/v1/reports/patient-updates")
	if !repo.since.Equal(reportNow.Add(-DefaultUpdateRange)) {
		t.Errorf("expected the default window, got since=%s", repo.since)
	}

	for _, bad := range []string{"abc", "0", "-5"} {
		if rec := serveAs(e, auth.RoleLeadNCA, "/api/v1/reports/patient-updates?range="+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("range=%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestHandler_RiskLog(t *testing.T) {
	repo := &fakeRepo{patients: []PatientRow{
		{UnitName: "A", RoomNumber: 7, FirstName: "Ada", LastName: "Lovelace", DietName: "Puree", IsHighRisk: true},
	}}
	rec := serveAs(newTestRouter(repo), auth.RoleNurse, "/api/v1/reports/risk-log")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"patients":["7 Ada Lovelace Puree"]`) {
		t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_PrepList(t *testing.T) {
	repo := &fakeRepo{items: []OrderedItem{
		{PatientStatus: "Eating", Name: "Burger", Category: "entree", PortionSize: 1, PortionUnit: "each", ProductionArea: "Grill"},
		{PatientStatus: "Eating", Name: "Burger", Category: "entree", PortionSize: 1, PortionUnit: "each", ProductionArea: "Grill"},
	}}
	e := newTestRouter(repo)

	rec := serveAs(e, auth.RoleNCA, "/api/v1/reports/prep-list?day=Monday&meal_period=Lunch&production_area=Grill")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.day != "Monday" || repo.period != "Lunch" {
		t.Errorf("unexpected query %s %s", repo.day, repo.period)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Burger"`) || !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	for _, q := range []string{
		"day=Someday&meal_period=Lunch&production_area=Grill",
		"day=Monday&meal_period=Brunch&production_area=Grill",
		"day=Monday&meal_period=Lunch",
	} {
		if rec := serveAs(e, auth.RoleNCA, "/api/v1/reports/prep-list?"+q); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestHandler_RepositoryFailure(t *testing.T) {
	repo := &fakeRepo{failWith: errors.New("connection reset")}
	rec := serveAs(newTestRouter(repo), auth.RoleNCA, "/api/v1/reports/census")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("expected internal detail hidden outside development")
	}
}
