package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/auth"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Error("expected request_id to be generated")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("expected X-Request-ID response header to match")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = RequestID()(func(c echo.Context) error { return nil })(c)
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_RendersErrorAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop(), false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/diets/x", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "u-1", auth.RoleNCA, ""))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")

	err := Logger(logger)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "No diet found with that ID")
	})(c)
	if err != nil {
		t.Fatalf("expected error to be rendered, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["level"] != "warn" || line["status"] != float64(404) || line["user_id"] != "u-1" || line["request_id"] != "req-1" {
		t.Errorf("unexpected log line %v", line)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), httptest.NewRecorder())

	err := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("test panic")
	})(c)
	if err == nil || !strings.Contains(err.Error(), "test panic") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}

	code, body := renderError(err, false)
	if code != http.StatusInternalServerError || body.Message != "Something went very wrong!" {
		t.Errorf("panic must render as a generic 500, got %d %+v", code, body)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())
	if err := Recovery(zerolog.Nop())(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudit_LogsMutationsOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	handler := Audit(logger)(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	get := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), httptest.NewRecorder())
	_ = handler(get)
	if buf.Len() != 0 {
		t.Fatalf("reads must not be audited, got %s", buf.String())
	}

	pid := "6f1c2a5e-8a4b-4e0c-9d61-0b6f0c3d2a11"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/"+pid+"/orders", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "u-7", auth.RoleNurse, ""))
	post := e.NewContext(req, httptest.NewRecorder())
	post.Set("request_id", "req-123")
	if err := handler(post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["entity"] != "orders" || line["patient_id"] != pid || line["action"] != "create" || line["user_id"] != "u-7" {
		t.Errorf("unexpected audit line %v", line)
	}
	if line["status"] != float64(http.StatusCreated) {
		t.Errorf("expected status 201, got %v", line["status"])
	}
}

func TestAudit_FailedRequest(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/api/v1/diets/abc", nil), httptest.NewRecorder())

	boom := errors.New("boom")
	if err := Audit(zerolog.New(&buf))(func(c echo.Context) error { return boom })(c); err != boom {
		t.Fatalf("expected handler error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), `"failed":true`) || !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("expected failed warn entry, got %s", buf.String())
	}
}

func TestExtractEntity(t *testing.T) {
	tests := map[string]string{
		"/api/v1/diets":                    "diets",
		"/api/v1/diets/123":                "diets",
		"/api/v1/patients/123":             "patients",
		"/api/v1/patients/123/orders/456":  "orders",
		"/api/v1/":                         "unknown",
	}
	for path, want := range tests {
		if got := extractEntity(path); got != want {
			t.Errorf("extractEntity(%q) = %q, want %q", path, got, want)
		}
	}
}
