package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/config"
	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/internal/platform/events"
	"github.com/nutritrack/dietary/internal/platform/websocket"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                "production",
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		JWTExpiresIn:       time.Hour,
		CORSOrigins:        []string{"http://localhost:3000"},
		BodyLimit:          "10K",
		Timezone:           "UTC",
		OrderSweepInterval: time.Minute,
		MailProvider:       "log",
	}
}

// newTestServer wires the real router without a database. Only requests
// rejected before reaching a repository may be served.
func newTestServer(t *testing.T) (*services, *auth.TokenRevocationStore, http.Handler) {
	t.Helper()
	cfg := testConfig()
	svc, err := buildServices(cfg, nil, events.Noop{}, nil)
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	revoked := auth.NewTokenRevocationStore(time.Minute)
	t.Cleanup(revoked.Close)
	e := newServer(serverDeps{
		cfg:     cfg,
		svc:     svc,
		hub:     websocket.NewHub(zerolog.Nop()),
		revoked: revoked,
		logger:  zerolog.Nop(),
	})
	return svc, revoked, e
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	_, _, h := newTestServer(t)
	rec := get(h, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), version) {
		t.Fatalf("expected 200 with version, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("expected security headers, got %v", rec.Header())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
}

func TestServer_RequiresToken(t *testing.T) {
	_, _, h := newTestServer(t)
	for _, path := range []string{"/api/v1/diets", "/api/v1/patients", "/api/v1/orders", "/api/v1/reports/census", "/api/v1/users"} {
		rec := get(h, path, "")
		if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "You are not logged in") {
			t.Errorf("%s: expected 401, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}
	if rec := get(h, "/api/v1/diets", "not.a.token"); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", rec.Code)
	}
}

func TestServer_RevokedToken(t *testing.T) {
	svc, revoked, h := newTestServer(t)
	token, claims, err := svc.tokens.Issue(uuid.New(), auth.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	revoked.Revoke(claims.ID, claims.ExpiresAt.Time)

	rec := get(h, "/api/v1/diets", token)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "logged out") {
		t.Errorf("expected revoked token to be refused, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_PublicRoutes(t *testing.T) {
	cfg := testConfig()
	svc, err := buildServices(cfg, nil, events.Noop{}, nil)
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	e := newServer(serverDeps{cfg: cfg, svc: svc, hub: websocket.NewHub(zerolog.Nop()), logger: zerolog.Nop()})

	registered := map[string]bool{}
	var public []string
	for _, r := range e.Routes() {
		registered[r.Path] = true
		if auth.IsPublicPath(r.Path) && strings.HasPrefix(r.Path, "/api/") {
			public = append(public, r.Method+" "+r.Path)
		}
	}
	for _, p := range []string{"/health", "/health/db", "/api/v1/users/login", "/api/v1/users/register",
		"/api/v1/users/forgot-password", "/api/v1/users/reset-password/:token"} {
		if !registered[p] {
			t.Errorf("public path %s is not routed", p)
		}
	}
	if len(public) != 4 {
		t.Errorf("expected exactly the four account routes to be public, got %v", public)
	}
	for _, p := range []string{"/api/v1/live/ws", "/api/v1/patients/:id/orders/:orderId", "/api/v1/reports/prep-list"} {
		if !registered[p] {
			t.Errorf("expected route %s", p)
		}
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	_, _, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/diets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("unexpected CORS headers %v", rec.Header())
	}
}

func TestBuildServices_BadTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := buildServices(cfg, nil, events.Noop{}, nil); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "001_reference.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_patients_menus_orders.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied    2024-01-01T00:00:00Z") {
		t.Errorf("expected the applied row, got:\n%s", out)
	}
	if !strings.Contains(out, "002_patients_menus_orders.sql") || !strings.Contains(out, "pending") {
		t.Errorf("expected the pending row, got:\n%s", out)
	}
}
