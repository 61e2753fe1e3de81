package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimit_BurstThenRefuse(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})
	store.now = func() time.Time { return now }

	e := echo.New()
	handler := rateLimit(store)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	call := func() (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		return rec, handler(e.NewContext(req, rec))
	}

	for i := 0; i < 2; i++ {
		rec, err := call()
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("expected limit header 2, got %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec, err := call()
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Errorf("expected Retry-After 2, got %q", rec.Header().Get("Retry-After"))
	}

	// One second later a token has refilled.
	now = now.Add(time.Second)
	if _, err := call(); err != nil {
		t.Fatalf("expected refill to allow a request, got %v", err)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	e := echo.New()
	handler := rateLimit(store)(func(c echo.Context) error { return nil })

	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip
		if err := handler(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Errorf("%s: first request must pass, got %v", ip, err)
		}
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.BurstSize != 200 {
		t.Errorf("expected burst 200, got %d", cfg.BurstSize)
	}
	if perHour := cfg.RequestsPerSecond * 3600; perHour < 199.9 || perHour > 200.1 {
		t.Errorf("expected 200 requests per hour, got %f", perHour)
	}
}
