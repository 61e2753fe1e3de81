package identity

import (
	"context"
	"encoding/json"
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

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) Revoke(jti string, _ time.Time) {
	r.revoked = append(r.revoked, jti)
}

func newTestRouter() (*fixture, *recordingRevoker, *echo.Echo) {
	f := newFixture()
	rev := &recordingRevoker{}
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop(), false)
	NewHandler(f.svc, rev, true).RegisterRoutes(e.Group("/api/v1"))
	return f, rev, e
}

func serve(e *echo.Echo, ctx context.Context, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func as(id uuid.UUID, role string) context.Context {
	return auth.WithIdentity(context.Background(), id.String(), role, "jti-"+id.String())
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	_, _, e := newTestRouter()

	rec := serve(e, context.Background(), http.MethodPost, "/api/v1/users/register",
		`{"username":"jdoe","email":"jdoe@example.com","password":"pass1234","password_confirm":"pass1234"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Data   struct {
			User map[string]interface{} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" || body.Data.User["username"] != "jdoe" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if _, leaked := body.Data.User["password_hash"]; leaked || strings.Contains(rec.Body.String(), "$2a$") {
		t.Error("password hash must not be rendered")
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value != body.Token || !cookie.HttpOnly || !cookie.Secure {
		t.Errorf("expected a secure httpOnly session cookie, got %+v", cookie)
	}

	rec = serve(e, context.Background(), http.MethodPost, "/api/v1/users/login", `{"email":"jdoe@example.com","password":"wrongpass"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}
	rec = serve(e, context.Background(), http.MethodPost, "/api/v1/users/login", `{"email":"jdoe@example.com","password":"pass1234"}`)
	if rec.Code != http.StatusOK || sessionCookie(rec) == nil {
		t.Errorf("login: expected 200 with cookie, got %d", rec.Code)
	}
}

func TestHandler_ForgotAndReset(t *testing.T) {
	f, _, e := newTestRouter()
	f.register(t, "jdoe", "jdoe@example.com")

	rec := serve(e, context.Background(), http.MethodPost, "/api/v1/users/forgot-password", `{"email":"nobody@example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown email: expected 404, got %d", rec.Code)
	}
	rec = serve(e, context.Background(), http.MethodPost, "/api/v1/users/forgot-password", `{"email":"jdoe@example.com"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Token sent to email") {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	token := f.mailer.sent["jdoe@example.com"]
	rec = serve(e, context.Background(), http.MethodPatch, "/api/v1/users/reset-password/"+token,
		`{"password":"newpass99","password_confirm":"newpass98"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatch: expected 400, got %d", rec.Code)
	}
	rec = serve(e, context.Background(), http.MethodPatch, "/api/v1/users/reset-password/"+token,
		`{"password":"newpass99","password_confirm":"newpass99"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token"`) {
		t.Errorf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, context.Background(), http.MethodPatch, "/api/v1/users/reset-password/not-a-token", `{"password":"x12345678","password_confirm":"x12345678"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), msgBadResetToken) {
		t.Errorf("bad token: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_Me(t *testing.T) {
	f, rev, e := newTestRouter()
	u := f.register(t, "jdoe", "jdoe@example.com").User
	ctx := as(u.ID, u.Role)

	rec := serve(e, ctx, http.MethodPatch, "/api/v1/users/me", `{"email":"new@example.com"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "new@example.com") {
		t.Errorf("update me: got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, ctx, http.MethodPatch, "/api/v1/users/me", `{"password":"pass1234"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("password via profile: expected 400, got %d", rec.Code)
	}

	rec = serve(e, ctx, http.MethodPatch, "/api/v1/users/me/password",
		`{"current_password":"pass1234","password":"newpass99","password_confirm":"newpass99"}`)
	if rec.Code != http.StatusOK || sessionCookie(rec) == nil {
		t.Errorf("update password: got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, ctx, http.MethodPost, "/api/v1/users/logout", "")
	if rec.Code != http.StatusOK {
		t.Errorf("logout: got %d", rec.Code)
	}
	if c := sessionCookie(rec); c == nil || c.Value != "loggedout" {
		t.Errorf("expected the cookie to be overwritten, got %+v", c)
	}
	if len(rev.revoked) != 1 || rev.revoked[0] != "jti-"+u.ID.String() {
		t.Errorf("expected the token to be revoked, got %v", rev.revoked)
	}

	rec = serve(e, ctx, http.MethodDelete, "/api/v1/users/me", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete me: expected 204, got %d", rec.Code)
	}
	rec = serve(e, as(uuid.New(), auth.RoleAdmin), http.MethodGet, "/api/v1/users/"+u.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("deactivated user: expected 404, got %d", rec.Code)
	}
}

func TestHandler_AdminRoutes(t *testing.T) {
	f, _, e := newTestRouter()
	u := f.register(t, "jdoe", "jdoe@example.com").User
	path := "/api/v1/users/" + u.ID.String()

	for _, role := range []string{auth.RoleNCA, auth.RoleNurse, auth.RoleDietitian} {
		if rec := serve(e, as(uuid.New(), role), http.MethodGet, "/api/v1/users", ""); rec.Code != http.StatusForbidden {
			t.Errorf("%s list: expected 403, got %d", role, rec.Code)
		}
		if rec := serve(e, as(uuid.New(), role), http.MethodPatch, path, `{"role":"admin"}`); rec.Code != http.StatusForbidden {
			t.Errorf("%s patch: expected 403, got %d", role, rec.Code)
		}
	}

	admin := as(uuid.New(), auth.RoleAdmin)
	rec := serve(e, admin, http.MethodGet, "/api/v1/users", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"results":1`) {
		t.Errorf("list: got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, admin, http.MethodPatch, path, `{"role":"dietitian"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"dietitian"`) {
		t.Errorf("patch: got %d: %s", rec.Code, rec.Body.String())
	}
	rec = serve(e, admin, http.MethodPatch, path, `{"password":"pass1234"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("admin password change: expected 400, got %d", rec.Code)
	}

	rec = serve(e, as(uuid.New(), auth.RoleNCA), http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get user: expected 200, got %d", rec.Code)
	}
	rec = serve(e, admin, http.MethodGet, "/api/v1/users/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestHandler_MeRequiresUser(t *testing.T) {
	_, _, e := newTestRouter()
	ctx := auth.WithIdentity(context.Background(), "dev-user", auth.RoleAdmin, "")
	rec := serve(e, ctx, http.MethodPatch, "/api/v1/users/me", `{"email":"x@example.com"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a real user, got %d", rec.Code)
	}
}
