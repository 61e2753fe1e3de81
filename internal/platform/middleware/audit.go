package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/auth"
)

// AuditEntry records who changed what. Reads are not audited.
type AuditEntry struct {
	UserID    string
	UserRoles []string
	Entity    string
	PatientID string
	Action    string // create, update, delete
	IPAddress string
	Path      string
	Method    string
	Timestamp time.Time
	RequestID string
	// StatusCode is the status written by the handler; 0 when the handler
	// returned an error that is rendered later.
	StatusCode int
	Failed     bool
}

// Audit emits one structured log line per mutating /api/v1 request.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)
			entry := buildAuditEntry(c, err != nil)

			evt := logger.Info()
			if entry.Failed {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("entity", entry.Entity).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Bool("failed", entry.Failed).
				Msg("data_change")

			return err
		}
	}
}

func buildAuditEntry(c echo.Context, failed bool) AuditEntry {
	req := c.Request()
	ctx := req.Context()
	entry := AuditEntry{
		Timestamp: time.Now().UTC(),
		Path:      req.URL.Path,
		Method:    req.Method,
		IPAddress: c.RealIP(),
		UserID:    auth.UserIDFromContext(ctx),
		UserRoles: auth.RolesFromContext(ctx),
		Action:    httpMethodToAction(req.Method),
		Entity:    extractEntity(req.URL.Path),
		PatientID: extractPatientID(req.URL.Path),
		Failed:    failed,
	}
	if c.Response().Committed {
		entry.StatusCode = c.Response().Status
	}
	if rid, ok := c.Get("request_id").(string); ok {
		entry.RequestID = rid
	}
	return entry
}

func isAuditable(method, path string) bool {
	if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
		return false
	}
	return strings.HasPrefix(path, "/api/v1/")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "other"
	}
}

// extractEntity returns the first segment after /api/v1/, or the nested
// collection for patient sub-resources (/patients/<id>/orders -> orders).
func extractEntity(path string) string {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	if len(segments) >= 3 && segments[0] == "patients" {
		return segments[2]
	}
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

func extractPatientID(path string) string {
	const prefix = "/api/v1/patients/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	id := strings.SplitN(strings.TrimPrefix(path, prefix), "/", 2)[0]
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}
