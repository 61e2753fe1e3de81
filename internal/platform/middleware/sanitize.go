package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// maxHeaderValueSize is the maximum allowed size for any single header value.
const maxHeaderValueSize = 8192

var (
	// SQL injection patterns (warning only).
	sqlPatterns = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	// Script injection in query strings (block).
	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)

	// Markup in JSON bodies (block). Narrower than scriptPatterns since free
	// text such as order comments legitimately contains "word=".
	bodyMarkupPatterns = regexp.MustCompile(`(?i)(<\s*script|javascript\s*:|<[^>]+\son\w+\s*=|<\s*iframe)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script markup in the query string or JSON body.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return apperr.Validationf("Path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return apperr.Validationf("Null byte injection detected")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return apperr.Validationf("Header value exceeds maximum size: %s", name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return apperr.Validationf("Header injection detected: %s", name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(v) || containsNullByte(key) {
						return apperr.Validationf("Null byte injection detected in query parameter")
					}
					if sqlPatterns.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", path).
							Str("remote_ip", c.RealIP()).
							Msg("potential SQL injection pattern detected in query parameter")
					}
					if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
						return apperr.Validationf("Script injection detected in query parameter")
					}
				}
			}

			if err := checkJSONBody(req); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// checkJSONBody scans a JSON body for markup and restores it for binding.
// BodyLimit runs first, so the read is bounded.
func checkJSONBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	if containsNullByte(string(body)) || bytes.Contains(body, []byte(`\u0000`)) {
		return apperr.Validationf("Null byte injection detected in request body")
	}
	if bodyMarkupPatterns.Match(body) {
		return apperr.Validationf("Script injection detected in request body")
	}
	return nil
}

func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	if strings.ContainsRune(s, '\x00') {
		return true
	}
	return strings.Contains(strings.ToLower(s), "%00")
}

// SanitizeString strips null bytes and control characters (except \n, \r,
// \t) and trims surrounding whitespace. Services apply it to free-text fields.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\x00' {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
