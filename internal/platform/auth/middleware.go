package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	TokenIDKey   contextKey = "token_id"
)

// CookieName is the httpOnly cookie carrying the session token for browser
// clients.
const CookieName = "jwt"

// UserChecker confirms the token holder is still allowed in. It returns the
// holder's current role, so role changes apply without re-login.
type UserChecker interface {
	CheckTokenHolder(ctx context.Context, userID uuid.UUID, issuedAt time.Time) (role string, err error)
}

type RevocationChecker interface {
	IsRevoked(jti string) bool
}

type JWTConfig struct {
	Tokens  *TokenIssuer
	Users   UserChecker
	Revoked RevocationChecker
	Skipper echomw.Skipper
}

func tokenFromRequest(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" && cookie.Value != "loggedout" {
		return cookie.Value
	}
	return ""
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr := tokenFromRequest(c)
			if tokenStr == "" {
				return apperr.New(apperr.Unauthenticated, "You are not logged in. Please log in to get access.")
			}

			claims, err := cfg.Tokens.Parse(tokenStr)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					return apperr.Wrap(err, apperr.Unauthenticated, "Your token has expired. Please log in again.")
				}
				return apperr.Wrap(err, apperr.Unauthenticated, "Invalid token. Please log in again.")
			}
			if cfg.Revoked != nil && cfg.Revoked.IsRevoked(claims.ID) {
				return apperr.New(apperr.Unauthenticated, "This session has been logged out. Please log in again.")
			}

			userID, _ := uuid.Parse(claims.Subject)
			role := claims.Role
			if cfg.Users != nil {
				role, err = cfg.Users.CheckTokenHolder(c.Request().Context(), userID, claims.IssuedAt.Time)
				if err != nil {
					return err
				}
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, role, claims.ID)))
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as an admin
// "dev-user" and validates any token that is presented.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	strict := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		validated := strict(next)
		return func(c echo.Context) error {
			if tokenFromRequest(c) != "" {
				return validated(c)
			}
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), "dev-user", RoleAdmin, "")))
			return next(c)
		}
	}
}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, userID, role, jti string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRolesKey, []string{role})
	if jti != "" {
		ctx = context.WithValue(ctx, TokenIDKey, jti)
	}
	return ctx
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

func TokenIDFromContext(ctx context.Context) string {
	jti, _ := ctx.Value(TokenIDKey).(string)
	return jti
}
