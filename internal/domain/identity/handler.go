package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/pkg/pagination"
	"github.com/nutritrack/dietary/pkg/response"
)

// Revoker invalidates a token before it expires.
type Revoker interface {
	Revoke(jti string, expiresAt time.Time)
}

type Handler struct {
	svc     *Service
	revoker Revoker
	// secureCookies marks the session cookie Secure.
	secureCookies bool
}

func NewHandler(svc *Service, revoker Revoker, secureCookies bool) *Handler {
	return &Handler{svc: svc, revoker: revoker, secureCookies: secureCookies}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/users/register", h.Register)
	api.POST("/users/login", h.Login)
	api.POST("/users/forgot-password", h.ForgotPassword)
	api.PATCH("/users/reset-password/:token", h.ResetPassword)

	api.POST("/users/logout", h.Logout)
	api.PATCH("/users/me/password", h.UpdatePassword)
	api.PATCH("/users/me", h.UpdateMe)
	api.DELETE("/users/me", h.DeleteMe)
	api.GET("/users/:id", h.GetUser)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id", h.UpdateUser)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID: "+c.Param("id"))
	}
	return id, nil
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthenticated, "You are not logged in. Please log in to get access.")
	}
	return id, nil
}

func (h *Handler) setSessionCookie(c echo.Context, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) sendSession(c echo.Context, code int, sess *Session) error {
	h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	return response.WithToken(c, code, sess.Token, map[string]interface{}{"user": sess.User})
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusCreated, sess)
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, sess)
}

// Logout revokes the presented token and overwrites the cookie.
func (h *Handler) Logout(c echo.Context) error {
	if jti := auth.TokenIDFromContext(c.Request().Context()); jti != "" && h.revoker != nil {
		h.revoker.Revoke(jti, time.Now().Add(h.svc.tokens.TTL()))
	}
	h.setSessionCookie(c, "loggedout", time.Now().Add(10*time.Second))
	return response.Message(c, "Logged out")
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var in struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ForgotPassword(c.Request().Context(), in.Email); err != nil {
		return err
	}
	return response.Message(c, "Token sent to email")
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var in PasswordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.ResetPassword(c.Request().Context(), c.Param("token"), in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, sess)
}

func (h *Handler) UpdatePassword(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	var in ChangePasswordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.UpdatePassword(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return h.sendSession(c, http.StatusOK, sess)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"user": u})
}

func (h *Handler) DeleteMe(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"user": u})
}

func (h *Handler) ListUsers(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in AdminInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.AdminUpdate(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"user": u})
}
