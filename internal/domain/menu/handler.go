package menu

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/auth"
	"github.com/nutritrack/dietary/pkg/expand"
	"github.com/nutritrack/dietary/pkg/pagination"
	"github.com/nutritrack/dietary/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/menus", h.ListMenus)
	api.GET("/menus/:id", h.GetMenu)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/menus", h.CreateMenu)
	writeGroup.PATCH("/menus/:id", h.UpdateMenu)
	writeGroup.DELETE("/menus/:id", h.DeleteMenu)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID: "+c.Param("id"))
	}
	return id, nil
}

func (h *Handler) CreateMenu(c echo.Context) error {
	var m Menu
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMenu(c.Request().Context(), &m); err != nil {
		return err
	}
	return response.Created(c, m)
}

func (h *Handler) GetMenu(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	exp, err := expand.FromContext(c, Expansions...)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMenu(c.Request().Context(), id, exp)
	if err != nil {
		return err
	}
	return response.OK(c, m)
}

// ListMenus filters on ?day=, ?meal_period=, ?option= and ?diet_id=.
func (h *Handler) ListMenus(c echo.Context) error {
	exp, err := expand.FromContext(c, Expansions...)
	if err != nil {
		return err
	}
	f := Filter{
		Day:        c.QueryParam("day"),
		MealPeriod: c.QueryParam("meal_period"),
		Option:     c.QueryParam("option"),
	}
	if raw := c.QueryParam("diet_id"); raw != "" {
		if f.DietID, err = uuid.Parse(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid diet_id: "+raw)
		}
	}
	p := pagination.FromContext(c)
	menus, total, err := h.svc.ListMenus(c.Request().Context(), f, p.Limit, p.Offset, exp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(menus, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateMenu(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMenu(c.Request().Context(), id, nil)
	if err != nil {
		return err
	}
	if err := c.Bind(m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMenu(c.Request().Context(), m); err != nil {
		return err
	}
	return response.OK(c, m)
}

func (h *Handler) DeleteMenu(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMenu(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
