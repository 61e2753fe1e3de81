package catalog

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
	// Reads are open to every signed-in role.
	api.GET("/diets", h.ListDiets)
	api.GET("/diets/:id", h.GetDiet)
	api.GET("/production-areas", h.ListProductionAreas)
	api.GET("/production-areas/:id", h.GetProductionArea)
	api.GET("/menu-items", h.ListMenuItems)
	api.GET("/menu-items/:id", h.GetMenuItem)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/diets", h.CreateDiet)
	adminGroup.PATCH("/diets/:id", h.UpdateDiet)
	adminGroup.DELETE("/diets/:id", h.DeleteDiet)
	adminGroup.POST("/production-areas", h.CreateProductionArea)
	adminGroup.PATCH("/production-areas/:id", h.UpdateProductionArea)
	adminGroup.DELETE("/production-areas/:id", h.DeleteProductionArea)
	adminGroup.POST("/menu-items", h.CreateMenuItem)
	adminGroup.DELETE("/menu-items/:id", h.DeleteMenuItem)

	api.PATCH("/menu-items/:id", h.UpdateMenuItem, auth.RequireRole(auth.RoleDietitian))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID: "+c.Param("id"))
	}
	return id, nil
}

// -- Diet Handlers --

func (h *Handler) CreateDiet(c echo.Context) error {
	var d Diet
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDiet(c.Request().Context(), &d); err != nil {
		return err
	}
	return response.Created(c, d)
}

func (h *Handler) GetDiet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDiet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, d)
}

func (h *Handler) ListDiets(c echo.Context) error {
	p := pagination.FromContext(c)
	diets, total, err := h.svc.ListDiets(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(diets, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateDiet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDiet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if err := h.svc.UpdateDiet(c.Request().Context(), d); err != nil {
		return err
	}
	return response.OK(c, d)
}

func (h *Handler) DeleteDiet(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDiet(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Production Area Handlers --

func (h *Handler) CreateProductionArea(c echo.Context) error {
	var a ProductionArea
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProductionArea(c.Request().Context(), &a); err != nil {
		return err
	}
	return response.Created(c, a)
}

func (h *Handler) GetProductionArea(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetProductionArea(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, a)
}

func (h *Handler) ListProductionAreas(c echo.Context) error {
	p := pagination.FromContext(c)
	areas, total, err := h.svc.ListProductionAreas(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(areas, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateProductionArea(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetProductionArea(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateProductionArea(c.Request().Context(), a); err != nil {
		return err
	}
	return response.OK(c, a)
}

func (h *Handler) DeleteProductionArea(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProductionArea(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Menu Item Handlers --

func (h *Handler) CreateMenuItem(c echo.Context) error {
	var m MenuItem
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateMenuItem(c.Request().Context(), &m); err != nil {
		return err
	}
	return response.Created(c, m)
}

func (h *Handler) GetMenuItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	exp, err := expand.FromContext(c, ItemExpansions...)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMenuItem(c.Request().Context(), id, exp)
	if err != nil {
		return err
	}
	return response.OK(c, m)
}

// ListMenuItems supports ?diet=<name>, ?category= and ?production_area_id=.
func (h *Handler) ListMenuItems(c echo.Context) error {
	exp, err := expand.FromContext(c, ItemExpansions...)
	if err != nil {
		return err
	}
	f := ItemFilter{
		DietName: c.QueryParam("diet"),
		Category: c.QueryParam("category"),
	}
	if raw := c.QueryParam("production_area_id"); raw != "" {
		if f.ProductionAreaID, err = uuid.Parse(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid production_area_id: "+raw)
		}
	}
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListMenuItems(c.Request().Context(), f, p.Limit, p.Offset, exp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateMenuItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMenuItem(c.Request().Context(), id, nil)
	if err != nil {
		return err
	}
	if err := c.Bind(m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateMenuItem(c.Request().Context(), m); err != nil {
		return err
	}
	return response.OK(c, m)
}

func (h *Handler) DeleteMenuItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMenuItem(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
