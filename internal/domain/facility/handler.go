package facility

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/platform/auth"
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
	api.GET("/units", h.ListUnits)
	api.GET("/units/:id", h.GetUnit)
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id", h.GetRoom)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/units", h.CreateUnit)
	writeGroup.PATCH("/units/:id", h.UpdateUnit)
	writeGroup.DELETE("/units/:id", h.DeleteUnit)
	writeGroup.POST("/rooms", h.CreateRoom)
	writeGroup.PATCH("/rooms/:id", h.UpdateRoom)
	writeGroup.DELETE("/rooms/:id", h.DeleteRoom)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID: "+c.Param("id"))
	}
	return id, nil
}

// -- Unit Handlers --

func (h *Handler) CreateUnit(c echo.Context) error {
	var u Unit
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateUnit(c.Request().Context(), &u); err != nil {
		return err
	}
	return response.Created(c, u)
}

func (h *Handler) GetUnit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUnit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) ListUnits(c echo.Context) error {
	p := pagination.FromContext(c)
	units, total, err := h.svc.ListUnits(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(units, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateUnit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUnit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.ID = id
	if err := h.svc.UpdateUnit(c.Request().Context(), u); err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) DeleteUnit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUnit(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Room Handlers --

func (h *Handler) CreateRoom(c echo.Context) error {
	var r Room
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRoom(c.Request().Context(), &r); err != nil {
		return err
	}
	return response.Created(c, r)
}

func (h *Handler) GetRoom(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, r)
}

// ListRooms accepts ?unit_id= to restrict the listing to one unit.
func (h *Handler) ListRooms(c echo.Context) error {
	var unitID uuid.UUID
	if raw := c.QueryParam("unit_id"); raw != "" {
		var err error
		if unitID, err = uuid.Parse(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid unit_id: "+raw)
		}
	}
	p := pagination.FromContext(c)
	rooms, total, err := h.svc.ListRooms(c.Request().Context(), unitID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rooms, total, p.Limit, p.Offset))
}

func (h *Handler) UpdateRoom(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateRoom(c.Request().Context(), r); err != nil {
		return err
	}
	return response.OK(c, r)
}

func (h *Handler) DeleteRoom(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRoom(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
