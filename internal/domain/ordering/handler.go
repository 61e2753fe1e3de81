package ordering

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/internal/domain/catalog"
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

// RegisterRoutes mounts the order routes. Every signed-in role may order.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/orders", h.ListOrders)
	api.POST("/patients/:id/orders", h.CreateOrder)
	api.GET("/patients/:id/orders", h.ListPatientOrders)
	api.GET("/patients/:id/orders/:orderId", h.GetOrder)
	api.PATCH("/patients/:id/orders/:orderId", h.UpdateOrder)
	api.DELETE("/patients/:id/orders/:orderId", h.DeleteOrder)
	api.GET("/patients/:id/menu-items", h.AvailableItems)
}

func parseUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid ID: "+c.Param(name))
	}
	return id, nil
}

type orderBody struct {
	Option *string `json:"option"`
	Selection
	Comments *string `json:"comments"`
}

// CreateOrder takes the slot from ?day=, ?meal_period= and ?option=. An
// empty body asks for the preset menu.
func (h *Handler) CreateOrder(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	var body orderBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req := CreateRequest{
		PatientID:  patientID,
		Day:        c.QueryParam("day"),
		MealPeriod: c.QueryParam("meal_period"),
		Option:     c.QueryParam("option"),
		Selection:  body.Selection,
		Comments:   body.Comments,
	}
	if req.Option == "" && body.Option != nil {
		req.Option = *body.Option
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Created(c, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "orderId")
	if err != nil {
		return err
	}
	exp, err := expand.FromContext(c, Expansions...)
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrder(c.Request().Context(), patientID, id, exp)
	if err != nil {
		return err
	}
	return response.OK(c, o)
}

func (h *Handler) UpdateOrder(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "orderId")
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrder(c.Request().Context(), patientID, id, nil)
	if err != nil {
		return err
	}
	if err := c.Bind(o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateOrder(c.Request().Context(), o); err != nil {
		return err
	}
	return response.OK(c, o)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	id, err := parseUUID(c, "orderId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteOrder(c.Request().Context(), patientID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOrders filters on ?day= and ?meal_period=.
func (h *Handler) ListOrders(c echo.Context) error {
	exp, err := expand.FromContext(c, Expansions...)
	if err != nil {
		return err
	}
	f := Filter{Day: c.QueryParam("day"), MealPeriod: c.QueryParam("meal_period")}
	p := pagination.FromContext(c)
	orders, total, err := h.svc.ListOrders(c.Request().Context(), f, p.Limit, p.Offset, exp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, p.Limit, p.Offset))
}

func (h *Handler) ListPatientOrders(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	exp, err := expand.FromContext(c, Expansions...)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	orders, total, err := h.svc.ListPatientOrders(c.Request().Context(), patientID, p.Limit, p.Offset, exp)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, p.Limit, p.Offset))
}

// AvailableItems lists what the patient's diet allows, optionally narrowed
// by ?category=.
func (h *Handler) AvailableItems(c echo.Context) error {
	patientID, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	f := catalog.ItemFilter{Category: c.QueryParam("category")}
	items, total, err := h.svc.AvailableItems(c.Request().Context(), patientID, f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
