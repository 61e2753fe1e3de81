package reporting

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nutritrack/dietary/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the reports. Any signed-in role may read them.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/census", h.Census)
	g.GET("/patient-updates", h.PatientUpdates)
	g.GET("/risk-log", h.RiskLog)
	g.GET("/prep-list", h.PrepList)
}

func (h *Handler) Census(c echo.Context) error {
	census, err := h.svc.Census(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, census)
}

// PatientUpdates reads the window from ?range= in minutes.
func (h *Handler) PatientUpdates(c echo.Context) error {
	window := DefaultUpdateRange
	if raw := c.QueryParam("range"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid range: "+raw)
		}
		window = time.Duration(minutes) * time.Minute
	}
	updates, err := h.svc.PatientUpdates(c.Request().Context(), window)
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"updates": updates})
}

func (h *Handler) RiskLog(c echo.Context) error {
	log, err := h.svc.RiskLog(c.Request().Context())
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"risk_log": log})
}

func (h *Handler) PrepList(c echo.Context) error {
	list, err := h.svc.PrepList(c.Request().Context(),
		c.QueryParam("day"), c.QueryParam("meal_period"), c.QueryParam("production_area"))
	if err != nil {
		return err
	}
	return response.OK(c, map[string]interface{}{"prep_list": list})
}
