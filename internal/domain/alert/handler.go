package alert

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/alerts", auth.RequireRole(auth.RolePatient))
	g.POST("/sensor-disconnected", h.SensorDisconnected)
	g.POST("/medication-reminder", h.MedicationReminder)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

type sensorDisconnectedRequest struct {
	DeviceName string `json:"device_name,omitempty"`
}

// SensorDisconnected is self-targeted: the patient's device plumbing reports
// its own sensor loss.
func (h *Handler) SensorDisconnected(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req sensorDisconnectedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.SendSensorDisconnection(c.Request().Context(), userID, req.DeviceName); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

type medicationReminderRequest struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
}

func (h *Handler) MedicationReminder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req medicationReminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Medication == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "medication is required")
	}

	if err := h.svc.SendMedicationReminder(c.Request().Context(), userID, req.Medication, req.Dosage); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
