package vitals

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/domain/link"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/vitals")

	self := g.Group("", auth.RequireRole(auth.RolePatient))
	self.POST("/bp", h.SubmitReading)
	self.GET("/bp/latest", h.Latest)
	self.GET("/bp/history", h.History)
	self.GET("/bp/stats", h.Stats)

	care := g.Group("/patients", auth.RequireRole(auth.RoleCaregiver))
	care.GET("/:patientID/latest", h.LatestForPatient)
	care.GET("/:patientID/history", h.HistoryForPatient)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, nil
}

type submitRequest struct {
	Systolic   int        `json:"systolic"`
	Diastolic  int        `json:"diastolic"`
	HeartRate  *int       `json:"heart_rate,omitempty"`
	Source     string     `json:"source,omitempty"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
}

func (h *Handler) SubmitReading(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sample, err := h.svc.SubmitReading(c.Request().Context(), userID,
		req.Systolic, req.Diastolic, req.HeartRate, req.Source, req.MeasuredAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sample)
}

func (h *Handler) Latest(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	sample, err := h.svc.Latest(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no readings yet")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sample)
}

func timeRange(c echo.Context) (from, to *time.Time, err error) {
	if v := c.QueryParam("from"); v != "" {
		t, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		to = &t
	}
	return from, to, nil
}

func (h *Handler) History(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	from, to, err := timeRange(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.History(c.Request().Context(), userID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*VitalSample{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	days, _ := strconv.Atoi(c.QueryParam("days"))

	st, err := h.svc.Stats(c.Request().Context(), userID, days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) LatestForPatient(c echo.Context) error {
	caregiverID, err := callerID(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	sample, err := h.svc.LatestForPatient(c.Request().Context(), caregiverID, patientID)
	switch {
	case errors.Is(err, link.ErrNotLinked):
		return echo.NewHTTPError(http.StatusForbidden, "not linked to this patient")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no readings yet")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sample)
}

func (h *Handler) HistoryForPatient(c echo.Context) error {
	caregiverID, err := callerID(c)
	if err != nil {
		return err
	}
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	from, to, err := timeRange(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	items, total, err := h.svc.HistoryForPatient(c.Request().Context(), caregiverID, patientID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, link.ErrNotLinked) {
			return echo.NewHTTPError(http.StatusForbidden, "not linked to this patient")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*VitalSample{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
