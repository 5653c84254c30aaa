package call

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/domain/link"
	"github.com/carelink/carelink/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/calls", auth.RequireRole(auth.RolePatient, auth.RoleCaregiver))
	g.POST("", h.Initiate)
	g.GET("/:id", h.Get)
	g.PUT("/:id/accept", h.Accept)
	g.PUT("/:id/reject", h.Reject)
	g.PUT("/:id/end", h.End)
}

func caller(c echo.Context) (uuid.UUID, string, error) {
	ctx := c.Request().Context()
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, auth.RoleFromContext(ctx), nil
}

func sessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	return id, nil
}

func mapCallError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "call session not found")
	case errors.Is(err, ErrNotParticipant):
		return echo.NewHTTPError(http.StatusForbidden, "not a participant of this call")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, "call is not in a state that allows this")
	case errors.Is(err, ErrPatientBusy):
		return echo.NewHTTPError(http.StatusConflict, "patient is already in a call")
	case errors.Is(err, link.ErrNotLinked):
		return echo.NewHTTPError(http.StatusForbidden, "users are not linked")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type initiateRequest struct {
	CalleeID     uuid.UUID       `json:"callee_id"`
	Type         string          `json:"type"`
	OfferPayload json.RawMessage `json:"offer_payload,omitempty"`
}

func (h *Handler) Initiate(c echo.Context) error {
	callerID, role, err := caller(c)
	if err != nil {
		return err
	}
	var req initiateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.CalleeID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "callee_id is required")
	}

	session, err := h.svc.Initiate(c.Request().Context(), callerID, role, req.CalleeID, req.Type, req.OfferPayload)
	if err != nil {
		if errors.Is(err, link.ErrNotLinked) || errors.Is(err, ErrPatientBusy) {
			return mapCallError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) Get(c echo.Context) error {
	userID, _, err := caller(c)
	if err != nil {
		return err
	}
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	session, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return mapCallError(err)
	}
	return c.JSON(http.StatusOK, session)
}

type acceptRequest struct {
	AnswerPayload json.RawMessage `json:"answer_payload,omitempty"`
}

func (h *Handler) Accept(c echo.Context) error {
	userID, _, err := caller(c)
	if err != nil {
		return err
	}
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req acceptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.svc.Accept(c.Request().Context(), userID, id, req.AnswerPayload)
	if err != nil {
		return mapCallError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Reject(c echo.Context) error {
	userID, _, err := caller(c)
	if err != nil {
		return err
	}
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	session, err := h.svc.Reject(c.Request().Context(), userID, id)
	if err != nil {
		return mapCallError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) End(c echo.Context) error {
	userID, _, err := caller(c)
	if err != nil {
		return err
	}
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	session, err := h.svc.End(c.Request().Context(), userID, id)
	if err != nil {
		return mapCallError(err)
	}
	return c.JSON(http.StatusOK, session)
}
