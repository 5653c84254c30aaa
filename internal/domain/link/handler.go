package link

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/directory"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/links", auth.RequireRole(auth.RolePatient, auth.RoleCaregiver))
	g.GET("", h.List)
	g.POST("/:userID", h.Create)
	g.DELETE("/:userID", h.Delete)
}

func caller(c echo.Context) (uuid.UUID, string, error) {
	ctx := c.Request().Context()
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return id, auth.RoleFromContext(ctx), nil
}

func (h *Handler) Create(c echo.Context) error {
	callerID, role, err := caller(c)
	if err != nil {
		return err
	}
	otherID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	l, err := h.svc.CreateOrReactivateLink(c.Request().Context(), callerID, role, otherID)
	switch {
	case errors.Is(err, ErrAlreadyLinked):
		return echo.NewHTTPError(http.StatusConflict, "users are already linked")
	case errors.Is(err, ErrInvalidRoleCombination):
		return echo.NewHTTPError(http.StatusBadRequest, "link requires one patient and one caregiver")
	case errors.Is(err, directory.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) Delete(c echo.Context) error {
	callerID, role, err := caller(c)
	if err != nil {
		return err
	}
	otherID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	err = h.svc.DeactivateLink(c.Request().Context(), callerID, role, otherID)
	switch {
	case errors.Is(err, ErrLinkNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "link not found")
	case errors.Is(err, ErrInvalidRoleCombination):
		return echo.NewHTTPError(http.StatusBadRequest, "link requires one patient and one caregiver")
	case errors.Is(err, directory.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	callerID, role, err := caller(c)
	if err != nil {
		return err
	}

	users, err := h.svc.ListLinkedUsers(c.Request().Context(), callerID, role)
	if err != nil {
		if errors.Is(err, ErrInvalidRoleCombination) {
			return echo.NewHTTPError(http.StatusForbidden, "only patients and caregivers have links")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"links": users})
}
