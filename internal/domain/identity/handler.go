package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/httperr"
	"github.com/skinclinic/skinclinic/internal/platform/validate"
	"github.com/skinclinic/skinclinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/specialists", h.ListSpecialists)
	api.GET("/specialists/:id", h.GetSpecialist)

	// Any authenticated user
	api.POST("/auth/logout", h.Logout)
	api.GET("/me", h.Me)

	patients := api.Group("/patients", auth.RequireRole(auth.RolePatient))
	patients.PUT("/me", h.UpdatePatient)

	specialists := api.Group("/specialists/me", auth.RequireRole(auth.RoleSpecialist))
	specialists.POST("/availability", h.ToggleAvailability)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.Login(c.Request().Context(), &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context()); err != nil {
		return httperr.Internal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	profile, err := h.svc.Profile(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var req UpdatePatientRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.UpdatePatientProfile(c.Request().Context(), userID, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListSpecialists(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := SpecialistFilter{Specialization: c.QueryParam("specialization")}
	if v := c.QueryParam("available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid available")
		}
		f.AvailableOnly = avail
	}
	items, total, err := h.svc.ListSpecialists(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Internal(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSpecialist(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sp, err := h.svc.GetSpecialist(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "specialist not found")
		}
		return httperr.Internal(err)
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) ToggleAvailability(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	available, err := h.svc.ToggleAvailability(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "success",
		"message":      "Availability status updated successfully",
		"is_available": available,
	})
}

func errorResponse(err error) error {
	var fe validate.FieldErrors
	switch {
	case errors.As(err, &fe):
		return validate.HTTPError(fe)
	case errors.Is(err, ErrEmailTaken):
		return validate.HTTPError(validate.FieldErrors{"email": msgEmailTaken})
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, ErrAccountDisabled):
		return echo.NewHTTPError(http.StatusForbidden, msgAccountDisabled)
	case errors.Is(err, ErrNotPatient), errors.Is(err, ErrNotSpecialist):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		return httperr.Internal(err)
	}
}
