package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
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
	api.GET("/specialists/:id/schedule", h.GetPublicSchedule)

	// Specialist self-service
	me := api.Group("/specialists/me", auth.RequireRole(auth.RoleSpecialist))
	me.GET("/schedule", h.GetMySchedule)
	me.PUT("/schedule", h.SetWeek)
	me.PUT("/schedule/:day", h.SetDay)
	me.DELETE("/schedule/:day", h.ClearDay)
	me.GET("/time-off", h.ListTimeOff)
	me.POST("/time-off", h.AddTimeOff)
	me.DELETE("/time-off/:id", h.RemoveTimeOff)

	// Patient appointments
	appt := api.Group("/appointments", auth.RequireRole(auth.RolePatient))
	appt.POST("", h.CreateAppointment)
	appt.GET("", h.ListAppointments)
	appt.GET("/:id", h.GetAppointment)
	appt.PUT("/:id", h.UpdateAppointment)
	appt.DELETE("/:id", h.CancelAppointment)
}

// -- Schedule Handlers --

func (h *Handler) GetPublicSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sched, err := h.svc.PublicSchedule(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) GetMySchedule(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	days, err := h.svc.MySchedule(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, days)
}

func (h *Handler) SetWeek(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var reqs []ScheduleRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	days, err := h.svc.SetWeek(c.Request().Context(), userID, reqs)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, days)
}

func (h *Handler) SetDay(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	day, err := ParseDay(c.Param("day"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var req ScheduleRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, err := h.svc.SetDay(c.Request().Context(), userID, day, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ClearDay(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	day, err := ParseDay(c.Param("day"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ClearDay(c.Request().Context(), userID, day); err != nil {
		return errorResponse(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Time Off Handlers --

func (h *Handler) ListTimeOff(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	items, err := h.svc.MyTimeOff(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddTimeOff(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var req TimeOffRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	t, err := h.svc.AddTimeOff(c.Request().Context(), userID, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) RemoveTimeOff(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveTimeOff(c.Request().Context(), userID, id); err != nil {
		return errorResponse(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var req AppointmentRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), userID, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), userID, id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req AppointmentRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), userID, id, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.CancelAppointment(c.Request().Context(), userID, id); err != nil {
		return errorResponse(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func errorResponse(err error) error {
	var fe validate.FieldErrors
	switch {
	case errors.As(err, &fe):
		return validate.HTTPError(fe)
	case errors.Is(err, ErrInvalidSchedule):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, identity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, identity.ErrNotPatient), errors.Is(err, identity.ErrNotSpecialist):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrPastAppointment):
		return echo.NewHTTPError(http.StatusBadRequest, pastMessage(err))
	case errors.Is(err, ErrInvalidService):
		return validate.HTTPError(validate.FieldErrors{"service": "Select a valid choice."})
	case errors.Is(err, ErrInvalidTimeRange):
		return validate.HTTPError(validate.FieldErrors{"end_date": "End date must not be before start date."})
	default:
		return httperr.Internal(err)
	}
}
