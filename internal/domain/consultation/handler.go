package consultation

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
	g := api.Group("/consultations", auth.RequireRole(auth.RolePatient, auth.RoleSpecialist))
	g.POST("", h.Book, auth.RequireRole(auth.RolePatient))
	g.GET("", h.List)
	g.GET("/confirmation/:booking_id", h.Confirmation, auth.RequireRole(auth.RolePatient))
	g.GET("/:id", h.Details)
	g.POST("/:id/cancel", h.Cancel)
	g.GET("/:id/prescriptions", h.ListPrescriptions)

	specialist := auth.RequireRole(auth.RoleSpecialist)
	g.GET("/:id/notes", h.GetNote, specialist)
	g.PUT("/:id/notes", h.UpdateNote, specialist)
	g.POST("/:id/start", h.Start, specialist)
	g.POST("/:id/complete", h.Complete, specialist)
	g.POST("/:id/no-show", h.NoShow, specialist)
	g.POST("/:id/prescriptions", h.AddPrescription, specialist)

	api.GET("/specialists/me/dashboard", h.Dashboard, specialist)
}

func (h *Handler) Book(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var req BookRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	consultation, err := h.svc.Book(c.Request().Context(), userID, &req)
	if err != nil {
		return errorResponse(err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/v1/consultations/confirmation/"+consultation.BookingID.String())
	return c.JSON(http.StatusCreated, consultation)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, userID, auth.RoleFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Confirmation(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Consultation booking not found.")
	}
	consultation, err := h.svc.Confirmation(c.Request().Context(), userID, bookingID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Consultation booking not found.")
	}
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, consultation)
}

// target parses the consultation id and the caller's identity.
func target(c echo.Context) (userID, id uuid.UUID, err error) {
	userID, err = auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return userID, id, nil
}

func (h *Handler) Details(c echo.Context) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Details(c.Request().Context(), userID, id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetNote(c echo.Context) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	n, err := h.svc.GetNote(c.Request().Context(), userID, id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) UpdateNote(c echo.Context) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	n, err := h.svc.UpdateNote(c.Request().Context(), userID, id, req.Notes)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Notes updated successfully",
		"note":    n,
	})
}

func (h *Handler) transition(c echo.Context, next Status) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	consultation, err := h.svc.Transition(c.Request().Context(), userID, id, next)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, consultation)
}

func (h *Handler) Start(c echo.Context) error    { return h.transition(c, StatusInProgress) }
func (h *Handler) Complete(c echo.Context) error { return h.transition(c, StatusCompleted) }
func (h *Handler) Cancel(c echo.Context) error   { return h.transition(c, StatusCancelled) }
func (h *Handler) NoShow(c echo.Context) error   { return h.transition(c, StatusNoShow) }

func (h *Handler) AddPrescription(c echo.Context) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	var req PrescriptionRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.AddPrescription(c.Request().Context(), userID, id, &req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	userID, id, err := target(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPrescriptions(c.Request().Context(), userID, id)
	if err != nil {
		return errorResponse(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Dashboard(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	d, err := h.svc.Dashboard(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, d)
}

func errorResponse(err error) error {
	var booking *BookingError
	var fe validate.FieldErrors
	switch {
	case errors.As(err, &fe):
		return validate.HTTPError(fe)
	case errors.As(err, &booking) && errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, booking.Message)
	case errors.As(err, &booking):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, booking.Message)
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, identity.ErrNotPatient), errors.Is(err, identity.ErrNotSpecialist):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownSpecialist):
		return validate.HTTPError(validate.FieldErrors{"specialist_id": "Select a valid choice. That choice is not one of the available choices."})
	case errors.Is(err, ErrUnknownService):
		return validate.HTTPError(validate.FieldErrors{"service_id": "Select a valid choice. That choice is not one of the available choices."})
	case errors.Is(err, ErrInvalidPhoto):
		return validate.HTTPError(validate.FieldErrors{"photo_ids": "Select a valid choice. That choice is not one of the available choices."})
	default:
		return httperr.Internal(err)
	}
}
