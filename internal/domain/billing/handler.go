package billing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/domain/consultation"
	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/httperr"
	"github.com/skinclinic/skinclinic/internal/platform/mpesa"
	"github.com/skinclinic/skinclinic/internal/platform/validate"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	p := api.Group("/payments")
	p.GET("/token", h.Token, auth.RequireRole(auth.RoleAdmin))
	p.POST("/stk", h.STKPush, auth.RequireRole(auth.RolePatient))

	patient := auth.RequireRole(auth.RolePatient)
	api.POST("/consultations/:id/pay", h.PayConsultation, patient)
	api.GET("/consultations/:id/payment", h.GetPayment, patient)
}

func (h *Handler) Token(c echo.Context) error {
	tok, err := h.svc.Token(c.Request().Context())
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) STKPush(c echo.Context) error {
	var req STKRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.STKPush(c.Request().Context(), req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) PayConsultation(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req PayRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.svc.PayConsultation(ctx, userID, id, req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusAccepted, res)
}

func (h *Handler) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Payment(ctx, userID, id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, p)
}

func errorResponse(err error) error {
	var apiErr *mpesa.APIError
	switch {
	case errors.Is(err, mpesa.ErrInvalidPhone):
		return validate.HTTPError(validate.FieldErrors{"phone": "Enter a valid Kenyan mobile number."})
	case errors.Is(err, mpesa.ErrInvalidAmount):
		return validate.HTTPError(validate.FieldErrors{"amount": "Amount must be a positive whole number."})
	case errors.Is(err, mpesa.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "payment gateway is not configured")
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, consultation.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrNotPatient):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotPayable), errors.Is(err, ErrPaymentInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return httperr.Internal(err)
	}
}
