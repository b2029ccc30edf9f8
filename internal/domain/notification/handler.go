package notification

import (
	"errors"
	"net/http"

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
	g := api.Group("/notifications")
	g.GET("", h.List)
	g.GET("/new", h.Poll)
	g.POST("/read", h.MarkRead)
}

func (h *Handler) Poll(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	items, err := h.svc.Poll(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load notifications").SetInternal(err)
	}
	return c.JSON(http.StatusOK, PollResponse{Status: "success", NewNotifications: items})
}

func (h *Handler) MarkRead(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	var req MarkReadRequest
	if err := validate.BindAndValidate(c, &req); err != nil {
		return err
	}
	id := uuid.MustParse(req.NotificationID)
	if err := h.svc.MarkRead(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		return httperr.Internal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Internal(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
