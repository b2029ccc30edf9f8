package photo

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/internal/platform/blobstore"
	"github.com/skinclinic/skinclinic/internal/platform/httperr"
	"github.com/skinclinic/skinclinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/photos")
	g.POST("", h.Upload, auth.RequireRole(auth.RolePatient))
	g.GET("", h.List, auth.RequireRole(auth.RolePatient))
	g.GET("/:id/content", h.Content, auth.RequireRole(auth.RolePatient, auth.RoleSpecialist))
}

func (h *Handler) Upload(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{"image": "This field is required."})
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file").SetInternal(err)
	}
	defer src.Close()

	in := Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Size:        file.Size,
		Description: c.FormValue("description"),
	}
	p, err := h.svc.Upload(c.Request().Context(), userID, in, src)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUserID(c.Request().Context())
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Content(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, p, err := h.svc.Open(ctx, userID, auth.RoleFromContext(ctx), id)
	if err != nil {
		return errorResponse(err)
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(p.Size, 10))
	return c.Stream(http.StatusOK, p.ContentType, rc)
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "photo not found")
	case errors.Is(err, identity.ErrNotPatient):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, blobstore.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	default:
		return httperr.Internal(err)
	}
}
