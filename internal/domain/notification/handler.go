package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vanuse/clinic/internal/platform/auth"
	"github.com/vanuse/clinic/pkg/pagination"
)

// Handler provides HTTP handlers for the notification domain.
type Handler struct {
	svc *Service
}

// NewHandler creates a new notification domain handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers notification routes on the authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.Inbox)
	api.POST("/notifications/:id/read", h.MarkRead)
}

func (h *Handler) Inbox(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.Inbox(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	err = h.svc.MarkRead(ctx, id, auth.UserIDFromContext(ctx))
	switch {
	case errors.Is(err, ErrNotRecipient):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "marked read"})
}
