package notification

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smilecare/dental/internal/platform/auth"
	"github.com/smilecare/dental/internal/platform/validation"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications", auth.RequireCapability(auth.CapNotificationsUse))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/read-all", h.MarkAllRead)
	g.POST("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)
	g.DELETE("", h.ClearAll)
}

// CreateRequest is the body of POST /notifications.
type CreateRequest struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      Type   `json:"type"`
	ActionURL string `json:"actionUrl"`
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]any{
		"notifications": h.store.List(ctx),
		"unreadCount":   h.store.UnreadCount(ctx),
	})
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	errs := validation.FieldErrors{}
	if validation.Blank(req.Title) {
		errs.Add("title", "Title is required")
	}
	if req.Type == "" {
		req.Type = TypeInfo
	}
	if !req.Type.Valid() {
		errs.Add("type", "Type must be one of info, success, warning, error")
	}
	if err := errs.Err(); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": errs})
	}

	n, err := h.store.Create(c.Request().Context(), strings.TrimSpace(req.Title), req.Message, req.Type, req.ActionURL)
	if errors.Is(err, ErrInvalidType) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.store.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	if err := h.store.MarkAllRead(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearAll(c echo.Context) error {
	if err := h.store.ClearAll(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
