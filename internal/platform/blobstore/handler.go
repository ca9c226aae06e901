package blobstore

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handler streams stored attachments back to clients.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes adds GET /files/* to g. Callers apply auth on g.
func (h *Handler) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.GET("/files/*", h.Download, mw...)
}

func (h *Handler) Download(c echo.Context) error {
	key := c.Param("*")
	obj, body, err := h.store.Get(c.Request().Context(), key)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	case errors.Is(err, ErrInvalidKey):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid file key")
	case errors.Is(err, ErrUnsupported):
		return echo.NewHTTPError(http.StatusNotFound, "files are stored inline on the record")
	case err != nil:
		return err
	}
	defer body.Close()

	ct := obj.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	resp := c.Response()
	if obj.Size > 0 {
		resp.Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	resp.Header().Set("X-Content-Type-Options", "nosniff")
	resp.Header().Set(echo.HeaderContentType, ct)
	resp.WriteHeader(http.StatusOK)
	_, err = io.Copy(resp, body)
	return err
}
