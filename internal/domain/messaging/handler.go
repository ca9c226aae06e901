package messaging

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smilecare/dental/internal/platform/auth"
	"github.com/smilecare/dental/internal/platform/validation"
)

type Handler struct {
	now func() time.Time
}

func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/me/messages", auth.RequireCapability(auth.CapMessagesView))
	g.GET("", h.List)
	g.POST("", h.Send)
}

// List answers ?q= and ?folder= over the signed-in patient's inbox.
func (h *Handler) List(c echo.Context) error {
	s, _ := auth.SessionFromContext(c.Request().Context())
	inbox := DemoInbox(s.Email, h.now())
	return c.JSON(http.StatusOK, map[string]any{
		"messages":    Filter(inbox, c.QueryParam("q"), c.QueryParam("folder")),
		"unreadCount": UnreadCount(inbox),
	})
}

// SendRequest is a message to the practice.
type SendRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Send checks the message and acknowledges it. Nothing is delivered.
func (h *Handler) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	fe := validation.FieldErrors{}
	if validation.Blank(req.Subject) {
		fe.Add("subject", "Subject is required")
	}
	if validation.Blank(req.Content) {
		fe.Add("content", "Message is required")
	}
	if len(fe) > 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{"errors": fe})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "Message sent to your dental practice!"})
}
