// Package settings serves the preferences screen. Preferences are not
// stored; saving only confirms through a notification.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smilecare/dental/internal/platform/auth"
)

// Notifier creates an in-app notification.
type Notifier interface {
	Notify(ctx context.Context, title, message, kind string) error
}

type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
}

type NotificationPrefs struct {
	EmailNotifications   bool `json:"emailNotifications"`
	SMSNotifications     bool `json:"smsNotifications"`
	AppointmentReminders bool `json:"appointmentReminders"`
	MarketingEmails      bool `json:"marketingEmails"`
}

type Practice struct {
	PracticeName string `json:"practiceName"`
	Address      string `json:"address"`
	Timezone     string `json:"timezone"`
	WorkingHours string `json:"workingHours"`
}

type Security struct {
	TwoFactorAuth  bool   `json:"twoFactorAuth"`
	SessionTimeout string `json:"sessionTimeout"`
	PasswordExpiry string `json:"passwordExpiry"`
}

// Preferences is the settings screen's form.
type Preferences struct {
	Profile       Profile           `json:"profile"`
	Notifications NotificationPrefs `json:"notifications"`
	Practice      Practice          `json:"practice"`
	Security      Security          `json:"security"`
}

// Defaults returns the preferences shown before anything is changed.
func Defaults(s auth.Session) Preferences {
	name := "John Doe"
	if s.Role == auth.RoleAdmin {
		name = "Dr. Smith"
	}
	return Preferences{
		Profile: Profile{
			Name:  name,
			Email: s.Email,
			Phone: "+1 (555) 123-4567",
			Bio:   "Experienced dental professional committed to providing excellent patient care.",
		},
		Notifications: NotificationPrefs{EmailNotifications: true, AppointmentReminders: true},
		Practice: Practice{
			PracticeName: "DentalCare Pro Clinic",
			Address:      "123 Main Street, City, State 12345",
			Timezone:     "America/New_York",
			WorkingHours: "9:00 AM - 6:00 PM",
		},
		Security: Security{SessionTimeout: "30", PasswordExpiry: "90"},
	}
}

type Handler struct {
	notify Notifier
}

func NewHandler(notify Notifier) *Handler {
	return &Handler{notify: notify}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/settings", auth.RequireCapability(auth.CapSettingsEdit))
	g.GET("", h.Get)
	g.PUT("", h.Save)
}

func (h *Handler) Get(c echo.Context) error {
	s, _ := auth.SessionFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, Defaults(s))
}

// Save accepts any JSON object and echoes it back after announcing the
// save.
func (h *Handler) Save(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var prefs map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &prefs); err != nil || prefs == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "settings must be a JSON object")
	}
	if h.notify != nil {
		err := h.notify.Notify(c.Request().Context(), "Settings Saved", "Your settings have been updated successfully.", "success")
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, prefs)
}
