package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Capability names an action a role may take.
type Capability string

const (
	CapPatientsManage   Capability = "patients:manage"
	CapIncidentsManage  Capability = "incidents:manage"
	CapAnalyticsView    Capability = "analytics:view"
	CapBillingView      Capability = "billing:view"
	CapReportsView      Capability = "reports:view"
	CapSelfView         Capability = "self:view"
	CapNotificationsUse Capability = "notifications:use"
	CapMessagesView     Capability = "messages:view"
	CapSettingsEdit     Capability = "settings:edit"
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapPatientsManage:   true,
		CapIncidentsManage:  true,
		CapAnalyticsView:    true,
		CapBillingView:      true,
		CapReportsView:      true,
		CapNotificationsUse: true,
		CapSettingsEdit:     true,
	},
	RolePatient: {
		CapSelfView:         true,
		CapNotificationsUse: true,
		CapMessagesView:     true,
		CapSettingsEdit:     true,
	},
}

// Can reports whether role holds capability.
func Can(role Role, capability Capability) bool {
	return capabilities[role][capability]
}

// RequireCapability rejects requests whose session lacks capability.
// Patient-scoped capabilities also require a linked patient record.
func RequireCapability(capability Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
			}
			if !Can(s.Role, capability) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required capability: %s", capability))
			}
			if capability == CapSelfView && s.PatientID == "" {
				return echo.NewHTTPError(http.StatusForbidden, "account has no linked patient record")
			}
			return next(c)
		}
	}
}
