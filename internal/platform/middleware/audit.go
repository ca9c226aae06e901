package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/smilecare/dental/internal/platform/auth"
)

// AuditEntry records one access to patient or appointment data.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	Role       string
	Resource   string
	RecordID   string
	PatientID  string
	Action     string
	Method     string
	Path       string
	StatusCode int
}

// auditedResources are the first path segments under /api/v1 that carry
// health or billing data.
var auditedResources = map[string]bool{
	"patients":  true,
	"incidents": true,
	"billing":   true,
	"me":        true,
	"files":     true,
	"calendar":  true,
}

// Audit logs an access line for every request that touches patient data.
// For patient logins PatientID is the linked record; for admins it is the
// :id of a /patients route when present.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := resourceOf(req.URL.Path)
			if !auditedResources[resource] {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Resource:   resource,
				RecordID:   c.Param("id"),
				Action:     actionOf(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				StatusCode: c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			if s, ok := auth.SessionFromContext(c.Request().Context()); ok {
				entry.UserID = s.UserID
				entry.Role = string(s.Role)
				entry.PatientID = s.PatientID
			}
			if entry.PatientID == "" && resource == "patients" {
				entry.PatientID = entry.RecordID
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("resource", entry.Resource).
				Str("record_id", entry.RecordID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func resourceOf(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return ""
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg
}

func actionOf(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
