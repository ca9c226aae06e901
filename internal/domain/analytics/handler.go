package analytics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smilecare/dental/internal/domain/clinic"
	"github.com/smilecare/dental/internal/platform/auth"
	"github.com/smilecare/dental/pkg/pagination"
)

// Source is the read side of the clinic store.
type Source interface {
	ListPatients(ctx context.Context) ([]clinic.Patient, error)
	GetPatient(ctx context.Context, id string) (clinic.Patient, error)
	ListIncidents(ctx context.Context) ([]clinic.Incident, error)
	IncidentsFor(ctx context.Context, patientID string) ([]clinic.Incident, error)
}

// Notifier creates an in-app notification.
type Notifier interface {
	Notify(ctx context.Context, title, message, kind string) error
}

type Handler struct {
	src    Source
	notify Notifier
	now    func() time.Time
}

func NewHandler(src Source, notify Notifier) *Handler {
	return &Handler{src: src, notify: notify, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/analytics", h.Analytics, auth.RequireCapability(auth.CapAnalyticsView))
	api.GET("/dashboard/admin", h.AdminDashboard, auth.RequireCapability(auth.CapAnalyticsView))
	api.POST("/dashboard/admin/test-notification", h.TestNotification, auth.RequireCapability(auth.CapAnalyticsView))
	api.GET("/billing", h.Billing, auth.RequireCapability(auth.CapBillingView))
	api.GET("/reports", h.Report, auth.RequireCapability(auth.CapReportsView))
	api.GET("/calendar", h.Calendar, auth.RequireCapability(auth.CapIncidentsManage))

	me := api.Group("/me", auth.RequireCapability(auth.CapSelfView))
	me.GET("/dashboard", h.MyDashboard)
	me.GET("/appointments", h.MyAppointments)
	me.GET("/treatments", h.MyTreatments)
	me.GET("/billing", h.MyBilling)
}

func (h *Handler) load(ctx context.Context) ([]clinic.Patient, []clinic.Incident, error) {
	patients, err := h.src.ListPatients(ctx)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	incidents, err := h.src.ListIncidents(ctx)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return patients, incidents, nil
}

// -- Admin Handlers --

func (h *Handler) Analytics(c echo.Context) error {
	patients, incidents, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	months := TrendMonths(c.QueryParam("timeRange"))
	counts := CountByStatus(incidents)
	return c.JSON(http.StatusOK, map[string]any{
		"totalPatients":       len(patients),
		"totalAppointments":   len(incidents),
		"totalRevenue":        RevenueTotal(incidents),
		"pendingRevenue":      PendingTotal(incidents),
		"completedTreatments": counts[clinic.StatusCompleted],
		"averageRevenue":      AverageRevenue(incidents),
		"statusCounts":        counts,
		"monthly":             MonthlyTrend(incidents, h.now(), months),
		"topTreatments":       TopTreatments(incidents, 5),
	})
}

func (h *Handler) AdminDashboard(c echo.Context) error {
	patients, incidents, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AdminOverview(patients, incidents, h.now()))
}

// TestNotification is the dashboard's quick action.
func (h *Handler) TestNotification(c echo.Context) error {
	if h.notify == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications are not configured")
	}
	err := h.notify.Notify(c.Request().Context(),
		"Quick Action Completed", "You've successfully triggered a test notification!", "success")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Billing(c echo.Context) error {
	patients, incidents, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	records := BillingRecords(incidents, patients, c.QueryParam("q"), c.QueryParam("status"))
	return c.JSON(http.StatusOK, map[string]any{
		"summary": BillingSummary(incidents),
		"records": pagination.Paginate(records, pagination.FromContext(c)),
	})
}

func (h *Handler) Report(c echo.Context) error {
	patients, incidents, err := h.load(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Report(patients, incidents, RangeKind(c.QueryParam("range")), h.now()))
}

// Calendar lists the active appointments on ?day=YYYY-MM-DD, today by
// default.
func (h *Handler) Calendar(c echo.Context) error {
	now := h.now()
	day := now
	if raw := c.QueryParam("day"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "day must be YYYY-MM-DD")
		}
		day = parsed
	}
	incidents, err := h.src.ListIncidents(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"day":          day.Format("2006-01-02"),
		"appointments": OnDay(incidents, day),
	})
}

// -- Patient Handlers --

func (h *Handler) own(c echo.Context) (clinic.Patient, []clinic.Incident, error) {
	s, ok := auth.SessionFromContext(c.Request().Context())
	if !ok || s.PatientID == "" {
		return clinic.Patient{}, nil, echo.NewHTTPError(http.StatusForbidden, "account has no linked patient record")
	}
	ctx := c.Request().Context()
	p, err := h.src.GetPatient(ctx, s.PatientID)
	if errors.Is(err, clinic.ErrNotFound) {
		return clinic.Patient{}, nil, echo.NewHTTPError(http.StatusNotFound, "patient record not found")
	}
	if err != nil {
		return clinic.Patient{}, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	incidents, err := h.src.IncidentsFor(ctx, p.ID)
	if err != nil {
		return clinic.Patient{}, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return p, incidents, nil
}

func (h *Handler) MyDashboard(c echo.Context) error {
	p, incidents, err := h.own(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PatientOverview(p, incidents))
}

func (h *Handler) MyAppointments(c echo.Context) error {
	_, incidents, err := h.own(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SplitAppointments(incidents))
}

func (h *Handler) MyTreatments(c echo.Context) error {
	p, incidents, err := h.own(c)
	if err != nil {
		return err
	}
	history := PatientHistory(incidents, p.ID, c.QueryParam("q"), c.QueryParam("status"))
	counts := CountByStatus(incidents)
	return c.JSON(http.StatusOK, map[string]any{
		"treatments": pagination.Paginate(history, pagination.FromContext(c)),
		"total":      len(incidents),
		"completed":  counts[clinic.StatusCompleted],
		"totalSpent": RevenueTotal(incidents),
	})
}

func (h *Handler) MyBilling(c echo.Context) error {
	_, incidents, err := h.own(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Statement(incidents))
}
