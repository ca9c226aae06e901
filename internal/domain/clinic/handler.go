package clinic

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smilecare/dental/internal/platform/auth"
	"github.com/smilecare/dental/internal/platform/blobstore"
	"github.com/smilecare/dental/internal/platform/validation"
	"github.com/smilecare/dental/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patients := api.Group("/patients", auth.RequireCapability(auth.CapPatientsManage))
	patients.GET("", h.ListPatients)
	patients.POST("", h.CreatePatient)
	patients.GET("/:id", h.GetPatient)
	patients.PUT("/:id", h.UpdatePatient)
	patients.DELETE("/:id", h.DeletePatient)
	patients.GET("/:id/incidents", h.ListPatientIncidents)

	incidents := api.Group("/incidents", auth.RequireCapability(auth.CapIncidentsManage))
	incidents.GET("", h.ListIncidents)
	incidents.POST("", h.CreateIncident)
	incidents.GET("/:id", h.GetIncident)
	incidents.PUT("/:id", h.UpdateIncident)
	incidents.DELETE("/:id", h.DeleteIncident)
	incidents.POST("/:id/files", h.UploadFile)
}

// httpError maps service errors onto responses. Field errors become a 422
// carrying the per-field messages.
func httpError(err error) error {
	if fe, ok := validation.AsFieldErrors(err); ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]any{"errors": fe})
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// -- Patient Handlers --

func (h *Handler) ListPatients(c echo.Context) error {
	items, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var form validation.PatientForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Store().GetPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var form validation.PatientForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), form); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientIncidents(c echo.Context) error {
	items, err := h.svc.Store().IncidentsFor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []Incident{}
	}
	return c.JSON(http.StatusOK, pagination.Paginate(SortByAppointment(items, true), pagination.FromContext(c)))
}

// -- Incident Handlers --

func (h *Handler) ListIncidents(c echo.Context) error {
	items, err := h.svc.SearchIncidents(c.Request().Context(), c.QueryParam("q"), c.QueryParam("status"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(items, pagination.FromContext(c)))
}

func (h *Handler) CreateIncident(c echo.Context) error {
	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inc, err := h.svc.ScheduleAppointment(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, inc)
}

func (h *Handler) GetIncident(c echo.Context) error {
	inc, err := h.svc.Store().GetIncident(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inc)
}

func (h *Handler) UpdateIncident(c echo.Context) error {
	var req AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateAppointment(c.Request().Context(), c.Param("id"), req); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteIncident(c echo.Context) error {
	if err := h.svc.DeleteAppointment(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadFile accepts a multipart "file" field and attaches it to the
// incident.
func (h *Handler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fh.Size > blobstore.MaxFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, blobstore.ErrFileTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	a, err := h.svc.AttachFile(c.Request().Context(), c.Param("id"), fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}
