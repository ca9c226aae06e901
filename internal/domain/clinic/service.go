package clinic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/dental/internal/platform/blobstore"
	"github.com/smilecare/dental/internal/platform/validation"
	"github.com/smilecare/dental/internal/platform/websocket"
)

// Toaster shows a transient message to connected clients.
type Toaster interface {
	PublishToast(ctx context.Context, t websocket.Toast) error
}

// AppointmentRequest is the appointment form plus any attachments the
// client already encoded.
type AppointmentRequest struct {
	validation.AppointmentForm
	Files []Attachment `json:"files"`
}

// Service validates submitted forms, applies them to the Store and keeps
// attachment bytes in the blob store.
type Service struct {
	store  *Store
	blobs  blobstore.Store
	toasts Toaster
	log    zerolog.Logger
}

// NewService wires the store to its collaborators. blobs and toasts may be
// nil; attachments are then kept inline and no toasts are sent.
func NewService(store *Store, blobs blobstore.Store, toasts Toaster, log zerolog.Logger) *Service {
	if blobs == nil {
		blobs = blobstore.Inline{}
	}
	return &Service{store: store, blobs: blobs, toasts: toasts, log: log}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) toast(ctx context.Context, title, description string) {
	if s.toasts == nil {
		return
	}
	if err := s.toasts.PublishToast(ctx, websocket.Toast{Title: title, Description: description}); err != nil {
		s.log.Warn().Err(err).Str("toast", title).Msg("publish toast failed")
	}
}

// -- Patients --

// SearchPatients lists patients whose name, contact or email contains term.
func (s *Service) SearchPatients(ctx context.Context, term string) ([]Patient, error) {
	all, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	out := []Patient{}
	for _, p := range all {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out, nil
}

func patientInput(f validation.PatientForm) PatientInput {
	return PatientInput{
		Name:       strings.TrimSpace(f.Name),
		DOB:        strings.TrimSpace(f.DOB),
		Contact:    strings.TrimSpace(f.Contact),
		Email:      strings.TrimSpace(f.Email),
		HealthInfo: strings.TrimSpace(f.HealthInfo),
	}
}

func (s *Service) CreatePatient(ctx context.Context, f validation.PatientForm) (Patient, error) {
	if err := validation.Patient(f); err != nil {
		return Patient{}, err
	}
	p, err := s.store.CreatePatient(ctx, patientInput(f))
	if err != nil {
		return Patient{}, err
	}
	s.toast(ctx, "Patient added", "New patient has been successfully added.")
	return p, nil
}

// UpdatePatient replaces every form field of the patient. An unknown id is
// a no-op.
func (s *Service) UpdatePatient(ctx context.Context, id string, f validation.PatientForm) error {
	if err := validation.Patient(f); err != nil {
		return err
	}
	in := patientInput(f)
	err := s.store.UpdatePatient(ctx, id, PatientPatch{
		Name:       &in.Name,
		DOB:        &in.DOB,
		Contact:    &in.Contact,
		Email:      &in.Email,
		HealthInfo: &in.HealthInfo,
	})
	if err != nil {
		return err
	}
	s.toast(ctx, "Patient updated", "Patient information has been successfully updated.")
	return nil
}

// DeletePatient removes the patient, their incidents and the stored bytes
// of those incidents' attachments.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	dependents, err := s.store.IncidentsFor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePatientAndDependents(ctx, id); err != nil {
		return err
	}
	for _, inc := range dependents {
		s.dropFiles(ctx, inc.Files)
	}
	s.toast(ctx, "Patient deleted", "Patient and all associated appointments have been removed.")
	return nil
}

// -- Appointments --

// SearchIncidents lists incidents matching term (title, description or
// patient name) and the status filter, newest first.
func (s *Service) SearchIncidents(ctx context.Context, term, status string) ([]Incident, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	incidents, err := s.store.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(patients))
	for _, p := range patients {
		names[p.ID] = p.Name
	}
	out := []Incident{}
	for _, i := range incidents {
		if i.Status.MatchesFilter(status) && MatchesTerm(term, i.Title, i.Description, names[i.PatientID]) {
			out = append(out, i)
		}
	}
	return SortByAppointment(out, true), nil
}

// checkAttachments accepts inline data URLs and only those blob refs that
// held already carries. New blobs arrive through AttachFile.
func checkAttachments(files, held []Attachment) error {
	owned := make(map[string]bool, len(held))
	for _, f := range held {
		owned[f.URL] = true
	}
	for _, f := range files {
		if validation.Blank(f.Name) {
			return validation.FieldErrors{"files": "Every file needs a name"}
		}
		switch {
		case strings.HasPrefix(f.URL, "data:"):
		case strings.HasPrefix(f.URL, blobstore.RefScheme):
			if !owned[f.URL] {
				return validation.FieldErrors{"files": "File " + f.Name + " does not belong to this appointment"}
			}
		default:
			return validation.FieldErrors{"files": "File " + f.Name + " has an unsupported URL"}
		}
	}
	return nil
}

func validateAppointment(req AppointmentRequest, held []Attachment) (Status, *float64, error) {
	fe := validation.FieldErrors{}
	if err := validation.Appointment(req.AppointmentForm); err != nil {
		got, _ := validation.AsFieldErrors(err)
		for k, v := range got {
			fe.Add(k, v)
		}
	}
	if err := checkAttachments(req.Files, held); err != nil {
		got, _ := validation.AsFieldErrors(err)
		for k, v := range got {
			fe.Add(k, v)
		}
	}
	if err := fe.Err(); err != nil {
		return "", nil, err
	}
	var status Status
	if !validation.Blank(req.Status) {
		status, _ = ParseStatus(req.Status)
	}
	cost, _ := req.Cost.Value()
	return status, cost, nil
}

func (s *Service) ScheduleAppointment(ctx context.Context, req AppointmentRequest) (Incident, error) {
	status, cost, err := validateAppointment(req, nil)
	if err != nil {
		return Incident{}, err
	}
	files := req.Files
	if files == nil {
		files = []Attachment{}
	}
	inc, err := s.store.CreateIncident(ctx, IncidentInput{
		PatientID:       strings.TrimSpace(req.PatientID),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Comments:        req.Comments,
		AppointmentDate: strings.TrimSpace(req.AppointmentDate),
		Cost:            cost,
		Treatment:       req.Treatment,
		Status:          status,
		NextDate:        strings.TrimSpace(req.NextDate),
		Files:           files,
	})
	if err != nil {
		return Incident{}, err
	}
	s.toast(ctx, "Appointment scheduled", "New appointment has been successfully scheduled.")
	return inc, nil
}

// UpdateAppointment applies the form to an existing incident. An empty
// cost clears the stored cost, an empty status keeps the stored one, and a
// nil file list keeps the current attachments. Blob refs must already be
// attached to this incident. An unknown id is a no-op.
func (s *Service) UpdateAppointment(ctx context.Context, id string, req AppointmentRequest) error {
	var held []Attachment
	current, err := s.store.GetIncident(ctx, id)
	switch {
	case err == nil:
		held = current.Files
	case !errors.Is(err, ErrNotFound):
		return err
	}
	status, cost, err := validateAppointment(req, held)
	if err != nil {
		return err
	}
	patientID := strings.TrimSpace(req.PatientID)
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	date := strings.TrimSpace(req.AppointmentDate)
	next := strings.TrimSpace(req.NextDate)
	patch := IncidentPatch{
		PatientID:       &patientID,
		Title:           &title,
		Description:     &description,
		Comments:        &req.Comments,
		AppointmentDate: &date,
		Cost:            cost,
		ClearCost:       cost == nil,
		Treatment:       &req.Treatment,
		NextDate:        &next,
	}
	if status != "" {
		patch.Status = &status
	}
	if req.Files != nil {
		files := req.Files
		patch.Files = &files
	}
	if err := s.store.UpdateIncident(ctx, id, patch); err != nil {
		return err
	}
	s.toast(ctx, "Appointment updated", "Appointment has been successfully updated.")
	return nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	inc, err := s.store.GetIncident(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteIncident(ctx, id); err != nil {
		return err
	}
	s.dropFiles(ctx, inc.Files)
	s.toast(ctx, "Appointment deleted", "Appointment has been successfully removed.")
	return nil
}

// -- Attachments --

// AttachFile stores r and appends the attachment to the incident. The
// incident must exist; a failed record update removes the stored bytes.
func (s *Service) AttachFile(ctx context.Context, incidentID, name, contentType string, r io.Reader) (Attachment, error) {
	inc, err := s.store.GetIncident(ctx, incidentID)
	if err != nil {
		return Attachment{}, err
	}
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return Attachment{}, validation.FieldErrors{"file": "File name is required"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("incidents/%s/%s-%s", incidentID, uuid.NewString(), name)
	url, err := s.blobs.Put(ctx, key, contentType, r)
	if err != nil {
		return Attachment{}, fmt.Errorf("store attachment: %w", err)
	}

	a := Attachment{Name: name, URL: url, Type: contentType}
	files := append(inc.Files, a)
	if err := s.store.UpdateIncident(ctx, incidentID, IncidentPatch{Files: &files}); err != nil {
		s.dropFiles(ctx, []Attachment{a})
		return Attachment{}, err
	}
	return a, nil
}

// dropFiles deletes the stored bytes behind blob:// attachments. Failures
// are logged; the records are already gone.
func (s *Service) dropFiles(ctx context.Context, files []Attachment) {
	for _, f := range files {
		key, ok := blobstore.KeyFromURL(f.URL)
		if !ok {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("delete attachment failed")
		}
	}
}
