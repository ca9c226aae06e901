package clinic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smilecare/dental/internal/platform/kvstore"
)

// Compile-time contract assertions.
var (
	_ PatientRepository  = (*Store)(nil)
	_ IncidentRepository = (*Store)(nil)
)

// MutationRecorder observes committed mutations and failed writes.
// *telemetry.Provider satisfies it.
type MutationRecorder interface {
	RecordMutation(collection, operation string)
	RecordPersistFailure(collection string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, string) {}
func (nopRecorder) RecordPersistFailure(string) {}

// Options tune a Store. The zero value is usable.
type Options struct {
	Logger   zerolog.Logger
	Recorder MutationRecorder
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to prefix + random UUID.
	NewID func(prefix string) string
}

// Store owns the patient and incident collections. Each mutation builds the
// next collection, writes it whole to the state store, and only then makes
// it visible, so a failed write leaves the previous collection in place.
type Store struct {
	mu        sync.Mutex
	kv        kvstore.Store
	patients  []Patient
	incidents []Incident

	log   zerolog.Logger
	rec   MutationRecorder
	now   func() time.Time
	newID func(prefix string) string
}

// Open loads both collections from kv, seeding the demo records for any key
// that is absent. A stored value that does not decode is an error.
func Open(ctx context.Context, kv kvstore.Store, opts Options) (*Store, error) {
	s := &Store{
		kv:    kv,
		log:   opts.Logger,
		rec:   opts.Recorder,
		now:   opts.Now,
		newID: opts.NewID,
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func(prefix string) string { return prefix + uuid.NewString() }
	}

	var patients []Patient
	ok, err := kvstore.GetJSON(ctx, kv, PatientsKey, &patients)
	if err != nil {
		return nil, err
	}
	if !ok {
		patients = SeedPatients()
		if err := kvstore.PutJSON(ctx, kv, PatientsKey, patients); err != nil {
			return nil, err
		}
		s.log.Info().Int("count", len(patients)).Msg("seeded demo patients")
	}

	var incidents []Incident
	ok, err = kvstore.GetJSON(ctx, kv, IncidentsKey, &incidents)
	if err != nil {
		return nil, err
	}
	if !ok {
		incidents = SeedIncidents()
		if err := kvstore.PutJSON(ctx, kv, IncidentsKey, incidents); err != nil {
			return nil, err
		}
		s.log.Info().Int("count", len(incidents)).Msg("seeded demo incidents")
	}

	for i := range incidents {
		if incidents[i].Files == nil {
			incidents[i].Files = []Attachment{}
		}
	}
	s.patients = patients
	s.incidents = incidents
	return s, nil
}

// Reseed overwrites both collections with the demo records.
func (s *Store) Reseed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitIncidents(ctx, SeedIncidents(), "reseed"); err != nil {
		return err
	}
	return s.commitPatients(ctx, SeedPatients(), "reseed")
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) commitPatients(ctx context.Context, next []Patient, op string) error {
	if err := kvstore.PutJSON(ctx, s.kv, PatientsKey, next); err != nil {
		s.rec.RecordPersistFailure("patients")
		s.log.Error().Err(err).Str("operation", op).Msg("persist patients failed")
		return fmt.Errorf("persist patients: %w", err)
	}
	s.patients = next
	s.rec.RecordMutation("patients", op)
	return nil
}

func (s *Store) commitIncidents(ctx context.Context, next []Incident, op string) error {
	if err := kvstore.PutJSON(ctx, s.kv, IncidentsKey, next); err != nil {
		s.rec.RecordPersistFailure("incidents")
		s.log.Error().Err(err).Str("operation", op).Msg("persist incidents failed")
		return fmt.Errorf("persist incidents: %w", err)
	}
	s.incidents = next
	s.rec.RecordMutation("incidents", op)
	return nil
}

// -- Patients --

func (s *Store) ListPatients(_ context.Context) ([]Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Patient(nil), s.patients...), nil
}

func (s *Store) GetPatient(_ context.Context, id string) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return Patient{}, ErrNotFound
}

func (s *Store) CreatePatient(ctx context.Context, in PatientInput) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Patient{
		ID:         s.newID("p"),
		Name:       in.Name,
		DOB:        in.DOB,
		Contact:    in.Contact,
		Email:      in.Email,
		HealthInfo: in.HealthInfo,
		CreatedAt:  s.timestamp(),
	}
	next := make([]Patient, 0, len(s.patients)+1)
	next = append(next, s.patients...)
	next = append(next, p)
	if err := s.commitPatients(ctx, next, "create"); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (s *Store) UpdatePatient(ctx context.Context, id string, patch PatientPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, p := range s.patients {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	next := append([]Patient(nil), s.patients...)
	patch.apply(&next[idx])
	return s.commitPatients(ctx, next, "update")
}

// DeletePatientAndDependents writes the incident collection first. If the
// patient write then fails, the patient survives without incidents.
func (s *Store) DeletePatientAndDependents(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nextPatients := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if p.ID != id {
			nextPatients = append(nextPatients, p)
		}
	}
	if len(nextPatients) == len(s.patients) {
		return nil
	}
	nextIncidents := make([]Incident, 0, len(s.incidents))
	for _, i := range s.incidents {
		if i.PatientID != id {
			nextIncidents = append(nextIncidents, i)
		}
	}
	if len(nextIncidents) != len(s.incidents) {
		if err := s.commitIncidents(ctx, nextIncidents, "cascade_delete"); err != nil {
			return err
		}
	}
	return s.commitPatients(ctx, nextPatients, "delete")
}

func (s *Store) IncidentsFor(_ context.Context, patientID string) ([]Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Incident
	for _, i := range s.incidents {
		if i.PatientID == patientID {
			out = append(out, cloneIncident(i))
		}
	}
	return out, nil
}

// -- Incidents --

func (s *Store) ListIncidents(_ context.Context) ([]Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Incident, len(s.incidents))
	for i, inc := range s.incidents {
		out[i] = cloneIncident(inc)
	}
	return out, nil
}

func (s *Store) GetIncident(_ context.Context, id string) (Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.incidents {
		if i.ID == id {
			return cloneIncident(i), nil
		}
	}
	return Incident{}, ErrNotFound
}

// CreateIncident does not check that PatientID names an existing patient.
// An empty status defaults to Scheduled.
func (s *Store) CreateIncident(ctx context.Context, in IncidentInput) (Incident, error) {
	if in.Status == "" {
		in.Status = StatusScheduled
	}
	if !in.Status.Valid() {
		return Incident{}, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inc := cloneIncident(Incident{
		ID:              s.newID("i"),
		PatientID:       in.PatientID,
		Title:           in.Title,
		Description:     in.Description,
		Comments:        in.Comments,
		AppointmentDate: in.AppointmentDate,
		Cost:            in.Cost,
		Treatment:       in.Treatment,
		Status:          in.Status,
		NextDate:        in.NextDate,
		Files:           in.Files,
		CreatedAt:       s.timestamp(),
	})
	next := make([]Incident, 0, len(s.incidents)+1)
	next = append(next, s.incidents...)
	next = append(next, inc)
	if err := s.commitIncidents(ctx, next, "create"); err != nil {
		return Incident{}, err
	}
	return cloneIncident(inc), nil
}

func (s *Store) UpdateIncident(ctx context.Context, id string, patch IncidentPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, inc := range s.incidents {
		if inc.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	next := append([]Incident(nil), s.incidents...)
	updated := cloneIncident(next[idx])
	patch.apply(&updated)
	next[idx] = updated
	return s.commitIncidents(ctx, next, "update")
}

func (s *Store) DeleteIncident(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Incident, 0, len(s.incidents))
	for _, i := range s.incidents {
		if i.ID != id {
			next = append(next, i)
		}
	}
	if len(next) == len(s.incidents) {
		return nil
	}
	return s.commitIncidents(ctx, next, "delete")
}
