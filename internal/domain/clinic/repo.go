package clinic

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidStatus = errors.New("invalid incident status")
)

// Storage keys. The layout matches the browser build so exported state
// loads unchanged.
const (
	PatientsKey  = "dental_patients"
	IncidentsKey = "dental_incidents"
)

// PatientRepository is the patient half of the store. Update and delete on a
// missing id are silent no-ops.
type PatientRepository interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	GetPatient(ctx context.Context, id string) (Patient, error)
	CreatePatient(ctx context.Context, in PatientInput) (Patient, error)
	UpdatePatient(ctx context.Context, id string, patch PatientPatch) error
	// DeletePatientAndDependents removes the patient and every incident
	// that references it.
	DeletePatientAndDependents(ctx context.Context, id string) error
	IncidentsFor(ctx context.Context, patientID string) ([]Incident, error)
}

// IncidentRepository is the incident half of the store.
type IncidentRepository interface {
	ListIncidents(ctx context.Context) ([]Incident, error)
	GetIncident(ctx context.Context, id string) (Incident, error)
	CreateIncident(ctx context.Context, in IncidentInput) (Incident, error)
	UpdateIncident(ctx context.Context, id string, patch IncidentPatch) error
	DeleteIncident(ctx context.Context, id string) error
}
