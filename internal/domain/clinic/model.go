package clinic

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an incident. Any status may move to any
// other; only membership in the set is enforced.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusScheduled, StatusPending, StatusCompleted, StatusCancelled}

// Valid reports whether s is one of the four enumerated values.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether the incident is still upcoming.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusPending
}

// ParseStatus matches s case-insensitively against the enum.
func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// Patient is the identity record for a person treated at the practice.
type Patient struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	Contact    string `json:"contact"`
	Email      string `json:"email,omitempty"`
	HealthInfo string `json:"healthInfo"`
	CreatedAt  string `json:"createdAt"`
}

// PatientInput carries the fields a caller supplies on create.
type PatientInput struct {
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	Contact    string `json:"contact"`
	Email      string `json:"email,omitempty"`
	HealthInfo string `json:"healthInfo"`
}

// PatientPatch is a partial update; nil fields are left untouched.
type PatientPatch struct {
	Name       *string `json:"name,omitempty"`
	DOB        *string `json:"dob,omitempty"`
	Contact    *string `json:"contact,omitempty"`
	Email      *string `json:"email,omitempty"`
	HealthInfo *string `json:"healthInfo,omitempty"`
}

func (p PatientPatch) apply(dst *Patient) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.DOB != nil {
		dst.DOB = *p.DOB
	}
	if p.Contact != nil {
		dst.Contact = *p.Contact
	}
	if p.Email != nil {
		dst.Email = *p.Email
	}
	if p.HealthInfo != nil {
		dst.HealthInfo = *p.HealthInfo
	}
}

// Attachment is a file attached to an incident. URL is either an embedded
// data: URL or a blob:// reference resolved by the file endpoint.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Incident is an appointment or treatment record.
type Incident struct {
	ID              string       `json:"id"`
	PatientID       string       `json:"patientId"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Comments        string       `json:"comments"`
	AppointmentDate string       `json:"appointmentDate"`
	Cost            *float64     `json:"cost,omitempty"`
	Treatment       string       `json:"treatment,omitempty"`
	Status          Status       `json:"status"`
	NextDate        string       `json:"nextDate,omitempty"`
	Files           []Attachment `json:"files"`
	CreatedAt       string       `json:"createdAt"`
}

// Appointment parses AppointmentDate, interpreting zone-less timestamps in loc.
func (i Incident) Appointment(loc *time.Location) (time.Time, bool) {
	return ParseTime(i.AppointmentDate, loc)
}

// CostValue returns the cost, or zero when absent.
func (i Incident) CostValue() float64 {
	if i.Cost == nil {
		return 0
	}
	return *i.Cost
}

// IncidentInput carries the fields a caller supplies on create.
type IncidentInput struct {
	PatientID       string       `json:"patientId"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Comments        string       `json:"comments"`
	AppointmentDate string       `json:"appointmentDate"`
	Cost            *float64     `json:"cost,omitempty"`
	Treatment       string       `json:"treatment,omitempty"`
	Status          Status       `json:"status"`
	NextDate        string       `json:"nextDate,omitempty"`
	Files           []Attachment `json:"files"`
}

// IncidentPatch is a partial update; nil fields are left untouched.
type IncidentPatch struct {
	PatientID       *string       `json:"patientId,omitempty"`
	Title           *string       `json:"title,omitempty"`
	Description     *string       `json:"description,omitempty"`
	Comments        *string       `json:"comments,omitempty"`
	AppointmentDate *string       `json:"appointmentDate,omitempty"`
	Cost            *float64      `json:"cost,omitempty"`
	Treatment       *string       `json:"treatment,omitempty"`
	Status          *Status       `json:"status,omitempty"`
	NextDate        *string       `json:"nextDate,omitempty"`
	Files           *[]Attachment `json:"files,omitempty"`
	// ClearCost removes the cost. It wins over Cost.
	ClearCost       bool          `json:"clearCost,omitempty"`
}

func (p IncidentPatch) apply(dst *Incident) {
	if p.PatientID != nil {
		dst.PatientID = *p.PatientID
	}
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Comments != nil {
		dst.Comments = *p.Comments
	}
	if p.AppointmentDate != nil {
		dst.AppointmentDate = *p.AppointmentDate
	}
	if p.ClearCost {
		dst.Cost = nil
	} else if p.Cost != nil {
		c := *p.Cost
		dst.Cost = &c
	}
	if p.Treatment != nil {
		dst.Treatment = *p.Treatment
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.NextDate != nil {
		dst.NextDate = *p.NextDate
	}
	if p.Files != nil {
		dst.Files = append([]Attachment{}, (*p.Files)...)
	}
}

func cloneIncident(i Incident) Incident {
	out := i
	if i.Cost != nil {
		c := *i.Cost
		out.Cost = &c
	}
	out.Files = append(make([]Attachment, 0, len(i.Files)), i.Files...)
	return out
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses the ISO timestamps stored on records. Values with a zone
// (RFC 3339) keep it; values without one are wall-clock times in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
