package validation

import (
	"strings"
	"time"
)

// AppointmentStatuses is the accepted status set for appointment forms.
var AppointmentStatuses = []string{"Scheduled", "Pending", "Completed", "Cancelled"}

// PatientForm is the patient form as submitted.
type PatientForm struct {
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	Contact    string `json:"contact"`
	Email      string `json:"email"`
	HealthInfo string `json:"healthInfo"`
}

// Patient checks a patient form. The returned error, if any, is FieldErrors.
func Patient(f PatientForm) error {
	fe := FieldErrors{}
	if Blank(f.Name) {
		fe.Add("name", "Name is required")
	}
	if Blank(f.DOB) {
		fe.Add("dob", "Date of birth is required")
	} else if _, err := time.Parse("2006-01-02", strings.TrimSpace(f.DOB)); err != nil {
		fe.Add("dob", "Date of birth must be YYYY-MM-DD")
	}
	if Blank(f.Contact) {
		fe.Add("contact", "Contact is required")
	} else if !IsPhone(f.Contact) {
		fe.Add("contact", "Contact must be a valid 10-digit phone number")
	}
	if !Blank(f.Email) && !IsEmail(strings.TrimSpace(f.Email)) {
		fe.Add("email", "Email must be a valid email address")
	}
	if Blank(f.HealthInfo) {
		fe.Add("healthInfo", "Health information is required")
	}
	return fe.Err()
}

// AppointmentForm is the appointment form as submitted. Dates are kept as
// the strings the client sent.
type AppointmentForm struct {
	PatientID       string `json:"patientId"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Comments        string `json:"comments"`
	AppointmentDate string `json:"appointmentDate"`
	Cost            Amount `json:"cost"`
	Treatment       string `json:"treatment"`
	Status          string `json:"status"`
	NextDate        string `json:"nextDate"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04",
	"2006-01-02",
}

// IsDate reports whether s is in one of the accepted ISO layouts.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Appointment checks an appointment form. An empty status is accepted and
// left for the store to default.
func Appointment(f AppointmentForm) error {
	fe := FieldErrors{}
	if Blank(f.PatientID) {
		fe.Add("patientId", "Patient is required")
	}
	if Blank(f.Title) {
		fe.Add("title", "Title is required")
	}
	if Blank(f.Description) {
		fe.Add("description", "Description is required")
	}
	if Blank(f.AppointmentDate) {
		fe.Add("appointmentDate", "Appointment date is required")
	} else if !IsDate(f.AppointmentDate) {
		fe.Add("appointmentDate", "Appointment date is invalid")
	}
	if !Blank(f.NextDate) && !IsDate(f.NextDate) {
		fe.Add("nextDate", "Next date is invalid")
	}
	if v, ok := f.Cost.Value(); !ok || (v != nil && *v < 0) {
		fe.Add("cost", "Cost must be a valid number")
	}
	if !Blank(f.Status) && !validStatus(f.Status) {
		fe.Add("status", "Status must be one of "+strings.Join(AppointmentStatuses, ", "))
	}
	return fe.Err()
}

func validStatus(s string) bool {
	for _, st := range AppointmentStatuses {
		if strings.EqualFold(st, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
