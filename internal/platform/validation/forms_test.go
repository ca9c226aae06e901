package validation

import "testing"

func validPatient() PatientForm {
	return PatientForm{
		Name:       "John Doe",
		DOB:        "1990-05-10",
		Contact:    "(123) 456-7890",
		Email:      "john@smilecare.pro",
		HealthInfo: "No allergies",
	}
}

func TestPatient_Valid(t *testing.T) {
	if err := Patient(validPatient()); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
	f := validPatient()
	f.Email = ""
	if err := Patient(f); err != nil {
		t.Errorf("email is optional, got %v", err)
	}
}

func TestPatient_Errors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*PatientForm)
		field string
	}{
		{"missing name", func(f *PatientForm) { f.Name = "  " }, "name"},
		{"missing dob", func(f *PatientForm) { f.DOB = "" }, "dob"},
		{"bad dob", func(f *PatientForm) { f.DOB = "10/05/1990" }, "dob"},
		{"short contact", func(f *PatientForm) { f.Contact = "12345" }, "contact"},
		{"bad email", func(f *PatientForm) { f.Email = "john@" }, "email"},
		{"missing health info", func(f *PatientForm) { f.HealthInfo = "" }, "healthInfo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validPatient()
			tt.edit(&f)
			fe, ok := AsFieldErrors(Patient(f))
			if !ok {
				t.Fatal("expected FieldErrors")
			}
			if _, has := fe[tt.field]; !has || len(fe) != 1 {
				t.Errorf("expected single error on %s, got %v", tt.field, fe)
			}
		})
	}
}

func TestAppointment(t *testing.T) {
	f := AppointmentForm{
		PatientID:       "p1",
		Title:           "Checkup",
		Description:     "Cleaning",
		AppointmentDate: "2025-03-01T09:00",
		Cost:            "80",
		Status:          "completed",
	}
	if err := Appointment(f); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}

	empty := Appointment(AppointmentForm{Cost: "abc", Status: "Archived", NextDate: "soon"})
	fe, ok := AsFieldErrors(empty)
	if !ok {
		t.Fatal("expected FieldErrors")
	}
	for _, field := range []string{"patientId", "title", "description", "appointmentDate", "cost", "status", "nextDate"} {
		if _, has := fe[field]; !has {
			t.Errorf("expected error on %s", field)
		}
	}

	f.Cost = "-500"
	fe, ok = AsFieldErrors(Appointment(f))
	if !ok || fe["cost"] != "Cost must be a valid number" {
		t.Errorf("expected negative cost to be rejected, got %v", fe)
	}
	f.Cost = "0"
	if err := Appointment(f); err != nil {
		t.Errorf("expected zero cost to be accepted, got %v", err)
	}
}
