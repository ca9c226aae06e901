package clinic

func costOf(v float64) *float64 { return &v }

// SeedPatients returns the demo patients written on first run.
func SeedPatients() []Patient {
	return []Patient{
		{
			ID:         "p1",
			Name:       "John Doe",
			DOB:        "1990-05-10",
			Contact:    "1234567890",
			Email:      "john@smilecare.pro",
			HealthInfo: "No allergies",
			CreatedAt:  "2024-01-15T10:00:00Z",
		},
		{
			ID:         "p2",
			Name:       "Jane Smith",
			DOB:        "1985-08-22",
			Contact:    "0987654321",
			Email:      "jane@smilecare.pro",
			HealthInfo: "Allergic to penicillin",
			CreatedAt:  "2024-02-01T14:30:00Z",
		},
	}
}

// SeedIncidents returns the demo incidents written on first run.
func SeedIncidents() []Incident {
	return []Incident{
		{
			ID:              "i1",
			PatientID:       "p1",
			Title:           "Routine Checkup",
			Description:     "Regular dental examination and cleaning",
			Comments:        "Patient has good oral hygiene",
			AppointmentDate: "2025-01-15T10:00:00",
			Cost:            costOf(120),
			Treatment:       "Dental cleaning and fluoride treatment",
			Status:          StatusCompleted,
			Files:           []Attachment{},
			CreatedAt:       "2024-12-01T10:00:00Z",
		},
		{
			ID:              "i2",
			PatientID:       "p1",
			Title:           "Tooth Filling",
			Description:     "Cavity treatment on upper molar",
			Comments:        "Small cavity detected during checkup",
			AppointmentDate: "2025-01-20T14:00:00",
			Status:          StatusScheduled,
			Files:           []Attachment{},
			CreatedAt:       "2024-12-10T09:00:00Z",
		},
		{
			ID:              "i3",
			PatientID:       "p2",
			Title:           "Root Canal",
			Description:     "Root canal treatment for infected tooth",
			Comments:        "Patient experiencing severe pain",
			AppointmentDate: "2025-01-18T11:00:00",
			Cost:            costOf(800),
			Treatment:       "Root canal therapy",
			Status:          StatusPending,
			NextDate:        "2025-02-01T11:00:00",
			Files:           []Attachment{},
			CreatedAt:       "2024-12-05T16:00:00Z",
		},
	}
}
