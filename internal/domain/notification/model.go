package notification

import "time"

// Type is the severity shown with a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Valid reports whether t is one of the four severities.
func (t Type) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Notification is an in-app message. Timestamp is RFC 3339.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      Type   `json:"type"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	ActionURL string `json:"actionUrl,omitempty"`
}

// Seed returns the two notifications written on first run.
func Seed(now time.Time) []Notification {
	return []Notification{
		{
			ID:        "1",
			Title:     "Welcome to Dental Center",
			Message:   "Your account has been set up successfully. Explore the dashboard to get started.",
			Type:      TypeSuccess,
			Timestamp: now.UTC().Format(time.RFC3339Nano),
		},
		{
			ID:        "2",
			Title:     "Appointment Reminder",
			Message:   "You have 3 appointments scheduled for this week. Check your calendar for details.",
			Type:      TypeInfo,
			Timestamp: now.Add(-time.Hour).UTC().Format(time.RFC3339Nano),
		},
	}
}
