// Package messaging serves the patient's read-only message inbox. Messages
// are generated per request and never stored.
package messaging

import (
	"strings"
	"time"

	"github.com/smilecare/dental/internal/domain/clinic"
)

// Direction says which side of the conversation a message is on.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Practitioner is the sender of practice messages.
const Practitioner = "Dr. Smith"

type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp"`
	Read      bool      `json:"read"`
	Type      Direction `json:"type"`
}

// DemoInbox builds the sample conversation between email and the practice,
// newest first.
func DemoInbox(email string, now time.Time) []Message {
	ts := func(d time.Duration) string { return now.Add(-d).UTC().Format(time.RFC3339Nano) }
	return []Message{
		{
			ID:        "1",
			From:      Practitioner,
			To:        email,
			Subject:   "Appointment Reminder",
			Content:   "Hi! This is a reminder about your upcoming appointment on January 20th at 2:00 PM. Please arrive 15 minutes early for check-in.",
			Timestamp: ts(0),
			Type:      Received,
		},
		{
			ID:        "2",
			From:      email,
			To:        Practitioner,
			Subject:   "Question about Treatment",
			Content:   "Hi Doctor, I have some questions about my recent root canal treatment. Could we schedule a follow-up?",
			Timestamp: ts(time.Hour),
			Read:      true,
			Type:      Sent,
		},
		{
			ID:        "3",
			From:      Practitioner,
			To:        email,
			Subject:   "Re: Question about Treatment",
			Content:   "Of course! I'll have my assistant schedule a follow-up appointment for you. Please call the office at your convenience.",
			Timestamp: ts(2 * time.Hour),
			Read:      true,
			Type:      Received,
		},
	}
}

// Filter keeps messages whose subject, sender or content contains term and
// whose direction matches folder ("all", "sent" or "received"; empty means
// all).
func Filter(messages []Message, term, folder string) []Message {
	folder = strings.ToLower(strings.TrimSpace(folder))
	out := []Message{}
	for _, m := range messages {
		if folder != "" && folder != "all" && Direction(folder) != m.Type {
			continue
		}
		if clinic.MatchesTerm(term, m.Subject, m.From, m.Content) {
			out = append(out, m)
		}
	}
	return out
}

// UnreadCount counts unread received messages.
func UnreadCount(messages []Message) int {
	n := 0
	for _, m := range messages {
		if !m.Read && m.Type == Received {
			n++
		}
	}
	return n
}
