package clinic

import (
	"sort"
	"strings"
	"time"
)

// MatchesTerm reports whether any field contains term, ignoring case. A
// blank term matches everything.
func MatchesTerm(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Matches searches name, contact and email.
func (p Patient) Matches(term string) bool {
	return MatchesTerm(term, p.Name, p.Contact, p.Email)
}

// MatchesFilter reports whether s passes a status filter. "" and "all"
// accept every status; otherwise the comparison ignores case.
func (s Status) MatchesFilter(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(filter, "all") || strings.EqualFold(filter, string(s))
}

// SortByAppointment returns a copy of incidents ordered by appointment
// time, newest first when desc is set. Unparsable dates sort last and ties
// keep their order.
func SortByAppointment(incidents []Incident, desc bool) []Incident {
	type keyed struct {
		inc Incident
		at  time.Time
		ok  bool
	}
	rows := make([]keyed, len(incidents))
	for k, i := range incidents {
		at, ok := i.Appointment(time.UTC)
		rows[k] = keyed{inc: i, at: at, ok: ok}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].ok != rows[b].ok {
			return rows[a].ok
		}
		if desc {
			return rows[a].at.After(rows[b].at)
		}
		return rows[a].at.Before(rows[b].at)
	})
	out := make([]Incident, len(rows))
	for k, r := range rows {
		out[k] = r.inc
	}
	return out
}
