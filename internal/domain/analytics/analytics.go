// Package analytics derives the practice figures shown on the dashboards,
// billing and report screens from the patient and incident collections.
// Every function is pure; records whose dates do not parse are skipped
// rather than reported.
package analytics

import (
	"sort"
	"time"

	"github.com/smilecare/dental/internal/domain/clinic"
)

// RevenueTotal sums the cost of completed incidents that carry one.
func RevenueTotal(incidents []clinic.Incident) float64 {
	return costWhere(incidents, clinic.StatusCompleted)
}

// PendingTotal sums the cost of pending incidents that carry one.
func PendingTotal(incidents []clinic.Incident) float64 {
	return costWhere(incidents, clinic.StatusPending)
}

func costWhere(incidents []clinic.Incident, status clinic.Status) float64 {
	var sum float64
	for _, i := range incidents {
		if i.Cost != nil && i.Status == status {
			sum += *i.Cost
		}
	}
	return sum
}

// CountByStatus counts incidents per status. Every status has an entry.
func CountByStatus(incidents []clinic.Incident) map[clinic.Status]int {
	counts := make(map[clinic.Status]int, len(clinic.Statuses))
	for _, st := range clinic.Statuses {
		counts[st] = 0
	}
	for _, i := range incidents {
		counts[i.Status]++
	}
	return counts
}

// AverageRevenue is completed revenue divided by the number of completed
// incidents, or 0 when nothing is completed.
func AverageRevenue(incidents []clinic.Incident) float64 {
	completed := CountByStatus(incidents)[clinic.StatusCompleted]
	if completed == 0 {
		return 0
	}
	return RevenueTotal(incidents) / float64(completed)
}

// Window is an inclusive time interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Label formats the window's first month, e.g. "Feb 2025".
func (w Window) Label() string {
	return w.Start.Format("Jan 2006")
}

// MonthWindow returns the calendar month holding t, in t's location.
func MonthWindow(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Window{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// MonthWindows returns the last n calendar months ending with now's month,
// oldest first.
func MonthWindows(now time.Time, n int) []Window {
	if n <= 0 {
		return []Window{}
	}
	out := make([]Window, 0, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for k := n - 1; k >= 0; k-- {
		out = append(out, MonthWindow(first.AddDate(0, -k, 0)))
	}
	return out
}

// InRange keeps incidents whose appointment time falls in [start, end].
// Zone-less dates are read in start's location.
func InRange(incidents []clinic.Incident, start, end time.Time) []clinic.Incident {
	w := Window{Start: start, End: end}
	out := []clinic.Incident{}
	for _, i := range incidents {
		if t, ok := i.Appointment(start.Location()); ok && w.Contains(t) {
			out = append(out, i)
		}
	}
	return out
}

// MonthStats is one bucket of the monthly trend.
type MonthStats struct {
	Month        string  `json:"month"`
	Appointments int     `json:"appointments"`
	Completed    int     `json:"completed"`
	Revenue      float64 `json:"revenue"`
}

// MonthlyTrend buckets incidents into the last n months.
func MonthlyTrend(incidents []clinic.Incident, now time.Time, n int) []MonthStats {
	windows := MonthWindows(now, n)
	out := make([]MonthStats, 0, len(windows))
	for _, w := range windows {
		bucket := InRange(incidents, w.Start, w.End)
		out = append(out, MonthStats{
			Month:        w.Label(),
			Appointments: len(bucket),
			Completed:    CountByStatus(bucket)[clinic.StatusCompleted],
			Revenue:      RevenueTotal(bucket),
		})
	}
	return out
}

// TreatmentStats aggregates incidents sharing a title.
type TreatmentStats struct {
	Title   string  `json:"title"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// GroupByTitle counts incidents per title with their completed revenue,
// highest revenue first and ties broken by title.
func GroupByTitle(incidents []clinic.Incident) []TreatmentStats {
	index := map[string]int{}
	out := []TreatmentStats{}
	for _, i := range incidents {
		k, ok := index[i.Title]
		if !ok {
			k = len(out)
			index[i.Title] = k
			out = append(out, TreatmentStats{Title: i.Title})
		}
		out[k].Count++
		if i.Cost != nil && i.Status == clinic.StatusCompleted {
			out[k].Revenue += *i.Cost
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Revenue != out[b].Revenue {
			return out[a].Revenue > out[b].Revenue
		}
		return out[a].Title < out[b].Title
	})
	return out
}

// TopTreatments returns the first n entries of GroupByTitle.
func TopTreatments(incidents []clinic.Incident, n int) []TreatmentStats {
	return head(GroupByTitle(incidents), n)
}

func head[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// MatchesSearch reports whether any field contains term, ignoring case.
// A blank term matches everything.
func MatchesSearch(term string, fields ...string) bool {
	return clinic.MatchesTerm(term, fields...)
}

func patientNames(patients []clinic.Patient) map[string]string {
	names := make(map[string]string, len(patients))
	for _, p := range patients {
		names[p.ID] = p.Name
	}
	return names
}

// SearchIncidents matches term against title, description and the owning
// patient's name.
func SearchIncidents(incidents []clinic.Incident, patients []clinic.Patient, term string) []clinic.Incident {
	names := patientNames(patients)
	out := []clinic.Incident{}
	for _, i := range incidents {
		if MatchesSearch(term, i.Title, i.Description, names[i.PatientID]) {
			out = append(out, i)
		}
	}
	return out
}

// SearchPatients matches term against name, contact and email.
func SearchPatients(patients []clinic.Patient, term string) []clinic.Patient {
	out := []clinic.Patient{}
	for _, p := range patients {
		if p.Matches(term) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesStatus reports whether status passes filter. "all" and "" accept
// every status; otherwise the comparison ignores case.
func MatchesStatus(status clinic.Status, filter string) bool {
	return status.MatchesFilter(filter)
}

// FilterStatus keeps incidents passing MatchesStatus.
func FilterStatus(incidents []clinic.Incident, filter string) []clinic.Incident {
	out := []clinic.Incident{}
	for _, i := range incidents {
		if MatchesStatus(i.Status, filter) {
			out = append(out, i)
		}
	}
	return out
}

// SortByDateAsc orders a copy of incidents by appointment time, earliest
// first. Unparsable dates sort last.
func SortByDateAsc(incidents []clinic.Incident) []clinic.Incident {
	return clinic.SortByAppointment(incidents, false)
}

// SortByDateDesc orders a copy of incidents newest first. Unparsable dates
// sort last.
func SortByDateDesc(incidents []clinic.Incident) []clinic.Incident {
	return clinic.SortByAppointment(incidents, true)
}

// Upcoming returns Scheduled and Pending incidents, earliest first, capped
// at limit. A negative limit returns all of them.
func Upcoming(incidents []clinic.Incident, limit int) []clinic.Incident {
	active := []clinic.Incident{}
	for _, i := range incidents {
		if i.Status.Active() {
			active = append(active, i)
		}
	}
	return head(SortByDateAsc(active), limit)
}

// OnDay returns the active incidents booked on day's calendar date, in
// day's location, earliest first.
func OnDay(incidents []clinic.Incident, day time.Time) []clinic.Incident {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return Upcoming(InRange(incidents, start, end), -1)
}

// PatientActivity is a patient with their appointment count.
type PatientActivity struct {
	clinic.Patient
	AppointmentCount int `json:"appointmentCount"`
}

// TopPatients ranks patients by number of incidents, most first. Ties keep
// the patients' stored order.
func TopPatients(patients []clinic.Patient, incidents []clinic.Incident, n int) []PatientActivity {
	counts := map[string]int{}
	for _, i := range incidents {
		counts[i.PatientID]++
	}
	out := make([]PatientActivity, 0, len(patients))
	for _, p := range patients {
		out = append(out, PatientActivity{Patient: p, AppointmentCount: counts[p.ID]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].AppointmentCount > out[b].AppointmentCount
	})
	return head(out, n)
}

// PatientHistory returns one patient's incidents matching term (over title,
// description and treatment) and the status filter, newest first.
func PatientHistory(incidents []clinic.Incident, patientID, term, status string) []clinic.Incident {
	out := []clinic.Incident{}
	for _, i := range incidents {
		if i.PatientID != patientID || !MatchesStatus(i.Status, status) {
			continue
		}
		if MatchesSearch(term, i.Title, i.Description, i.Treatment) {
			out = append(out, i)
		}
	}
	return SortByDateDesc(out)
}
