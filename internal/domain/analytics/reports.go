package analytics

import (
	"time"

	"github.com/smilecare/dental/internal/domain/clinic"
)

// RangeKind selects a report period.
type RangeKind string

const (
	RangeThisMonth   RangeKind = "thisMonth"
	RangeLastMonth   RangeKind = "lastMonth"
	RangeLast3Months RangeKind = "last3Months"
	RangeLast6Months RangeKind = "last6Months"
)

// ReportRange resolves kind relative to now. Unknown kinds fall back to
// the current month.
func ReportRange(kind RangeKind, now time.Time) (Window, RangeKind) {
	this := MonthWindow(now)
	switch kind {
	case RangeLastMonth:
		return MonthWindow(this.Start.AddDate(0, -1, 0)), kind
	case RangeLast3Months:
		return Window{Start: this.Start.AddDate(0, -2, 0), End: this.End}, kind
	case RangeLast6Months:
		return Window{Start: this.Start.AddDate(0, -5, 0), End: this.End}, kind
	}
	return this, RangeThisMonth
}

// TrendMonths maps the analytics screen's timeRange values to a month
// count. The default is six months.
func TrendMonths(timeRange string) int {
	switch timeRange {
	case "1month":
		return 1
	case "3months":
		return 3
	case "1year":
		return 12
	}
	return 6
}

// PracticeReport summarises one report period.
type PracticeReport struct {
	Range                 RangeKind        `json:"range"`
	Start                 time.Time        `json:"start"`
	End                   time.Time        `json:"end"`
	TotalAppointments     int              `json:"totalAppointments"`
	CompletedAppointments int              `json:"completedAppointments"`
	ScheduledAppointments int              `json:"scheduledAppointments"`
	CancelledAppointments int              `json:"cancelledAppointments"`
	TotalRevenue          float64          `json:"totalRevenue"`
	NewPatients           int              `json:"newPatients"`
	AverageRevenue        float64          `json:"averageRevenue"`
	Treatments            []TreatmentStats `json:"treatments"`
}

// Report builds the practice report for kind. New patients are those
// created inside the period.
func Report(patients []clinic.Patient, incidents []clinic.Incident, kind RangeKind, now time.Time) PracticeReport {
	w, kind := ReportRange(kind, now)
	in := InRange(incidents, w.Start, w.End)
	counts := CountByStatus(in)

	fresh := 0
	for _, p := range patients {
		if t, ok := clinic.ParseTime(p.CreatedAt, now.Location()); ok && w.Contains(t) {
			fresh++
		}
	}
	return PracticeReport{
		Range:                 kind,
		Start:                 w.Start,
		End:                   w.End,
		TotalAppointments:     len(in),
		CompletedAppointments: counts[clinic.StatusCompleted],
		ScheduledAppointments: counts[clinic.StatusScheduled],
		CancelledAppointments: counts[clinic.StatusCancelled],
		TotalRevenue:          RevenueTotal(in),
		NewPatients:           fresh,
		AverageRevenue:        AverageRevenue(in),
		Treatments:            GroupByTitle(in),
	}
}

// BillingRecord is a billed incident with its patient's details.
type BillingRecord struct {
	clinic.Incident
	PatientName    string `json:"patientName"`
	PatientContact string `json:"patientContact"`
}

// BillingRecords lists incidents that carry a cost, joined with their
// patient, filtered by term (patient name or title) and status, newest
// first. Incidents whose patient is gone are billed to "Unknown".
func BillingRecords(incidents []clinic.Incident, patients []clinic.Patient, term, status string) []BillingRecord {
	byID := make(map[string]clinic.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}
	billed := []clinic.Incident{}
	for _, i := range SortByDateDesc(incidents) {
		if i.Cost != nil {
			billed = append(billed, i)
		}
	}
	out := []BillingRecord{}
	for _, i := range billed {
		p, ok := byID[i.PatientID]
		name := p.Name
		if !ok {
			name = "Unknown"
		}
		if !MatchesStatus(i.Status, status) || !MatchesSearch(term, name, i.Title) {
			continue
		}
		out = append(out, BillingRecord{Incident: i, PatientName: name, PatientContact: p.Contact})
	}
	return out
}

// Billing is the headline billing figures.
type Billing struct {
	TotalRevenue  float64 `json:"totalRevenue"`
	PendingAmount float64 `json:"pendingAmount"`
	BilledCount   int     `json:"billedCount"`
	PaidCount     int     `json:"paidCount"`
}

// BillingSummary counts billed (cost present) and paid (billed and
// completed) incidents alongside revenue and pending totals.
func BillingSummary(incidents []clinic.Incident) Billing {
	b := Billing{TotalRevenue: RevenueTotal(incidents), PendingAmount: PendingTotal(incidents)}
	for _, i := range incidents {
		if i.Cost == nil {
			continue
		}
		b.BilledCount++
		if i.Status == clinic.StatusCompleted {
			b.PaidCount++
		}
	}
	return b
}

// AdminDashboard is the practice overview shown to administrators.
type AdminDashboard struct {
	TotalPatients     int               `json:"totalPatients"`
	TotalAppointments int               `json:"totalAppointments"`
	CompletedCount    int               `json:"completedCount"`
	PendingCount      int               `json:"pendingCount"`
	ScheduledCount    int               `json:"scheduledCount"`
	TotalRevenue      float64           `json:"totalRevenue"`
	TodayCount        int               `json:"todayCount"`
	Upcoming          []clinic.Incident `json:"upcoming"`
	TopPatients       []PatientActivity `json:"topPatients"`
}

// AdminOverview builds the admin dashboard: the next ten active
// appointments, today's count among them and the five busiest patients.
func AdminOverview(patients []clinic.Patient, incidents []clinic.Incident, now time.Time) AdminDashboard {
	counts := CountByStatus(incidents)
	upcoming := Upcoming(incidents, 10)
	return AdminDashboard{
		TotalPatients:     len(patients),
		TotalAppointments: len(incidents),
		CompletedCount:    counts[clinic.StatusCompleted],
		PendingCount:      counts[clinic.StatusPending],
		ScheduledCount:    counts[clinic.StatusScheduled],
		TotalRevenue:      RevenueTotal(incidents),
		TodayCount:        len(OnDay(upcoming, now)),
		Upcoming:          upcoming,
		TopPatients:       TopPatients(patients, incidents, 5),
	}
}

// PatientDashboard is the overview shown to a signed-in patient.
type PatientDashboard struct {
	Patient     clinic.Patient    `json:"patient"`
	Upcoming    []clinic.Incident `json:"upcoming"`
	Completed   []clinic.Incident `json:"completed"`
	TotalVisits int               `json:"totalVisits"`
	TotalCost   float64           `json:"totalCost"`
}

// PatientOverview builds a patient's dashboard from their own incidents.
func PatientOverview(p clinic.Patient, own []clinic.Incident) PatientDashboard {
	completed := []clinic.Incident{}
	for _, i := range SortByDateDesc(own) {
		if i.Status == clinic.StatusCompleted {
			completed = append(completed, i)
		}
	}
	return PatientDashboard{
		Patient:     p,
		Upcoming:    Upcoming(own, -1),
		Completed:   completed,
		TotalVisits: len(own),
		TotalCost:   RevenueTotal(own),
	}
}

// Appointments splits a patient's incidents into upcoming (Scheduled,
// Pending) and past (Completed, Cancelled), both newest first.
type Appointments struct {
	Upcoming []clinic.Incident `json:"upcoming"`
	Past     []clinic.Incident `json:"past"`
}

func SplitAppointments(own []clinic.Incident) Appointments {
	out := Appointments{Upcoming: []clinic.Incident{}, Past: []clinic.Incident{}}
	for _, i := range SortByDateDesc(own) {
		if i.Status.Active() {
			out.Upcoming = append(out.Upcoming, i)
		} else {
			out.Past = append(out.Past, i)
		}
	}
	return out
}

// PatientBilling is a patient's own billing statement.
type PatientBilling struct {
	Records     []clinic.Incident `json:"records"`
	TotalPaid   float64           `json:"totalPaid"`
	Pending     float64           `json:"pendingAmount"`
	BilledCount int               `json:"billedCount"`
	PaidCount   int               `json:"paidCount"`
}

// Statement lists a patient's billed incidents newest first with totals.
func Statement(own []clinic.Incident) PatientBilling {
	records := []clinic.Incident{}
	for _, i := range SortByDateDesc(own) {
		if i.Cost != nil {
			records = append(records, i)
		}
	}
	summary := BillingSummary(records)
	return PatientBilling{
		Records:     records,
		TotalPaid:   summary.TotalRevenue,
		Pending:     summary.PendingAmount,
		BilledCount: summary.BilledCount,
		PaidCount:   summary.PaidCount,
	}
}
