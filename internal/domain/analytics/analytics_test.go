package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilecare/dental/internal/domain/clinic"
)

func cost(v float64) *float64 { return &v }

func ids(incidents []clinic.Incident) []string {
	out := make([]string, 0, len(incidents))
	for _, i := range incidents {
		out = append(out, i.ID)
	}
	return out
}

func TestRevenueTotal_OnlyCompletedWithCost(t *testing.T) {
	incidents := []clinic.Incident{
		{ID: "a", Cost: cost(120), Status: clinic.StatusCompleted},
		{ID: "b", Cost: cost(800), Status: clinic.StatusPending},
		{ID: "c", Status: clinic.StatusCompleted},
	}
	assert.Equal(t, 120.0, RevenueTotal(incidents))
	assert.Equal(t, 800.0, PendingTotal(incidents))
	assert.Equal(t, 60.0, AverageRevenue(incidents))
	assert.Equal(t, 0.0, RevenueTotal(nil))
	assert.Equal(t, 0.0, AverageRevenue([]clinic.Incident{{Cost: cost(5), Status: clinic.StatusPending}}))
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus(clinic.SeedIncidents())
	assert.Equal(t, map[clinic.Status]int{
		clinic.StatusScheduled: 1,
		clinic.StatusPending:   1,
		clinic.StatusCompleted: 1,
		clinic.StatusCancelled: 0,
	}, counts)
}

func TestMonthWindows_FebruaryBucket(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	windows := MonthWindows(now, 2)
	require.Len(t, windows, 2)

	feb := windows[0]
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), feb.Start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC), feb.End)
	assert.Equal(t, "Feb 2025", feb.Label())

	incidents := []clinic.Incident{
		{ID: "jan", AppointmentDate: "2025-01-05T10:00:00"},
		{ID: "feb", AppointmentDate: "2025-02-14T10:00:00"},
		{ID: "mar", AppointmentDate: "2025-03-01T00:00:00"},
	}
	assert.Equal(t, []string{"feb"}, ids(InRange(incidents, feb.Start, feb.End)))
}

func TestMonthWindows_CrossesYear(t *testing.T) {
	windows := MonthWindows(time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC), 3)
	labels := []string{}
	for _, w := range windows {
		labels = append(labels, w.Label())
	}
	assert.Equal(t, []string{"Nov 2024", "Dec 2024", "Jan 2025"}, labels)
	assert.Empty(t, MonthWindows(time.Now(), 0))
}

func TestInRange_Inclusive(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	incidents := []clinic.Incident{
		{ID: "start", AppointmentDate: "2025-02-01T00:00:00"},
		{ID: "end", AppointmentDate: "2025-02-01T10:00:00"},
		{ID: "after", AppointmentDate: "2025-02-01T10:00:01"},
		{ID: "bad", AppointmentDate: "soon"},
	}
	assert.Equal(t, []string{"start", "end"}, ids(InRange(incidents, start, end)))
}

func TestMonthlyTrend(t *testing.T) {
	now := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	incidents := []clinic.Incident{
		{AppointmentDate: "2025-01-10T09:00:00", Status: clinic.StatusCompleted, Cost: cost(100)},
		{AppointmentDate: "2025-01-11T09:00:00", Status: clinic.StatusScheduled, Cost: cost(50)},
		{AppointmentDate: "2025-02-02T09:00:00", Status: clinic.StatusCompleted, Cost: cost(30)},
	}
	trend := MonthlyTrend(incidents, now, 2)
	assert.Equal(t, []MonthStats{
		{Month: "Jan 2025", Appointments: 2, Completed: 1, Revenue: 100},
		{Month: "Feb 2025", Appointments: 1, Completed: 1, Revenue: 30},
	}, trend)
}

func TestGroupByTitle_OrdersByRevenueThenTitle(t *testing.T) {
	incidents := []clinic.Incident{
		{Title: "Whitening", Status: clinic.StatusCompleted, Cost: cost(200)},
		{Title: "Checkup", Status: clinic.StatusCompleted, Cost: cost(50)},
		{Title: "Checkup", Status: clinic.StatusPending, Cost: cost(50)},
		{Title: "Braces"},
		{Title: "Aligners"},
	}
	groups := GroupByTitle(incidents)
	assert.Equal(t, []TreatmentStats{
		{Title: "Whitening", Count: 1, Revenue: 200},
		{Title: "Checkup", Count: 2, Revenue: 50},
		{Title: "Aligners", Count: 1, Revenue: 0},
		{Title: "Braces", Count: 1, Revenue: 0},
	}, groups)
	assert.Len(t, TopTreatments(incidents, 2), 2)
	assert.Len(t, TopTreatments(incidents, 10), 4)
}

func TestMatchesSearch(t *testing.T) {
	assert.True(t, MatchesSearch("root", "Root Canal"))
	assert.True(t, MatchesSearch("ROUT", "Routine Checkup"))
	assert.True(t, MatchesSearch("ro", "Routine Checkup"))
	assert.False(t, MatchesSearch("xyz", "Root Canal", "Routine Checkup"))
	assert.True(t, MatchesSearch("  ", "anything"))
	assert.False(t, MatchesSearch("a"))
}

func TestSearchIncidents(t *testing.T) {
	incidents := clinic.SeedIncidents()
	patients := clinic.SeedPatients()

	assert.Equal(t, []string{"i3"}, ids(SearchIncidents(incidents, patients, "root")))
	assert.Equal(t, []string{"i1", "i3"}, ids(SearchIncidents(incidents, patients, "ro")))
	assert.Empty(t, SearchIncidents(incidents, patients, "xyz"))
	assert.Equal(t, []string{"i3"}, ids(SearchIncidents(incidents, patients, "jane")))
	assert.Len(t, SearchIncidents(incidents, patients, ""), 3)
}

func TestSearchPatients(t *testing.T) {
	patients := clinic.SeedPatients()
	assert.Len(t, SearchPatients(patients, "smilecare.pro"), 2)

	found := SearchPatients(patients, "0987")
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)
	assert.Empty(t, SearchPatients(patients, "nobody"))
}

func TestFilterStatus(t *testing.T) {
	incidents := clinic.SeedIncidents()
	assert.Equal(t, []string{"i2"}, ids(FilterStatus(incidents, "scheduled")))
	assert.Equal(t, []string{"i3"}, ids(FilterStatus(incidents, "Pending")))
	assert.Len(t, FilterStatus(incidents, "all"), 3)
	assert.Len(t, FilterStatus(incidents, ""), 3)
}

func TestSortByDate(t *testing.T) {
	incidents := []clinic.Incident{
		{ID: "bad", AppointmentDate: ""},
		{ID: "mid", AppointmentDate: "2025-01-18T11:00:00"},
		{ID: "late", AppointmentDate: "2025-01-20T14:00:00"},
		{ID: "early", AppointmentDate: "2025-01-15"},
	}
	assert.Equal(t, []string{"early", "mid", "late", "bad"}, ids(SortByDateAsc(incidents)))
	assert.Equal(t, []string{"late", "mid", "early", "bad"}, ids(SortByDateDesc(incidents)))
	assert.Equal(t, "bad", incidents[0].ID, "input must not be reordered")
}

func TestUpcoming(t *testing.T) {
	incidents := clinic.SeedIncidents()
	assert.Equal(t, []string{"i3", "i2"}, ids(Upcoming(incidents, 10)))
	assert.Equal(t, []string{"i3"}, ids(Upcoming(incidents, 1)))
}

func TestOnDay(t *testing.T) {
	incidents := clinic.SeedIncidents()
	assert.Equal(t, []string{"i3"}, ids(OnDay(incidents, time.Date(2025, 1, 18, 15, 0, 0, 0, time.UTC))))
	assert.Empty(t, OnDay(incidents, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)), "completed visits are not shown")
}

func TestTopPatients(t *testing.T) {
	top := TopPatients(clinic.SeedPatients(), clinic.SeedIncidents(), 5)
	require.Len(t, top, 2)
	assert.Equal(t, "p1", top[0].ID)
	assert.Equal(t, 2, top[0].AppointmentCount)
	assert.Equal(t, 1, top[1].AppointmentCount)
}

func TestReportRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	w, kind := ReportRange(RangeLastMonth, now)
	assert.Equal(t, RangeLastMonth, kind)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 28, w.End.Day())

	w, _ = ReportRange(RangeLast3Months, now)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.March, w.End.Month())

	w, _ = ReportRange(RangeLast6Months, now)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), w.Start)

	w, kind = ReportRange("fortnight", now)
	assert.Equal(t, RangeThisMonth, kind)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestTrendMonths(t *testing.T) {
	assert.Equal(t, 1, TrendMonths("1month"))
	assert.Equal(t, 3, TrendMonths("3months"))
	assert.Equal(t, 12, TrendMonths("1year"))
	assert.Equal(t, 6, TrendMonths(""))
}

func TestReport(t *testing.T) {
	now := time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)
	patients := append(clinic.SeedPatients(), clinic.Patient{ID: "p3", CreatedAt: "2025-01-02T09:00:00Z"})

	r := Report(patients, clinic.SeedIncidents(), RangeThisMonth, now)
	assert.Equal(t, 3, r.TotalAppointments)
	assert.Equal(t, 1, r.CompletedAppointments)
	assert.Equal(t, 1, r.ScheduledAppointments)
	assert.Equal(t, 0, r.CancelledAppointments)
	assert.Equal(t, 120.0, r.TotalRevenue)
	assert.Equal(t, 1, r.NewPatients)

	r = Report(patients, clinic.SeedIncidents(), RangeLastMonth, now)
	assert.Zero(t, r.TotalAppointments)
	assert.Zero(t, r.NewPatients)
}

func TestBillingRecords(t *testing.T) {
	incidents := append(clinic.SeedIncidents(), clinic.Incident{
		ID: "orphan", PatientID: "gone", Title: "Extraction",
		AppointmentDate: "2025-01-01T09:00:00", Cost: cost(90), Status: clinic.StatusCompleted,
	})
	patients := clinic.SeedPatients()

	all := BillingRecords(incidents, patients, "", "all")
	require.Len(t, all, 3)
	assert.Equal(t, "i3", all[0].ID)
	assert.Equal(t, "Jane Smith", all[0].PatientName)
	assert.Equal(t, "i1", all[1].ID)
	assert.Equal(t, "Unknown", all[2].PatientName)

	byName := BillingRecords(incidents, patients, "john", "all")
	require.Len(t, byName, 1)
	assert.Equal(t, "i1", byName[0].ID)

	completed := BillingRecords(incidents, patients, "", "completed")
	assert.Len(t, completed, 2)
}

func TestBillingSummary(t *testing.T) {
	b := BillingSummary(clinic.SeedIncidents())
	assert.Equal(t, Billing{TotalRevenue: 120, PendingAmount: 800, BilledCount: 2, PaidCount: 1}, b)
}

func TestPatientHistory(t *testing.T) {
	incidents := clinic.SeedIncidents()
	assert.Equal(t, []string{"i2", "i1"}, ids(PatientHistory(incidents, "p1", "", "all")))
	assert.Equal(t, []string{"i1"}, ids(PatientHistory(incidents, "p1", "fluoride", "")))
	assert.Equal(t, []string{"i2"}, ids(PatientHistory(incidents, "p1", "", "scheduled")))
	assert.Empty(t, PatientHistory(incidents, "p1", "root", "all"))
}

func TestAdminOverview(t *testing.T) {
	now := time.Date(2025, 1, 18, 8, 0, 0, 0, time.UTC)
	d := AdminOverview(clinic.SeedPatients(), clinic.SeedIncidents(), now)
	assert.Equal(t, 2, d.TotalPatients)
	assert.Equal(t, 3, d.TotalAppointments)
	assert.Equal(t, 120.0, d.TotalRevenue)
	assert.Equal(t, 1, d.TodayCount)
	assert.Equal(t, []string{"i3", "i2"}, ids(d.Upcoming))
	assert.Len(t, d.TopPatients, 2)
}

func TestPatientViews(t *testing.T) {
	p := clinic.SeedPatients()[0]
	own := []clinic.Incident{}
	for _, i := range clinic.SeedIncidents() {
		if i.PatientID == p.ID {
			own = append(own, i)
		}
	}

	d := PatientOverview(p, own)
	assert.Equal(t, []string{"i2"}, ids(d.Upcoming))
	assert.Equal(t, []string{"i1"}, ids(d.Completed))
	assert.Equal(t, 120.0, d.TotalCost)

	split := SplitAppointments(own)
	assert.Equal(t, []string{"i2"}, ids(split.Upcoming))
	assert.Equal(t, []string{"i1"}, ids(split.Past))

	st := Statement(own)
	assert.Equal(t, []string{"i1"}, ids(st.Records))
	assert.Equal(t, 120.0, st.TotalPaid)
	assert.Zero(t, st.Pending)
}
