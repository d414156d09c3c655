package attendance

import (
	"math"
	"time"
)

// Status of one recorded class day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
)

// OverallStats summarizes a student's subject list. Always derived from the
// current subjects; never stored, so it cannot drift from the raw counts.
type OverallStats struct {
	TotalClasses    int `json:"total_classes"`
	AttendedClasses int `json:"attended_classes"`
	Percentage      int `json:"percentage"`
}

// Overall sums class counts across subjects. Percentage is 0 when no classes
// have been held yet.
func Overall(subjects []Subject) OverallStats {
	var s OverallStats
	for _, sub := range subjects {
		s.TotalClasses += sub.TotalClasses
		s.AttendedClasses += sub.AttendedClasses
	}
	if s.TotalClasses > 0 {
		s.Percentage = roundPct(s.AttendedClasses, s.TotalClasses)
	}
	return s
}

// Compliance returns the subject's attended/total percentage. ok is false
// when no classes have been held, in which case callers must render "N/A"
// rather than 0%.
func Compliance(s Subject) (pct int, ok bool) {
	if s.TotalClasses <= 0 {
		return 0, false
	}
	return roundPct(s.AttendedClasses, s.TotalClasses), true
}

// BelowTarget reports whether the subject has a defined compliance below its
// target. Subjects with no classes yet are never flagged.
func BelowTarget(s Subject) bool {
	pct, ok := Compliance(s)
	return ok && pct < s.TargetAttendance
}

// TodayMarking maps subject id to today's recorded status. A subject absent
// from the map has not been marked yet, which is distinct from StatusAbsent.
func TodayMarking(records []Record, today time.Time) map[string]Status {
	marked := make(map[string]Status)
	for _, r := range records {
		if sameDay(r.Date, today) {
			marked[r.SubjectID] = r.Status
		}
	}
	return marked
}

// TrendPoint is one calendar day in the attendance trend.
type TrendPoint struct {
	Date       time.Time `json:"date"`
	Attended   int       `json:"attended"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
}

// Trend builds one point per calendar day for the last windowDays days,
// inclusive of today, oldest first. Recomputed fresh on every call.
func Trend(records []Record, windowDays int, today time.Time) []TrendPoint {
	if windowDays <= 0 {
		windowDays = 7
	}
	points := make([]TrendPoint, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		p := TrendPoint{Date: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)}
		for _, r := range records {
			if !sameDay(r.Date, day) {
				continue
			}
			p.Total++
			if r.Status == StatusPresent {
				p.Attended++
			}
		}
		if p.Total > 0 {
			p.Percentage = 100 * float64(p.Attended) / float64(p.Total)
		}
		points = append(points, p)
	}
	return points
}

func roundPct(attended, total int) int {
	return int(math.Round(100 * float64(attended) / float64(total)))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
