package analytics

import (
	"sort"
	"time"
)

// Period is the window of the inspection status report
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod returns the named period, falling back to week
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s)
	}
	return PeriodWeek
}

// Start returns the beginning of the window containing now.
// Weeks start on Sunday.
func (p Period) Start(now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case PeriodDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	}
}

// BucketLayout is the time layout used to group rows in the window
func (p Period) BucketLayout() string {
	if p == PeriodYear {
		return "2006-01"
	}
	return "2006-01-02"
}

// StatusCount is the number of inspections in a status
type StatusCount struct {
	Status string
	Count  int64
}

// StatusBucket groups the status counts of one day or month
type StatusBucket struct {
	Date       string
	Statuses   []StatusCount
	TotalCount int64
}

// StatusReport is the inspection status breakdown for a period
type StatusReport struct {
	Period         Period
	StatusCounts   map[string]int64
	Total          int64
	DailyBreakdown []StatusBucket
}

// BuildStatusReport groups inspections in the window by bucket and status.
// Pending, completed and failed are always present in StatusCounts.
func BuildStatusReport(p Period, facts []InspectionFact) StatusReport {
	r := StatusReport{
		Period:       p,
		StatusCounts: map[string]int64{"pending": 0, "completed": 0, "failed": 0},
	}
	layout := p.BucketLayout()
	buckets := make(map[string]map[string]int64)
	for _, f := range facts {
		if _, known := r.StatusCounts[f.Status]; known {
			r.StatusCounts[f.Status]++
			r.Total++
		}
		label := f.Date.Format(layout)
		if buckets[label] == nil {
			buckets[label] = make(map[string]int64)
		}
		buckets[label][f.Status]++
	}

	r.DailyBreakdown = make([]StatusBucket, 0, len(buckets))
	for label, statuses := range buckets {
		b := StatusBucket{Date: label}
		for status, n := range statuses {
			b.Statuses = append(b.Statuses, StatusCount{Status: status, Count: n})
			b.TotalCount += n
		}
		sort.Slice(b.Statuses, func(i, j int) bool { return b.Statuses[i].Status < b.Statuses[j].Status })
		r.DailyBreakdown = append(r.DailyBreakdown, b)
	}
	sort.Slice(r.DailyBreakdown, func(i, j int) bool {
		return r.DailyBreakdown[i].Date < r.DailyBreakdown[j].Date
	})
	return r
}
