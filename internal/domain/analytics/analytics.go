// Package analytics aggregates inspection and defect facts into dashboard metrics.
// All functions are pure; loading the facts is the repository's job.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InspectionFact is the slice of an inspection the metrics need
type InspectionFact struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	InspectorID    uuid.UUID
	Date           time.Time
	Status         string
	DefectsFound   int64
	TotalInspected int64
}

// DefectFact is the slice of a defect the metrics need
type DefectFact struct {
	ProductID    uuid.UUID
	Type         string
	Severity     string
	RootCause    string
	Status       string
	DetectedBy   string
	AIConfidence float64
	CreatedAt    time.Time
}

// Query narrows the facts that feed the dashboard
type Query struct {
	Range     shared.DateRange
	ProductID *uuid.UUID
}

// CacheKey renders the query as a stable cache key
func (q Query) CacheKey() string {
	key := "analytics:quality"
	if !q.Range.From.IsZero() {
		key += ":from=" + q.Range.From.UTC().Format(time.RFC3339)
	}
	if !q.Range.To.IsZero() {
		key += ":to=" + q.Range.To.UTC().Format(time.RFC3339)
	}
	if q.ProductID != nil {
		key += ":product=" + q.ProductID.String()
	}
	return key
}

// Rate returns part/whole*100, zero when whole is not positive
func Rate(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(whole))
}

// OverallMetrics summarizes every inspection in scope
type OverallMetrics struct {
	TotalInspections    int64
	TotalItemsInspected int64
	TotalDefectsFound   int64
	OverallDefectRate   decimal.Decimal
}

// Overall totals the inspections
func Overall(facts []InspectionFact) OverallMetrics {
	m := OverallMetrics{TotalInspections: int64(len(facts))}
	for _, f := range facts {
		m.TotalItemsInspected += f.TotalInspected
		m.TotalDefectsFound += f.DefectsFound
	}
	m.OverallDefectRate = Rate(m.TotalDefectsFound, m.TotalItemsInspected)
	return m
}

// Count is a labelled tally
type Count struct {
	ID    string
	Count int64
}

// CountBy tallies defects by the given key, largest first. Ties sort by label.
func CountBy(facts []DefectFact, key func(DefectFact) string) []Count {
	tally := make(map[string]int64)
	for _, f := range facts {
		tally[key(f)]++
	}
	out := make([]Count, 0, len(tally))
	for id, n := range tally {
		out = append(out, Count{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ByType keys defects by type
func ByType(f DefectFact) string { return f.Type }

// BySeverity keys defects by severity
func BySeverity(f DefectFact) string { return f.Severity }

// ByRootCause keys defects by root cause
func ByRootCause(f DefectFact) string { return f.RootCause }

// ByStatus keys defects by status
func ByStatus(f DefectFact) string { return f.Status }

// TrendPoint is one bucket of the inspection trend
type TrendPoint struct {
	Period          string
	InspectionCount int64
	DefectCount     int64
	TotalInspected  int64
	DefectRate      decimal.Decimal
}

// DailyTrend buckets inspections by calendar day (YYYY-MM-DD), oldest first
func DailyTrend(facts []InspectionFact) []TrendPoint {
	return trend(facts, func(t time.Time) (string, time.Time) {
		y, m, d := t.Date()
		return t.Format("2006-01-02"), time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	})
}

// MonthlyTrend buckets inspections by month. Labels are "YYYY-M", oldest first.
func MonthlyTrend(facts []InspectionFact) []TrendPoint {
	return trend(facts, func(t time.Time) (string, time.Time) {
		return fmt.Sprintf("%d-%d", t.Year(), int(t.Month())), time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	})
}

func trend(facts []InspectionFact, bucket func(time.Time) (string, time.Time)) []TrendPoint {
	points := make(map[string]*TrendPoint)
	order := make(map[string]time.Time)
	for _, f := range facts {
		label, at := bucket(f.Date)
		p, ok := points[label]
		if !ok {
			p = &TrendPoint{Period: label}
			points[label] = p
			order[label] = at
		}
		p.InspectionCount++
		p.DefectCount += f.DefectsFound
		p.TotalInspected += f.TotalInspected
	}
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		p.DefectRate = Rate(p.DefectCount, p.TotalInspected)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return order[out[i].Period].Before(order[out[j].Period])
	})
	return out
}

// ProductRate is a product's aggregated defect rate
type ProductRate struct {
	ProductID      uuid.UUID
	ProductName    string
	TotalInspected int64
	TotalDefects   int64
	DefectRate     decimal.Decimal
}

// TopProductRates returns up to limit products with the highest defect rate.
// Products missing from names are skipped.
func TopProductRates(facts []InspectionFact, names map[uuid.UUID]string, limit int) []ProductRate {
	acc := make(map[uuid.UUID]*ProductRate)
	for _, f := range facts {
		name, ok := names[f.ProductID]
		if !ok {
			continue
		}
		r, ok := acc[f.ProductID]
		if !ok {
			r = &ProductRate{ProductID: f.ProductID, ProductName: name}
			acc[f.ProductID] = r
		}
		r.TotalInspected += f.TotalInspected
		r.TotalDefects += f.DefectsFound
	}
	out := make([]ProductRate, 0, len(acc))
	for _, r := range acc {
		r.DefectRate = Rate(r.TotalDefects, r.TotalInspected)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].DefectRate.Cmp(out[j].DefectRate); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Inspector identifies who performed inspections
type Inspector struct {
	Name       string
	Department string
}

// InspectorPerformance is an inspector's aggregated workload and findings
type InspectorPerformance struct {
	InspectorID           uuid.UUID
	InspectorName         string
	InspectorDepartment   string
	InspectionCount       int64
	TotalInspected        int64
	TotalDefects          int64
	DefectRate            decimal.Decimal
	AverageInspectionSize decimal.Decimal
}

// InspectorPerformances aggregates per inspector, busiest first.
// Inspectors missing from people are skipped.
func InspectorPerformances(facts []InspectionFact, people map[uuid.UUID]Inspector) []InspectorPerformance {
	acc := make(map[uuid.UUID]*InspectorPerformance)
	for _, f := range facts {
		who, ok := people[f.InspectorID]
		if !ok {
			continue
		}
		p, ok := acc[f.InspectorID]
		if !ok {
			p = &InspectorPerformance{
				InspectorID:         f.InspectorID,
				InspectorName:       who.Name,
				InspectorDepartment: who.Department,
			}
			acc[f.InspectorID] = p
		}
		p.InspectionCount++
		p.TotalInspected += f.TotalInspected
		p.TotalDefects += f.DefectsFound
	}
	out := make([]InspectorPerformance, 0, len(acc))
	for _, p := range acc {
		p.DefectRate = Rate(p.TotalDefects, p.TotalInspected)
		p.AverageInspectionSize = decimal.NewFromInt(p.TotalInspected).Div(decimal.NewFromInt(p.InspectionCount))
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InspectionCount != out[j].InspectionCount {
			return out[i].InspectionCount > out[j].InspectionCount
		}
		return out[i].InspectorName < out[j].InspectorName
	})
	return out
}

// AIMetrics summarizes AI-sourced defects
type AIMetrics struct {
	TotalDetections int64
	AvgConfidence   decimal.Decimal
	MinConfidence   decimal.Decimal
	MaxConfidence   decimal.Decimal
}

// AI summarizes the defects detected by the classifier
func AI(facts []DefectFact) AIMetrics {
	var m AIMetrics
	sum := decimal.Zero
	for _, f := range facts {
		if f.DetectedBy != "ai" {
			continue
		}
		c := decimal.NewFromFloat(f.AIConfidence)
		if m.TotalDetections == 0 || c.LessThan(m.MinConfidence) {
			m.MinConfidence = c
		}
		if m.TotalDetections == 0 || c.GreaterThan(m.MaxConfidence) {
			m.MaxConfidence = c
		}
		sum = sum.Add(c)
		m.TotalDetections++
	}
	if m.TotalDetections > 0 {
		m.AvgConfidence = sum.Div(decimal.NewFromInt(m.TotalDetections))
	}
	return m
}

// DayCount is a per-day tally
type DayCount struct {
	Date  string
	Count int64
}

// DefectsPerDay counts defects by creation day, oldest first
func DefectsPerDay(facts []DefectFact) []DayCount {
	tally := make(map[string]int64)
	for _, f := range facts {
		tally[f.CreatedAt.Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(tally))
	for d, n := range tally {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SeverityTrendPoint is a per-day tally of defects by severity
type SeverityTrendPoint struct {
	Date     string
	Count    int64
	Critical int64
	Major    int64
	Minor    int64
}

// SeverityTrend counts defects per creation day split by severity, oldest first
func SeverityTrend(facts []DefectFact) []SeverityTrendPoint {
	acc := make(map[string]*SeverityTrendPoint)
	for _, f := range facts {
		day := f.CreatedAt.Format("2006-01-02")
		p, ok := acc[day]
		if !ok {
			p = &SeverityTrendPoint{Date: day}
			acc[day] = p
		}
		p.Count++
		switch f.Severity {
		case "critical":
			p.Critical++
		case "major":
			p.Major++
		case "minor":
			p.Minor++
		}
	}
	out := make([]SeverityTrendPoint, 0, len(acc))
	for _, p := range acc {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
