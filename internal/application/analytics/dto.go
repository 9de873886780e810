package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DashboardQuery narrows the dashboard. Dates and the product are parsed by the handler.
type DashboardQuery struct {
	From      time.Time
	To        time.Time
	ProductID *uuid.UUID
}

func (q DashboardQuery) toDomain() analytics.Query {
	return analytics.Query{Range: shared.DateRange{From: q.From, To: q.To}, ProductID: q.ProductID}
}

// OverallMetricsResponse totals every inspection in scope
type OverallMetricsResponse struct {
	TotalInspections    int64  `json:"total_inspections"`
	TotalItemsInspected int64  `json:"total_items_inspected"`
	TotalDefectsFound   int64  `json:"total_defects_found"`
	OverallDefectRate   string `json:"overall_defect_rate"`
}

// CountResponse is one labelled tally
type CountResponse struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

// TrendResponse is one day or month of inspection activity
type TrendResponse struct {
	Period          string  `json:"date"`
	InspectionCount int64   `json:"inspection_count"`
	DefectCount     int64   `json:"defect_count"`
	TotalInspected  int64   `json:"total_inspected"`
	DefectRate      float64 `json:"defect_rate"`
}

// MonthlyTrendResponse is one month of inspection activity
type MonthlyTrendResponse struct {
	Period          string  `json:"period"`
	InspectionCount int64   `json:"inspection_count"`
	DefectCount     int64   `json:"defect_count"`
	TotalInspected  int64   `json:"total_inspected"`
	DefectRate      float64 `json:"defect_rate"`
}

// ProductRateResponse is a product's aggregated defect rate
type ProductRateResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	TotalInspected int64     `json:"total_inspected"`
	TotalDefects   int64     `json:"total_defects"`
	DefectRate     float64   `json:"defect_rate"`
}

// InspectorPerformanceResponse is an inspector's workload and findings
type InspectorPerformanceResponse struct {
	InspectorID           uuid.UUID `json:"inspector_id"`
	InspectorName         string    `json:"inspector_name"`
	InspectorDepartment   string    `json:"inspector_department"`
	InspectionCount       int64     `json:"inspection_count"`
	TotalInspected        int64     `json:"total_inspected"`
	TotalDefects          int64     `json:"total_defects"`
	DefectRate            float64   `json:"defect_rate"`
	AverageInspectionSize float64   `json:"average_inspection_size"`
}

// AIMetricsResponse summarizes AI detections over the dashboard scope
type AIMetricsResponse struct {
	TotalAIDetections int64  `json:"total_ai_detections"`
	AvgAIConfidence   string `json:"avg_ai_confidence"`
}

// DashboardResponse is the analytics dashboard payload
type DashboardResponse struct {
	OverallMetrics       OverallMetricsResponse         `json:"overall_metrics"`
	DefectsByType        []CountResponse                `json:"defects_by_type"`
	DefectsBySeverity    []CountResponse                `json:"defects_by_severity"`
	DefectTrend          []TrendResponse                `json:"defect_trend"`
	ProductDefectRates   []ProductRateResponse          `json:"product_defect_rates"`
	InspectorPerformance []InspectorPerformanceResponse `json:"inspector_performance"`
	MonthlyTrend         []MonthlyTrendResponse         `json:"monthly_trend"`
	AIMetrics            AIMetricsResponse              `json:"ai_metrics"`
}

// StatusCountResponse is the number of inspections in a status
type StatusCountResponse struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StatusBucketResponse is one day or month of the status breakdown
type StatusBucketResponse struct {
	Date       string                `json:"date"`
	Statuses   []StatusCountResponse `json:"statuses"`
	TotalCount int64                 `json:"total_count"`
}

// InspectionStatusResponse is the inspection status report for a period
type InspectionStatusResponse struct {
	Period         string                 `json:"period"`
	StatusCounts   map[string]int64       `json:"status_counts"`
	Total          int64                  `json:"total"`
	DailyBreakdown []StatusBucketResponse `json:"daily_breakdown"`
}

// Report formats
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// ReportDocument is the data a rendered dashboard report shows
type ReportDocument struct {
	Title       string
	GeneratedAt time.Time
	From        time.Time
	To          time.Time
	ProductName string
	Dashboard   *DashboardResponse
}

// RenderedReport is a report ready to send
type RenderedReport struct {
	ContentType string
	Filename    string
	Body        []byte
}

func toDashboard(
	overall analytics.OverallMetrics,
	byType, bySeverity []analytics.Count,
	daily, monthly []analytics.TrendPoint,
	products []analytics.ProductRate,
	inspectors []analytics.InspectorPerformance,
	ai analytics.AIMetrics,
) *DashboardResponse {
	d := &DashboardResponse{
		OverallMetrics: OverallMetricsResponse{
			TotalInspections:    overall.TotalInspections,
			TotalItemsInspected: overall.TotalItemsInspected,
			TotalDefectsFound:   overall.TotalDefectsFound,
			OverallDefectRate:   overall.OverallDefectRate.StringFixed(2),
		},
		DefectsByType:        toCounts(byType),
		DefectsBySeverity:    toCounts(bySeverity),
		DefectTrend:          make([]TrendResponse, len(daily)),
		ProductDefectRates:   make([]ProductRateResponse, len(products)),
		InspectorPerformance: make([]InspectorPerformanceResponse, len(inspectors)),
		MonthlyTrend:         make([]MonthlyTrendResponse, len(monthly)),
		AIMetrics: AIMetricsResponse{
			TotalAIDetections: ai.TotalDetections,
			AvgAIConfidence:   ai.AvgConfidence.StringFixed(2),
		},
	}
	for i, p := range daily {
		d.DefectTrend[i] = TrendResponse{
			Period:          p.Period,
			InspectionCount: p.InspectionCount,
			DefectCount:     p.DefectCount,
			TotalInspected:  p.TotalInspected,
			DefectRate:      round2(p.DefectRate),
		}
	}
	for i, p := range monthly {
		d.MonthlyTrend[i] = MonthlyTrendResponse{
			Period:          p.Period,
			InspectionCount: p.InspectionCount,
			DefectCount:     p.DefectCount,
			TotalInspected:  p.TotalInspected,
			DefectRate:      round2(p.DefectRate),
		}
	}
	for i, p := range products {
		d.ProductDefectRates[i] = ProductRateResponse{
			ProductID:      p.ProductID,
			ProductName:    p.ProductName,
			TotalInspected: p.TotalInspected,
			TotalDefects:   p.TotalDefects,
			DefectRate:     round2(p.DefectRate),
		}
	}
	for i, p := range inspectors {
		d.InspectorPerformance[i] = InspectorPerformanceResponse{
			InspectorID:           p.InspectorID,
			InspectorName:         p.InspectorName,
			InspectorDepartment:   p.InspectorDepartment,
			InspectionCount:       p.InspectionCount,
			TotalInspected:        p.TotalInspected,
			TotalDefects:          p.TotalDefects,
			DefectRate:            round2(p.DefectRate),
			AverageInspectionSize: round2(p.AverageInspectionSize),
		}
	}
	return d
}

func toStatusReport(r analytics.StatusReport) *InspectionStatusResponse {
	out := &InspectionStatusResponse{
		Period:         string(r.Period),
		StatusCounts:   r.StatusCounts,
		Total:          r.Total,
		DailyBreakdown: make([]StatusBucketResponse, len(r.DailyBreakdown)),
	}
	for i, b := range r.DailyBreakdown {
		statuses := make([]StatusCountResponse, len(b.Statuses))
		for j, s := range b.Statuses {
			statuses[j] = StatusCountResponse{Status: s.Status, Count: s.Count}
		}
		out.DailyBreakdown[i] = StatusBucketResponse{Date: b.Date, Statuses: statuses, TotalCount: b.TotalCount}
	}
	return out
}

func toCounts(counts []analytics.Count) []CountResponse {
	out := make([]CountResponse, len(counts))
	for i, c := range counts {
		out[i] = CountResponse{ID: c.ID, Count: c.Count}
	}
	return out
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
