package persistence

import (
	"context"
	"time"

	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAnalyticsRepository reads aggregation facts from inspections and defects
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewGormAnalyticsRepository creates a new GormAnalyticsRepository
func NewGormAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

const inspectionFactColumns = "id, product_id, inspector_id, date, status, defects_found, total_inspected"

// InspectionFacts returns inspections dated within the query
func (r *GormAnalyticsRepository) InspectionFacts(ctx context.Context, q analytics.Query) ([]analytics.InspectionFact, error) {
	query := r.db.WithContext(ctx).Model(&models.InspectionModel{}).Select(inspectionFactColumns)
	query = applyDateRange(query, "date", q.Range)
	if q.ProductID != nil {
		query = query.Where("product_id = ?", *q.ProductID)
	}
	return scanInspectionFacts(query.Order("date ASC"))
}

// InspectionFactsSince returns inspections dated at or after since
func (r *GormAnalyticsRepository) InspectionFactsSince(ctx context.Context, since time.Time) ([]analytics.InspectionFact, error) {
	query := r.db.WithContext(ctx).Model(&models.InspectionModel{}).
		Select(inspectionFactColumns).
		Where("date >= ?", since).
		Order("date ASC")
	return scanInspectionFacts(query)
}

func scanInspectionFacts(query *gorm.DB) ([]analytics.InspectionFact, error) {
	var rows []models.InspectionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	facts := make([]analytics.InspectionFact, len(rows))
	for i, row := range rows {
		facts[i] = analytics.InspectionFact{
			ID:             row.ID,
			ProductID:      row.ProductID,
			InspectorID:    row.InspectorID,
			Date:           row.Date,
			Status:         string(row.Status),
			DefectsFound:   int64(row.DefectsFound),
			TotalInspected: int64(row.TotalInspected),
		}
	}
	return facts, nil
}

const defectFactColumns = "product_id, type, severity, root_cause, status, detected_by, ai_confidence, created_at"

// DefectFacts returns defects created within the query
func (r *GormAnalyticsRepository) DefectFacts(ctx context.Context, q analytics.Query) ([]analytics.DefectFact, error) {
	query := r.db.WithContext(ctx).Model(&models.DefectModel{}).Select(defectFactColumns)
	query = applyDateRange(query, "created_at", q.Range)
	if q.ProductID != nil {
		query = query.Where("product_id = ?", *q.ProductID)
	}
	return scanDefectFacts(query.Order("created_at ASC"))
}

// AIDefectFactsSince returns AI-detected defects created at or after since
func (r *GormAnalyticsRepository) AIDefectFactsSince(ctx context.Context, since time.Time) ([]analytics.DefectFact, error) {
	query := r.db.WithContext(ctx).Model(&models.DefectModel{}).
		Select(defectFactColumns).
		Where("detected_by = ? AND created_at >= ?", defect.DetectedByAI, since).
		Order("created_at ASC")
	return scanDefectFacts(query)
}

func scanDefectFacts(query *gorm.DB) ([]analytics.DefectFact, error) {
	var rows []models.DefectModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	facts := make([]analytics.DefectFact, len(rows))
	for i, row := range rows {
		facts[i] = analytics.DefectFact{
			ProductID:    row.ProductID,
			Type:         string(row.Type),
			Severity:     string(row.Severity),
			RootCause:    string(row.RootCause),
			Status:       string(row.Status),
			DetectedBy:   string(row.DetectedBy),
			AIConfidence: row.AIConfidence,
			CreatedAt:    row.CreatedAt,
		}
	}
	return facts, nil
}

var _ analytics.Repository = (*GormAnalyticsRepository)(nil)
