package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDefectRepository implements defect.Repository using GORM
type GormDefectRepository struct {
	db *gorm.DB
}

// NewGormDefectRepository creates a new GormDefectRepository
func NewGormDefectRepository(db *gorm.DB) *GormDefectRepository {
	return &GormDefectRepository{db: db}
}

// FindByID finds a defect by ID
func (r *GormDefectRepository) FindByID(ctx context.Context, id uuid.UUID) (*defect.Defect, error) {
	var model models.DefectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Defect")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists defects matching the filter
func (r *GormDefectRepository) FindAll(ctx context.Context, filter defect.Filter) ([]defect.Defect, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.DefectModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, DefectSortFields, "created_at"))
	if filter.PageSize > 0 {
		page := max(filter.Page, 1)
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var defectModels []models.DefectModel
	if err := query.Find(&defectModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainDefects(defectModels), total, nil
}

func (r *GormDefectRepository) applyFilter(query *gorm.DB, filter defect.Filter) *gorm.DB {
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.InspectionID != nil {
		query = query.Where("inspection_id = ?", *filter.InspectionID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RootCause != nil {
		query = query.Where("root_cause = ?", *filter.RootCause)
	}
	if filter.DetectedBy != nil {
		query = query.Where("detected_by = ?", *filter.DetectedBy)
	}
	return applyDateRange(query, "created_at", filter.Created)
}

// FindByInspection lists an inspection's defects, newest first
func (r *GormDefectRepository) FindByInspection(ctx context.Context, inspectionID uuid.UUID) ([]defect.Defect, error) {
	var defectModels []models.DefectModel
	if err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at DESC").
		Find(&defectModels).Error; err != nil {
		return nil, err
	}
	return toDomainDefects(defectModels), nil
}

// CountByInspection counts an inspection's defects
func (r *GormDefectRepository) CountByInspection(ctx context.Context, inspectionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DefectModel{}).
		Where("inspection_id = ?", inspectionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a defect
func (r *GormDefectRepository) Save(ctx context.Context, d *defect.Defect) error {
	return r.db.WithContext(ctx).Save(models.DefectModelFromDomain(d)).Error
}

// Delete deletes a defect
func (r *GormDefectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DefectModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Defect")
	}
	return nil
}

// DeleteByInspection removes an inspection's defects and returns their stored image keys
func (r *GormDefectRepository) DeleteByInspection(ctx context.Context, inspectionID uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DefectModel{}).
			Where("inspection_id = ? AND image_key <> ''", inspectionID).
			Pluck("image_key", &keys).Error; err != nil {
			return err
		}
		return tx.Where("inspection_id = ?", inspectionID).Delete(&models.DefectModel{}).Error
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// OpenDefectCount counts defects that are open or under investigation
func (r *GormDefectRepository) OpenDefectCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DefectModel{}).
		Where("status IN ?", []defect.Status{defect.StatusOpen, defect.StatusInvestigating}).
		Count(&count).Error
	return count, err
}

func toDomainDefects(defectModels []models.DefectModel) []defect.Defect {
	items := make([]defect.Defect, len(defectModels))
	for i := range defectModels {
		items[i] = *defectModels[i].ToDomain()
	}
	return items
}

var _ defect.Repository = (*GormDefectRepository)(nil)
