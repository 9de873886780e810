package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInspectionRepository implements inspection.Repository using GORM
type GormInspectionRepository struct {
	db *gorm.DB
}

// NewGormInspectionRepository creates a new GormInspectionRepository
func NewGormInspectionRepository(db *gorm.DB) *GormInspectionRepository {
	return &GormInspectionRepository{db: db}
}

// FindByID finds an inspection by ID
func (r *GormInspectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inspection.Inspection, error) {
	var model models.InspectionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inspection.ErrInspectionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads inspections by ID
func (r *GormInspectionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inspection.Inspection, error) {
	if len(ids) == 0 {
		return []inspection.Inspection{}, nil
	}
	var inspectionModels []models.InspectionModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&inspectionModels).Error; err != nil {
		return nil, err
	}
	return toDomainInspections(inspectionModels), nil
}

// FindAll lists inspections newest first unless OrderBy is set
func (r *GormInspectionRepository) FindAll(ctx context.Context, filter inspection.Filter) ([]inspection.Inspection, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InspectionModel{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.InspectorID != nil {
		query = query.Where("inspector_id = ?", *filter.InspectorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Day != nil {
		d := *filter.Day
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1))
	}
	query = applyDateRange(query, "date", filter.Range)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := max(filter.Page, 1)
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, InspectionSortFields, "date"))
	} else {
		query = query.Order("date DESC")
	}

	var inspectionModels []models.InspectionModel
	if err := query.Order("created_at DESC").Find(&inspectionModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainInspections(inspectionModels), total, nil
}

// Save inserts a new inspection or updates it under optimistic locking.
// Every domain mutation bumps Version, so the row must still hold Version-1;
// otherwise ErrConcurrencyConflict is returned and nothing is written.
func (r *GormInspectionRepository) Save(ctx context.Context, i *inspection.Inspection) error {
	model := models.InspectionModelFromDomain(i)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InspectionModel{}).
			Where("id = ? AND version = ?", i.ID, i.Version-1).
			Updates(map[string]any{
				"date":            model.Date,
				"status":          model.Status,
				"batch_number":    model.BatchNumber,
				"notes":           model.Notes,
				"images":          model.Images,
				"defects_found":   model.DefectsFound,
				"total_inspected": model.TotalInspected,
				"version":         model.Version,
				"updated_at":      model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&models.InspectionModel{}).Where("id = ?", i.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		return tx.Create(model).Error
	})
}

// Delete deletes an inspection
func (r *GormInspectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InspectionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return inspection.ErrInspectionNotFound
	}
	return nil
}

// AdjustDefectsFound adds delta to defects_found in a single statement, floored at zero.
// It bumps version so a concurrent Save of a stale copy is rejected.
func (r *GormInspectionRepository) AdjustDefectsFound(ctx context.Context, id uuid.UUID, delta int) error {
	result := r.db.WithContext(ctx).Model(&models.InspectionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"defects_found": gorm.Expr("CASE WHEN defects_found + ? < 0 THEN 0 ELSE defects_found + ? END", delta, delta),
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return inspection.ErrInspectionNotFound
	}
	return nil
}

func applyDateRange(query *gorm.DB, column string, r shared.DateRange) *gorm.DB {
	if !r.From.IsZero() {
		query = query.Where(column+" >= ?", r.From)
	}
	if !r.To.IsZero() {
		query = query.Where(column+" <= ?", r.To)
	}
	return query
}

func toDomainInspections(inspectionModels []models.InspectionModel) []inspection.Inspection {
	items := make([]inspection.Inspection, len(inspectionModels))
	for i := range inspectionModels {
		items[i] = *inspectionModels[i].ToDomain()
	}
	return items
}

var _ inspection.Repository = (*GormInspectionRepository)(nil)
