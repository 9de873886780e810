package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/alert"
	"github.com/qcdash/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, alert.ErrAlertNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists alerts newest first
func (r *GormAlertRepository) FindAll(ctx context.Context, filter alert.Filter) ([]alert.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AlertModel{})
	if filter.Read != nil {
		query = query.Where("is_read = ?", *filter.Read)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := max(filter.Page, 1)
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var alertModels []models.AlertModel
	if err := query.Order("created_at DESC").Find(&alertModels).Error; err != nil {
		return nil, 0, err
	}

	alerts := make([]alert.Alert, len(alertModels))
	for i := range alertModels {
		alerts[i] = *alertModels[i].ToDomain()
	}
	return alerts, total, nil
}

// Save creates or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	return r.db.WithContext(ctx).Save(models.AlertModelFromDomain(a)).Error
}

// Delete deletes an alert
func (r *GormAlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AlertModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return alert.ErrAlertNotFound
	}
	return nil
}

// MarkAllRead marks every unread alert as read and returns how many changed
func (r *GormAlertRepository) MarkAllRead(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.AlertModel{}).
		Where("is_read = ?", false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// UnreadAlertCount counts unread alerts
func (r *GormAlertRepository) UnreadAlertCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AlertModel{}).Where("is_read = ?", false).Count(&count).Error
	return count, err
}

var _ alert.Repository = (*GormAlertRepository)(nil)
