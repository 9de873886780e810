package persistence

import (
	"context"

	inspectionapp "github.com/qcdash/backend/internal/application/inspection"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"gorm.io/gorm"
)

// GormInspectionTransactionScope implements inspectionapp.TransactionScope with GORM transactions
type GormInspectionTransactionScope struct {
	db *gorm.DB
}

// NewGormInspectionTransactionScope creates a new GormInspectionTransactionScope
func NewGormInspectionTransactionScope(db *gorm.DB) *GormInspectionTransactionScope {
	return &GormInspectionTransactionScope{db: db}
}

// Execute runs fn inside a transaction, committing only when it succeeds
func (s *GormInspectionTransactionScope) Execute(ctx context.Context, fn func(repos inspectionapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormInspectionRepositories{tx: tx})
	})
}

type gormInspectionRepositories struct {
	tx *gorm.DB
}

func (r *gormInspectionRepositories) Inspections() inspection.Repository {
	return NewGormInspectionRepository(r.tx)
}

func (r *gormInspectionRepositories) Defects() defect.Repository {
	return NewGormDefectRepository(r.tx)
}

var _ inspectionapp.TransactionScope = (*GormInspectionTransactionScope)(nil)
