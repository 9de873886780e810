package defect

import (
	"context"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// Repository defines the interface for defect persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Defect, error)
	FindAll(ctx context.Context, filter Filter) ([]Defect, int64, error)
	FindByInspection(ctx context.Context, inspectionID uuid.UUID) ([]Defect, error)
	CountByInspection(ctx context.Context, inspectionID uuid.UUID) (int64, error)
	Save(ctx context.Context, defect *Defect) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByInspection removes every defect of an inspection and returns their image keys
	DeleteByInspection(ctx context.Context, inspectionID uuid.UUID) ([]string, error)
}

// Filter contains filter options for listing defects
type Filter struct {
	ProductID    *uuid.UUID
	InspectionID *uuid.UUID
	Type         *Type
	Severity     *Severity
	Status       *Status
	RootCause    *RootCause
	DetectedBy   *DetectionSource
	Created      shared.DateRange
	Page         int
	// PageSize of zero or less returns all rows
	PageSize int
	OrderBy  string
	OrderDir string
}

// NewFilter returns a filter with default paging and newest-first order
func NewFilter() Filter {
	return Filter{Page: 1, PageSize: 10, OrderBy: "created_at", OrderDir: "desc"}
}
