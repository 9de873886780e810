package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// Repository defines the interface for inspection persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Inspection, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Inspection, error)
	FindAll(ctx context.Context, filter Filter) ([]Inspection, int64, error)
	Save(ctx context.Context, inspection *Inspection) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustDefectsFound atomically adds delta to defects_found, never going below zero
	AdjustDefectsFound(ctx context.Context, id uuid.UUID, delta int) error
}

// Filter contains filter options for listing inspections
type Filter struct {
	ProductID   *uuid.UUID
	InspectorID *uuid.UUID
	Status      *Status
	// Day restricts to inspections dated on that calendar day
	Day      *time.Time
	Range    shared.DateRange
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// NewFilter returns a filter with default paging
func NewFilter() Filter {
	return Filter{Page: 1, PageSize: 10}
}
