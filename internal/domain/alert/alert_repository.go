package alert

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for alert persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	FindAll(ctx context.Context, filter Filter) ([]Alert, int64, error)
	Save(ctx context.Context, alert *Alert) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkAllRead flags every unread alert as read and returns how many changed
	MarkAllRead(ctx context.Context) (int64, error)
}

// Filter contains filter options for listing alerts
type Filter struct {
	Read     *bool
	Type     *Type
	Severity *Severity
	Page     int
	PageSize int
}

// NewFilter returns a filter with default paging
func NewFilter() Filter {
	return Filter{Page: 1, PageSize: 10}
}
