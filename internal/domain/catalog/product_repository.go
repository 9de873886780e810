package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs loads products by ID; missing IDs are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	// FindAll lists products. Filters: "category".
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ExistsByNameKey checks for a product with the same normalized name,
	// ignoring excludeID when it is not uuid.Nil
	ExistsByNameKey(ctx context.Context, nameKey string, excludeID uuid.UUID) (bool, error)
}
