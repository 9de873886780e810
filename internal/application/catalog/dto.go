package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/catalog"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name           string            `json:"name" binding:"required,min=1,max=200"`
	Category       string            `json:"category" binding:"required,max=100"`
	Description    string            `json:"description" binding:"max=2000"`
	Specifications map[string]string `json:"specifications"`
}

// UpdateProductRequest represents a request to update a product
type UpdateProductRequest struct {
	Name           *string           `json:"name" binding:"omitempty,min=1,max=200"`
	Category       *string           `json:"category" binding:"omitempty,min=1,max=100"`
	Description    *string           `json:"description" binding:"omitempty,max=2000"`
	Specifications map[string]string `json:"specifications"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Category       string            `json:"category"`
	Description    string            `json:"description"`
	ImageURL       string            `json:"image_url,omitempty"`
	Specifications map[string]string `json:"specifications"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	specs := p.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		Description:    p.Description,
		ImageURL:       p.ImageURL,
		Specifications: specs,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
