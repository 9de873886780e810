package inspection

import (
	"time"

	"github.com/google/uuid"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
)

// CreateInspectionRequest represents a request to record an inspection
type CreateInspectionRequest struct {
	ProductID      uuid.UUID  `json:"product_id" binding:"required"`
	BatchNumber    string     `json:"batch_number" binding:"required,max=100"`
	TotalInspected int        `json:"total_inspected" binding:"required,min=1"`
	Notes          string     `json:"notes" binding:"max=2000"`
	Date           *time.Time `json:"date"`
}

// UpdateInspectionRequest represents a request to edit an inspection
type UpdateInspectionRequest struct {
	BatchNumber    *string    `json:"batch_number" binding:"omitempty,max=100"`
	TotalInspected *int       `json:"total_inspected" binding:"omitempty,min=1"`
	DefectsFound   *int       `json:"defects_found" binding:"omitempty,min=0"`
	Notes          *string    `json:"notes" binding:"omitempty,max=2000"`
	Date           *time.Time `json:"date"`
	Status         *string    `json:"status" binding:"omitempty,oneof=pending completed failed"`
}

// ListInspectionsQuery holds list filters. IDs and the day are parsed by the handler.
type ListInspectionsQuery struct {
	Status      string     `form:"status" binding:"omitempty,oneof=pending completed failed"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	ProductID   *uuid.UUID `form:"-"`
	InspectorID *uuid.UUID `form:"-"`
	Day         *time.Time `form:"-"`
}

// InspectionResponse represents an inspection in API responses
type InspectionResponse struct {
	ID             uuid.UUID          `json:"id"`
	ProductID      uuid.UUID          `json:"product_id"`
	ProductName    string             `json:"product_name,omitempty"`
	InspectorID    uuid.UUID          `json:"inspector_id"`
	InspectorName  string             `json:"inspector_name,omitempty"`
	Date           time.Time          `json:"date"`
	Status         string             `json:"status"`
	BatchNumber    string             `json:"batch_number"`
	Notes          string             `json:"notes,omitempty"`
	Images         []inspection.Image `json:"images"`
	DefectsFound   int                `json:"defects_found"`
	TotalInspected int                `json:"total_inspected"`
	DefectRate     float64            `json:"defect_rate"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DetailResponse is an inspection with its defects
type DetailResponse struct {
	Inspection InspectionResponse         `json:"inspection"`
	Defects    []defectapp.DefectResponse `json:"defects"`
}

// ToInspectionResponse converts the domain inspection
func ToInspectionResponse(i *inspection.Inspection) InspectionResponse {
	images := i.Images
	if images == nil {
		images = []inspection.Image{}
	}
	return InspectionResponse{
		ID:             i.ID,
		ProductID:      i.ProductID,
		InspectorID:    i.InspectorID,
		Date:           i.Date,
		Status:         string(i.Status),
		BatchNumber:    i.BatchNumber,
		Notes:          i.Notes,
		Images:         images,
		DefectsFound:   i.DefectsFound,
		TotalInspected: i.TotalInspected,
		DefectRate:     i.DefectRateDecimal().Round(2).InexactFloat64(),
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

// ToInspectionResponses converts a slice of inspections
func ToInspectionResponses(items []inspection.Inspection) []InspectionResponse {
	out := make([]InspectionResponse, len(items))
	for i := range items {
		out[i] = ToInspectionResponse(&items[i])
	}
	return out
}
