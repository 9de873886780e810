package alert

import (
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/alert"
)

// AlertResponse represents an alert in API responses and notifications
type AlertResponse struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Message      string     `json:"message"`
	Severity     string     `json:"severity"`
	InspectionID *uuid.UUID `json:"inspection_id,omitempty"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	DefectID     *uuid.UUID `json:"defect_id,omitempty"`
	DefectRate   *float64   `json:"defect_rate,omitempty"`
	Threshold    *float64   `json:"threshold,omitempty"`
	Read         bool       `json:"read"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToAlertResponse converts a domain alert
func ToAlertResponse(a *alert.Alert) AlertResponse {
	return AlertResponse{
		ID:           a.ID,
		Type:         string(a.Type),
		Message:      a.Message,
		Severity:     string(a.Severity),
		InspectionID: a.InspectionID,
		ProductID:    a.ProductID,
		DefectID:     a.DefectID,
		DefectRate:   a.DefectRate,
		Threshold:    a.Threshold,
		Read:         a.Read,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ListAlertsQuery holds the list filters
type ListAlertsQuery struct {
	Read     *bool  `form:"read"`
	Type     string `form:"type" binding:"omitempty,oneof=high-defect-rate inspection-failed critical-defect other"`
	Severity string `form:"severity" binding:"omitempty,oneof=low medium high critical"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Recipient is a user notified of new alerts
type Recipient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}
