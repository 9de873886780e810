package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/inspection"
)

// InspectionModel is the persistence model for the Inspection aggregate.
type InspectionModel struct {
	AggregateModel
	ProductID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	InspectorID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Date           time.Time         `gorm:"not null;index"`
	Status         inspection.Status `gorm:"type:varchar(20);not null;default:'pending';index"`
	BatchNumber    string            `gorm:"type:varchar(100);not null"`
	Notes          string            `gorm:"type:text"`
	Images         string            `gorm:"type:jsonb;default:'[]'"`
	DefectsFound   int               `gorm:"not null;default:0"`
	TotalInspected int               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InspectionModel) TableName() string {
	return "inspections"
}

// ToDomain converts the persistence model to a domain Inspection.
func (m *InspectionModel) ToDomain() *inspection.Inspection {
	images := make([]inspection.Image, 0)
	if m.Images != "" {
		_ = json.Unmarshal([]byte(m.Images), &images)
	}
	return &inspection.Inspection{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		InspectorID:       m.InspectorID,
		Date:              m.Date,
		Status:            m.Status,
		BatchNumber:       m.BatchNumber,
		Notes:             m.Notes,
		Images:            images,
		DefectsFound:      m.DefectsFound,
		TotalInspected:    m.TotalInspected,
	}
}

// FromDomain populates the persistence model from a domain Inspection.
func (m *InspectionModel) FromDomain(i *inspection.Inspection) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.ProductID = i.ProductID
	m.InspectorID = i.InspectorID
	m.Date = i.Date
	m.Status = i.Status
	m.BatchNumber = i.BatchNumber
	m.Notes = i.Notes
	m.DefectsFound = i.DefectsFound
	m.TotalInspected = i.TotalInspected
	m.Images = "[]"
	if len(i.Images) > 0 {
		if data, err := json.Marshal(i.Images); err == nil {
			m.Images = string(data)
		}
	}
}

// InspectionModelFromDomain creates a new persistence model from a domain Inspection.
func InspectionModelFromDomain(i *inspection.Inspection) *InspectionModel {
	m := &InspectionModel{}
	m.FromDomain(i)
	return m
}
