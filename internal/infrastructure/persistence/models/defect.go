package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/defect"
)

// DefectModel is the persistence model for the Defect aggregate.
type DefectModel struct {
	AggregateModel
	InspectionID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	ReportedByID    uuid.UUID              `gorm:"type:uuid;not null"`
	Type            defect.Type            `gorm:"type:varchar(20);not null;index"`
	Severity        defect.Severity        `gorm:"type:varchar(20);not null;index"`
	Description     string                 `gorm:"type:text;not null"`
	Location        string                 `gorm:"type:varchar(255)"`
	Measurements    *string                `gorm:"type:jsonb"`
	RootCause       defect.RootCause       `gorm:"type:varchar(20);not null;default:'unknown'"`
	Status          defect.Status          `gorm:"type:varchar(20);not null;default:'open';index"`
	ImageURL        string                 `gorm:"type:varchar(500)"`
	ImageKey        string                 `gorm:"type:varchar(255)"`
	DetectedBy      defect.DetectionSource `gorm:"type:varchar(10);not null;default:'manual';index"`
	AIConfidence    float64                `gorm:"not null;default:0"`
	ResolvedAt      *time.Time
	ResolvedByID    *uuid.UUID `gorm:"type:uuid"`
	ResolutionNotes string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DefectModel) TableName() string {
	return "defects"
}

// ToDomain converts the persistence model to a domain Defect.
func (m *DefectModel) ToDomain() *defect.Defect {
	d := &defect.Defect{
		BaseAggregateRoot: m.ToAggregateRoot(),
		InspectionID:      m.InspectionID,
		ProductID:         m.ProductID,
		ReportedByID:      m.ReportedByID,
		Type:              m.Type,
		Severity:          m.Severity,
		Description:       m.Description,
		Location:          m.Location,
		RootCause:         m.RootCause,
		Status:            m.Status,
		ImageURL:          m.ImageURL,
		ImageKey:          m.ImageKey,
		DetectedBy:        m.DetectedBy,
		AIConfidence:      m.AIConfidence,
		ResolvedAt:        m.ResolvedAt,
		ResolvedByID:      m.ResolvedByID,
		ResolutionNotes:   m.ResolutionNotes,
	}
	if m.Measurements != nil && *m.Measurements != "" {
		var meas defect.Measurements
		if err := json.Unmarshal([]byte(*m.Measurements), &meas); err == nil {
			d.Measurements = &meas
		}
	}
	return d
}

// FromDomain populates the persistence model from a domain Defect.
func (m *DefectModel) FromDomain(d *defect.Defect) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.InspectionID = d.InspectionID
	m.ProductID = d.ProductID
	m.ReportedByID = d.ReportedByID
	m.Type = d.Type
	m.Severity = d.Severity
	m.Description = d.Description
	m.Location = d.Location
	m.RootCause = d.RootCause
	m.Status = d.Status
	m.ImageURL = d.ImageURL
	m.ImageKey = d.ImageKey
	m.DetectedBy = d.DetectedBy
	m.AIConfidence = d.AIConfidence
	m.ResolvedAt = d.ResolvedAt
	m.ResolvedByID = d.ResolvedByID
	m.ResolutionNotes = d.ResolutionNotes
	m.Measurements = nil
	if d.Measurements != nil {
		if data, err := json.Marshal(d.Measurements); err == nil {
			s := string(data)
			m.Measurements = &s
		}
	}
}

// DefectModelFromDomain creates a new persistence model from a domain Defect.
func DefectModelFromDomain(d *defect.Defect) *DefectModel {
	m := &DefectModel{}
	m.FromDomain(d)
	return m
}
