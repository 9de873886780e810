package models

import (
	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/alert"
)

// AlertModel is the persistence model for the Alert entity.
type AlertModel struct {
	BaseModel
	Type         alert.Type     `gorm:"type:varchar(30);not null;index"`
	Message      string         `gorm:"type:text;not null"`
	Severity     alert.Severity `gorm:"type:varchar(20);not null;default:'medium';index"`
	InspectionID *uuid.UUID     `gorm:"type:uuid;index"`
	ProductID    *uuid.UUID     `gorm:"type:uuid;index"`
	DefectID     *uuid.UUID     `gorm:"type:uuid"`
	DefectRate   *float64
	Threshold    *float64
	Read         bool `gorm:"column:is_read;not null;default:false;index"`
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts the persistence model to a domain Alert.
func (m *AlertModel) ToDomain() *alert.Alert {
	return &alert.Alert{
		BaseEntity:   m.BaseModel.ToDomain(),
		Type:         m.Type,
		Message:      m.Message,
		Severity:     m.Severity,
		InspectionID: m.InspectionID,
		ProductID:    m.ProductID,
		DefectID:     m.DefectID,
		DefectRate:   m.DefectRate,
		Threshold:    m.Threshold,
		Read:         m.Read,
	}
}

// FromDomain populates the persistence model from a domain Alert.
func (m *AlertModel) FromDomain(a *alert.Alert) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Type = a.Type
	m.Message = a.Message
	m.Severity = a.Severity
	m.InspectionID = a.InspectionID
	m.ProductID = a.ProductID
	m.DefectID = a.DefectID
	m.DefectRate = a.DefectRate
	m.Threshold = a.Threshold
	m.Read = a.Read
}

// AlertModelFromDomain creates a new persistence model from a domain Alert.
func AlertModelFromDomain(a *alert.Alert) *AlertModel {
	m := &AlertModel{}
	m.FromDomain(a)
	return m
}

// AllModels lists every persisted model, in dependency order
func AllModels() []any {
	return []any{
		&UserModel{},
		&ProductModel{},
		&InspectionModel{},
		&DefectModel{},
		&AlertModel{},
	}
}
