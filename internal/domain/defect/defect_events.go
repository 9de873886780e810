package defect

import (
	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// AggregateTypeDefect is the aggregate type name for defects
const AggregateTypeDefect = "Defect"

const (
	EventTypeDefectReported         = "DefectReported"
	EventTypeCriticalDefectReported = "CriticalDefectReported"
	EventTypeDefectResolved         = "DefectResolved"
	EventTypeDefectUpdated          = "DefectUpdated"
	EventTypeDefectDeleted          = "DefectDeleted"
)

// DefectReportedEvent is published for every new defect
type DefectReportedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID       `json:"inspection_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Type         Type            `json:"type"`
	Severity     Severity        `json:"severity"`
	DetectedBy   DetectionSource `json:"detected_by"`
}

// NewDefectReportedEvent creates a new DefectReportedEvent
func NewDefectReportedEvent(d *Defect) *DefectReportedEvent {
	return &DefectReportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefectReported, AggregateTypeDefect, d.ID),
		InspectionID:    d.InspectionID,
		ProductID:       d.ProductID,
		Type:            d.Type,
		Severity:        d.Severity,
		DetectedBy:      d.DetectedBy,
	}
}

// CriticalDefectReportedEvent is published when a defect of critical severity is filed
type CriticalDefectReportedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID `json:"inspection_id"`
	ProductID    uuid.UUID `json:"product_id"`
	BatchNumber  string    `json:"batch_number"`
	Type         Type      `json:"type"`
}

// NewCriticalDefectReportedEvent creates a new CriticalDefectReportedEvent
func NewCriticalDefectReportedEvent(d *Defect, batchNumber string) *CriticalDefectReportedEvent {
	return &CriticalDefectReportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCriticalDefectReported, AggregateTypeDefect, d.ID),
		InspectionID:    d.InspectionID,
		ProductID:       d.ProductID,
		BatchNumber:     batchNumber,
		Type:            d.Type,
	}
}

// DefectResolvedEvent is published when a defect is resolved
type DefectResolvedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID `json:"inspection_id"`
}

// NewDefectResolvedEvent creates a new DefectResolvedEvent
func NewDefectResolvedEvent(d *Defect) *DefectResolvedEvent {
	return &DefectResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefectResolved, AggregateTypeDefect, d.ID),
		InspectionID:    d.InspectionID,
	}
}

// DefectUpdatedEvent is published when a defect is edited
type DefectUpdatedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID `json:"inspection_id"`
	Status       Status    `json:"status"`
}

// NewDefectUpdatedEvent creates a new DefectUpdatedEvent
func NewDefectUpdatedEvent(d *Defect) *DefectUpdatedEvent {
	return &DefectUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefectUpdated, AggregateTypeDefect, d.ID),
		InspectionID:    d.InspectionID,
		Status:          d.Status,
	}
}

// DefectDeletedEvent is published after a defect is removed
type DefectDeletedEvent struct {
	shared.BaseDomainEvent
	InspectionID uuid.UUID `json:"inspection_id"`
	ProductID    uuid.UUID `json:"product_id"`
}

// NewDefectDeletedEvent creates a new DefectDeletedEvent
func NewDefectDeletedEvent(d *Defect) *DefectDeletedEvent {
	return &DefectDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDefectDeleted, AggregateTypeDefect, d.ID),
		InspectionID:    d.InspectionID,
		ProductID:       d.ProductID,
	}
}
