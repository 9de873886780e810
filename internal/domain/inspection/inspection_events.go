package inspection

import (
	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// AggregateTypeInspection is the aggregate type name for inspections
const AggregateTypeInspection = "Inspection"

const (
	EventTypeInspectionCreated   = "InspectionCreated"
	EventTypeInspectionCompleted = "InspectionCompleted"
	EventTypeInspectionUpdated   = "InspectionUpdated"
	EventTypeInspectionDeleted   = "InspectionDeleted"
)

// InspectionCreatedEvent is published when an inspection is recorded
type InspectionCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	BatchNumber string    `json:"batch_number"`
}

// NewInspectionCreatedEvent creates a new InspectionCreatedEvent
func NewInspectionCreatedEvent(i *Inspection) *InspectionCreatedEvent {
	return &InspectionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionCreated, AggregateTypeInspection, i.ID),
		ProductID:       i.ProductID,
		BatchNumber:     i.BatchNumber,
	}
}

// InspectionCompletedEvent is published when an inspection is closed
type InspectionCompletedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID `json:"product_id"`
	BatchNumber    string    `json:"batch_number"`
	Status         Status    `json:"status"`
	DefectsFound   int       `json:"defects_found"`
	TotalInspected int       `json:"total_inspected"`
	DefectRate     float64   `json:"defect_rate"`
}

// NewInspectionCompletedEvent creates a new InspectionCompletedEvent
func NewInspectionCompletedEvent(i *Inspection) *InspectionCompletedEvent {
	return &InspectionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionCompleted, AggregateTypeInspection, i.ID),
		ProductID:       i.ProductID,
		BatchNumber:     i.BatchNumber,
		Status:          i.Status,
		DefectsFound:    i.DefectsFound,
		TotalInspected:  i.TotalInspected,
		DefectRate:      i.DefectRate(),
	}
}

// InspectionUpdatedEvent is published when inspection details change
type InspectionUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
}

// NewInspectionUpdatedEvent creates a new InspectionUpdatedEvent
func NewInspectionUpdatedEvent(i *Inspection) *InspectionUpdatedEvent {
	return &InspectionUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionUpdated, AggregateTypeInspection, i.ID),
		ProductID:       i.ProductID,
	}
}

// InspectionDeletedEvent is published after an inspection and its defects are removed
type InspectionDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID `json:"product_id"`
	DefectsFound int       `json:"defects_found"`
}

// NewInspectionDeletedEvent creates a new InspectionDeletedEvent
func NewInspectionDeletedEvent(i *Inspection) *InspectionDeletedEvent {
	return &InspectionDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInspectionDeleted, AggregateTypeInspection, i.ID),
		ProductID:       i.ProductID,
		DefectsFound:    i.DefectsFound,
	}
}
