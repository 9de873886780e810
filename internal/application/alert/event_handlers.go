package alert

import (
	"context"

	"github.com/qcdash/backend/internal/domain/alert"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Raiser is what the event handler needs from AlertService
type Raiser interface {
	Raise(ctx context.Context, a *alert.Alert) (*AlertResponse, error)
}

// QualityEventHandler turns completed inspections and critical defects into
// alerts according to the alert policy.
type QualityEventHandler struct {
	policy *alert.Policy
	raiser Raiser
	logger *zap.Logger
}

// NewQualityEventHandler creates the handler
func NewQualityEventHandler(policy *alert.Policy, raiser Raiser, logger *zap.Logger) *QualityEventHandler {
	return &QualityEventHandler{policy: policy, raiser: raiser, logger: logger}
}

// EventTypes returns the events that can raise alerts
func (h *QualityEventHandler) EventTypes() []string {
	return []string{
		inspection.EventTypeInspectionCompleted,
		defect.EventTypeCriticalDefectReported,
	}
}

// Handle evaluates the policy for the event
func (h *QualityEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var a *alert.Alert
	switch e := event.(type) {
	case *inspection.InspectionCompletedEvent:
		a = h.policy.EvaluateInspection(alert.InspectionOutcome{
			InspectionID: e.AggregateID(),
			ProductID:    e.ProductID,
			BatchNumber:  e.BatchNumber,
			Failed:       e.Status == inspection.StatusFailed,
			DefectsFound: e.DefectsFound,
			DefectRate:   e.DefectRate,
		})
	case *defect.CriticalDefectReportedEvent:
		a = h.policy.EvaluateCriticalDefect(alert.CriticalDefect{
			DefectID:     e.AggregateID(),
			InspectionID: e.InspectionID,
			ProductID:    e.ProductID,
			BatchNumber:  e.BatchNumber,
			DefectType:   string(e.Type),
		})
	default:
		h.logger.Debug("Ignoring event", zap.String("event_type", event.EventType()))
		return nil
	}
	if a == nil {
		return nil
	}
	_, err := h.raiser.Raise(ctx, a)
	return err
}

var _ shared.EventHandler = (*QualityEventHandler)(nil)
