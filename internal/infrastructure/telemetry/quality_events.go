package telemetry

import (
	"context"

	alertapp "github.com/qcdash/backend/internal/application/alert"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
)

// QualityEventRecorder feeds domain events and raised alerts into QualityMetrics.
// It subscribes to the event bus and joins the alert notifier fanout.
type QualityEventRecorder struct {
	metrics *QualityMetrics
}

// NewQualityEventRecorder creates a recorder. A nil metrics records nothing.
func NewQualityEventRecorder(metrics *QualityMetrics) *QualityEventRecorder {
	return &QualityEventRecorder{metrics: metrics}
}

// EventTypes returns the events that are counted
func (r *QualityEventRecorder) EventTypes() []string {
	return []string{
		inspection.EventTypeInspectionCompleted,
		defect.EventTypeDefectReported,
	}
}

// Handle records the event. It never fails.
func (r *QualityEventRecorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inspection.InspectionCompletedEvent:
		r.metrics.RecordInspectionCompleted(ctx, string(e.Status))
	case *defect.DefectReportedEvent:
		r.metrics.RecordDefectReported(ctx, string(e.Type), string(e.Severity), string(e.DetectedBy))
	}
	return nil
}

// NotifyAlert counts the alert
func (r *QualityEventRecorder) NotifyAlert(ctx context.Context, a alertapp.AlertResponse, _ []alertapp.Recipient) error {
	r.metrics.RecordAlertRaised(ctx, a.Type, a.Severity)
	return nil
}

var (
	_ shared.EventHandler = (*QualityEventRecorder)(nil)
	_ alertapp.Notifier   = (*QualityEventRecorder)(nil)
)
