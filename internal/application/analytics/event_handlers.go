package analytics

import (
	"context"

	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CacheInvalidationHandler drops cached dashboards whenever inspections or
// defects change
type CacheInvalidationHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewCacheInvalidationHandler creates a new CacheInvalidationHandler
func NewCacheInvalidationHandler(service *Service, logger *zap.Logger) *CacheInvalidationHandler {
	return &CacheInvalidationHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *CacheInvalidationHandler) EventTypes() []string {
	return []string{
		inspection.EventTypeInspectionCreated,
		inspection.EventTypeInspectionUpdated,
		inspection.EventTypeInspectionCompleted,
		inspection.EventTypeInspectionDeleted,
		defect.EventTypeDefectReported,
		defect.EventTypeDefectUpdated,
		defect.EventTypeDefectResolved,
		defect.EventTypeDefectDeleted,
	}
}

// Handle invalidates the dashboard cache
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.service.Invalidate(ctx); err != nil {
		h.logger.Warn("Failed to invalidate analytics cache",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return err
	}
	h.logger.Debug("Analytics cache invalidated", zap.String("event_type", event.EventType()))
	return nil
}
