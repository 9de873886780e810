package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BacklogProvider reports the current quality backlog for gauge collection.
type BacklogProvider interface {
	OpenDefectCount(ctx context.Context) (int64, error)
	UnreadAlertCount(ctx context.Context) (int64, error)
}

// QualityMetrics records quality-control activity.
// A nil *QualityMetrics is valid and records nothing.
type QualityMetrics struct {
	logger *zap.Logger

	inspectionsCompleted *Counter
	defectsReported      *Counter
	alertsRaised         *Counter
	detectionDuration    *Histogram

	openDefects  *Gauge
	unreadAlerts *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewQualityMetrics registers the quality instruments on meter.
func NewQualityMetrics(meter metric.Meter, logger *zap.Logger) (*QualityMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qm := &QualityMetrics{logger: logger, stopChan: make(chan struct{})}
	var err error
	if qm.inspectionsCompleted, err = NewCounter(meter, "qc_inspections_completed_total", "Inspections closed, by outcome", "{inspections}"); err != nil {
		return nil, err
	}
	if qm.defectsReported, err = NewCounter(meter, "qc_defects_reported_total", "Defects reported", "{defects}"); err != nil {
		return nil, err
	}
	if qm.alertsRaised, err = NewCounter(meter, "qc_alerts_raised_total", "Alerts raised", "{alerts}"); err != nil {
		return nil, err
	}
	if qm.detectionDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "qc_detection_duration_seconds",
		Description: "Image classification latency",
		Unit:        "s",
		Boundaries:  DetectionDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if qm.openDefects, err = NewGauge(meter, "qc_open_defects", "Defects not yet resolved or rejected", "{defects}"); err != nil {
		return nil, err
	}
	if qm.unreadAlerts, err = NewGauge(meter, "qc_unread_alerts", "Alerts nobody has read", "{alerts}"); err != nil {
		return nil, err
	}
	return qm, nil
}

// RecordInspectionCompleted counts a closed inspection
func (qm *QualityMetrics) RecordInspectionCompleted(ctx context.Context, status string) {
	if qm == nil {
		return
	}
	qm.inspectionsCompleted.Inc(ctx, AttrStatus.String(status))
}

// RecordDefectReported counts a new defect
func (qm *QualityMetrics) RecordDefectReported(ctx context.Context, defectType, severity, detectedBy string) {
	if qm == nil {
		return
	}
	qm.defectsReported.Inc(ctx,
		AttrDefectType.String(defectType),
		AttrSeverity.String(severity),
		AttrDetectedBy.String(detectedBy),
	)
}

// RecordAlertRaised counts a new alert
func (qm *QualityMetrics) RecordAlertRaised(ctx context.Context, alertType, severity string) {
	if qm == nil {
		return
	}
	qm.alertsRaised.Inc(ctx, AttrAlertType.String(alertType), AttrSeverity.String(severity))
}

// RecordDetection records classifier latency. outcome is "defect", "ok" or "error".
func (qm *QualityMetrics) RecordDetection(ctx context.Context, model, outcome string, d time.Duration) {
	if qm == nil {
		return
	}
	qm.detectionDuration.RecordDuration(ctx, d, AttrModel.String(model), AttrOutcome.String(outcome))
}

// StartPeriodicCollection samples backlog gauges every interval until Stop or ctx ends.
func (qm *QualityMetrics) StartPeriodicCollection(ctx context.Context, provider BacklogProvider, interval time.Duration) {
	if qm == nil || provider == nil {
		return
	}
	qm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go qm.runPeriodicCollection(ctx, provider, interval)
	})
}

func (qm *QualityMetrics) runPeriodicCollection(ctx context.Context, provider BacklogProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	qm.collectBacklog(ctx, provider)
	for {
		select {
		case <-qm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			qm.collectBacklog(ctx, provider)
		}
	}
}

func (qm *QualityMetrics) collectBacklog(ctx context.Context, provider BacklogProvider) {
	if n, err := provider.OpenDefectCount(ctx); err != nil {
		qm.logger.Warn("Failed to count open defects", zap.Error(err))
	} else {
		qm.openDefects.Record(ctx, n)
	}
	if n, err := provider.UnreadAlertCount(ctx); err != nil {
		qm.logger.Warn("Failed to count unread alerts", zap.Error(err))
	} else {
		qm.unreadAlerts.Record(ctx, n)
	}
}

// Stop stops the periodic collection.
func (qm *QualityMetrics) Stop() {
	if qm == nil {
		return
	}
	qm.stopOnce.Do(func() { close(qm.stopChan) })
}
