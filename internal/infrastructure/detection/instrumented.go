package detection

import (
	"context"
	"time"

	"github.com/qcdash/backend/internal/domain/detection"
)

// LatencyRecorder receives one sample per classification
type LatencyRecorder interface {
	RecordDetection(ctx context.Context, model, outcome string, d time.Duration)
}

// Instrumented times every Detect call of the wrapped detector
type Instrumented struct {
	detection.Detector
	recorder LatencyRecorder
}

// Instrument wraps d so each classification is reported to rec.
// A nil rec returns d unchanged.
func Instrument(d detection.Detector, rec LatencyRecorder) detection.Detector {
	if rec == nil {
		return d
	}
	return &Instrumented{Detector: d, recorder: rec}
}

// Detect classifies the image and records outcome "defect", "ok" or "error"
func (i *Instrumented) Detect(ctx context.Context, image []byte, contentType string) (detection.Result, error) {
	start := time.Now()
	res, err := i.Detector.Detect(ctx, image, contentType)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.HasDefect:
		outcome = "defect"
	}
	i.recorder.RecordDetection(ctx, i.Detector.Name(), outcome, time.Since(start))
	return res, err
}
