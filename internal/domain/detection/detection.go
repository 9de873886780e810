// Package detection describes image classification of inspection photos.
package detection

import (
	"context"
	"fmt"
	"math"

	"github.com/qcdash/backend/internal/domain/shared"
)

// DefaultCutoff is the minimum confidence for a non-good class to count as a defect
const DefaultCutoff = 0.6

// ErrModelUnavailable is returned when no classifier can serve the request
var ErrModelUnavailable = shared.NewDomainError("MODEL_UNAVAILABLE", "AI model is not available")

// Result is the interpreted output of one classification
type Result struct {
	Class string `json:"class"`
	// Confidence of the winning class in 0..1
	Confidence float64 `json:"confidence"`
	// Scores holds every class as a rounded percentage
	Scores     map[string]int `json:"scores"`
	HasDefect  bool           `json:"has_defect"`
	DefectType string         `json:"defect_type"`
}

// ConfidencePercent returns the confidence rounded to a whole percentage
func (r Result) ConfidencePercent() int {
	return int(math.Round(r.Confidence * 100))
}

// DefectDescription is the text recorded on defects the classifier found
func (r Result) DefectDescription() string {
	return fmt.Sprintf("AI-detected %s defect (%d%% confidence)", r.DefectType, r.ConfidencePercent())
}

// ModelStatus reports whether a classifier is ready
type ModelStatus struct {
	Loaded  bool   `json:"model_loaded"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Model   string `json:"model"`
}

// Detector classifies a product image
type Detector interface {
	Detect(ctx context.Context, image []byte, contentType string) (Result, error)
	Status(ctx context.Context) ModelStatus
	Name() string
}

// UnavailableDetector stands in when no model endpoint is configured
type UnavailableDetector struct {
	Reason string
}

// Detect always fails with ErrModelUnavailable
func (d UnavailableDetector) Detect(context.Context, []byte, string) (Result, error) {
	return Result{}, ErrModelUnavailable
}

// Status reports the model as not loaded
func (d UnavailableDetector) Status(context.Context) ModelStatus {
	msg := d.Reason
	if msg == "" {
		msg = "No AI model configured"
	}
	return ModelStatus{Loaded: false, Status: "unavailable", Message: msg, Model: d.Name()}
}

// Name returns "none"
func (d UnavailableDetector) Name() string { return "none" }

var _ Detector = UnavailableDetector{}
