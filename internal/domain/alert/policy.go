package alert

import (
	"fmt"

	"github.com/google/uuid"
)

// Thresholds controls when alerts are raised
type Thresholds struct {
	// DefectRate is the percentage above which a batch is flagged
	DefectRate float64
	// CriticalDefectRate is kept for reporting; severity escalates at DefectRate*1.5
	CriticalDefectRate float64
	InspectionFailure  bool
	CriticalDefect     bool
}

// DefaultThresholds returns the stock alert thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		DefectRate:         5,
		CriticalDefectRate: 10,
		InspectionFailure:  true,
		CriticalDefect:     true,
	}
}

// InspectionOutcome is what the policy needs to know about a completed inspection
type InspectionOutcome struct {
	InspectionID uuid.UUID
	ProductID    uuid.UUID
	BatchNumber  string
	Failed       bool
	DefectsFound int
	DefectRate   float64
}

// CriticalDefect is what the policy needs to know about a critical defect
type CriticalDefect struct {
	DefectID     uuid.UUID
	InspectionID uuid.UUID
	ProductID    uuid.UUID
	BatchNumber  string
	DefectType   string
}

// Policy decides which alerts a quality event raises
type Policy struct {
	thresholds Thresholds
}

// NewPolicy creates a policy for the given thresholds
func NewPolicy(t Thresholds) *Policy {
	return &Policy{thresholds: t}
}

// Thresholds returns the thresholds in force
func (p *Policy) Thresholds() Thresholds {
	return p.thresholds
}

// EvaluateInspection returns the alert for a completed inspection, or nil.
// A rate above the threshold wins over the plain failure alert.
func (p *Policy) EvaluateInspection(o InspectionOutcome) *Alert {
	threshold := p.thresholds.DefectRate
	if o.DefectRate > threshold {
		severity := SeverityHigh
		if o.DefectRate > threshold*1.5 {
			severity = SeverityCritical
		}
		a := p.build(TypeHighDefectRate, severity,
			fmt.Sprintf("High defect rate of %.2f%% detected for batch %s (threshold: %v%%)", o.DefectRate, o.BatchNumber, threshold))
		rate, th := o.DefectRate, threshold
		a.DefectRate = &rate
		a.Threshold = &th
		a.InspectionID = idPtr(o.InspectionID)
		a.ProductID = idPtr(o.ProductID)
		return a
	}
	if o.Failed && p.thresholds.InspectionFailure {
		a := p.build(TypeInspectionFailed, SeverityMedium,
			fmt.Sprintf("Inspection of batch %s failed with %d defects", o.BatchNumber, o.DefectsFound))
		rate := o.DefectRate
		a.DefectRate = &rate
		a.InspectionID = idPtr(o.InspectionID)
		a.ProductID = idPtr(o.ProductID)
		return a
	}
	return nil
}

// EvaluateCriticalDefect returns the alert for a critical defect, or nil when disabled
func (p *Policy) EvaluateCriticalDefect(d CriticalDefect) *Alert {
	if !p.thresholds.CriticalDefect {
		return nil
	}
	a := p.build(TypeCriticalDefect, SeverityHigh,
		fmt.Sprintf("Critical defect detected in batch %s (%s)", d.BatchNumber, d.DefectType))
	a.DefectID = idPtr(d.DefectID)
	a.InspectionID = idPtr(d.InspectionID)
	a.ProductID = idPtr(d.ProductID)
	return a
}

func (p *Policy) build(t Type, s Severity, message string) *Alert {
	// inputs are constants, so construction cannot fail
	a, _ := NewAlert(t, s, message)
	return a
}

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
