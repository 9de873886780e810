package alert

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// Type is the kind of condition an alert reports
type Type string

const (
	TypeHighDefectRate   Type = "high-defect-rate"
	TypeInspectionFailed Type = "inspection-failed"
	TypeCriticalDefect   Type = "critical-defect"
	TypeOther            Type = "other"
)

// IsValid reports whether the type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeHighDefectRate, TypeInspectionFailed, TypeCriticalDefect, TypeOther:
		return true
	}
	return false
}

// Severity grades how urgent an alert is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ErrAlertNotFound is returned when an alert does not exist
var ErrAlertNotFound = shared.NewDomainError("NOT_FOUND", "Alert not found")

// Alert notifies managers about a quality problem
type Alert struct {
	shared.BaseEntity
	Type         Type
	Message      string
	Severity     Severity
	InspectionID *uuid.UUID
	ProductID    *uuid.UUID
	DefectID     *uuid.UUID
	DefectRate   *float64
	Threshold    *float64
	Read         bool
}

// NewAlert creates an unread alert. An empty severity defaults to medium.
func NewAlert(t Type, severity Severity, message string) (*Alert, error) {
	if !t.IsValid() {
		return nil, shared.NewDomainError("INVALID_ALERT_TYPE", "Please specify a valid alert type")
	}
	if severity == "" {
		severity = SeverityMedium
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEVERITY", "Severity must be one of low, medium, high, critical")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Please add an alert message")
	}
	return &Alert{
		BaseEntity: shared.NewBaseEntity(),
		Type:       t,
		Severity:   severity,
		Message:    message,
	}, nil
}

// MarkRead flags the alert as read and reports whether it changed
func (a *Alert) MarkRead() bool {
	if a.Read {
		return false
	}
	a.Read = true
	a.UpdatedAt = time.Now()
	return true
}
