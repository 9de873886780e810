package defect

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
)

// Type classifies what kind of flaw a defect is
type Type string

const (
	TypeVisual      Type = "visual"
	TypeFunctional  Type = "functional"
	TypeDimensional Type = "dimensional"
	TypeStructural  Type = "structural"
	TypeFinish      Type = "finish"
	TypeMaterial    Type = "material"
	TypeAssembly    Type = "assembly"
	TypeElectrical  Type = "electrical"
	TypeMechanical  Type = "mechanical"
	TypeOther       Type = "other"
)

// Types lists all defect types
func Types() []Type {
	return []Type{
		TypeVisual, TypeFunctional, TypeDimensional, TypeStructural, TypeFinish,
		TypeMaterial, TypeAssembly, TypeElectrical, TypeMechanical, TypeOther,
	}
}

// IsValid reports whether the type is known
func (t Type) IsValid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Severity grades the impact of a defect
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether the severity is known
func (s Severity) IsValid() bool {
	return s == SeverityMinor || s == SeverityMajor || s == SeverityCritical
}

// SeverityFromConfidence grades an AI detection by its confidence percentage
func SeverityFromConfidence(percent float64) Severity {
	switch {
	case percent > 80:
		return SeverityCritical
	case percent > 70:
		return SeverityMajor
	default:
		return SeverityMinor
	}
}

// RootCause is the origin a defect is attributed to
type RootCause string

const (
	RootCauseDesign        RootCause = "design"
	RootCauseMaterial      RootCause = "material"
	RootCauseManufacturing RootCause = "manufacturing"
	RootCauseAssembly      RootCause = "assembly"
	RootCauseHandling      RootCause = "handling"
	RootCauseUnknown       RootCause = "unknown"
)

// IsValid reports whether the root cause is known
func (r RootCause) IsValid() bool {
	switch r {
	case RootCauseDesign, RootCauseMaterial, RootCauseManufacturing,
		RootCauseAssembly, RootCauseHandling, RootCauseUnknown:
		return true
	}
	return false
}

// Status is the triage state of a defect
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusRejected      Status = "rejected"
)

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// DetectionSource records who found the defect
type DetectionSource string

const (
	DetectedManually DetectionSource = "manual"
	DetectedByAI     DetectionSource = "ai"
)

// IsValid reports whether the source is known
func (d DetectionSource) IsValid() bool {
	return d == DetectedManually || d == DetectedByAI
}

// Measurements captures an out-of-tolerance reading
type Measurements struct {
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Unit     string  `json:"unit"`
}

// Defect is a flaw found during or after an inspection
type Defect struct {
	shared.BaseAggregateRoot
	InspectionID    uuid.UUID
	ProductID       uuid.UUID
	ReportedByID    uuid.UUID
	Type            Type
	Severity        Severity
	Description     string
	Location        string
	Measurements    *Measurements
	RootCause       RootCause
	Status          Status
	ImageURL        string
	ImageKey        string
	DetectedBy      DetectionSource
	AIConfidence    float64
	ResolvedAt      *time.Time
	ResolvedByID    *uuid.UUID
	ResolutionNotes string
}

// Report holds the fields needed to file a defect
type Report struct {
	InspectionID uuid.UUID
	ProductID    uuid.UUID
	ReportedByID uuid.UUID
	Type         Type
	Severity     Severity
	Description  string
	Location     string
	Measurements *Measurements
	RootCause    RootCause
	Status       Status
	DetectedBy   DetectionSource
	AIConfidence float64
}

// NewDefect files a defect. Root cause, status and source default to unknown, open and manual.
func NewDefect(r Report, batchNumber string) (*Defect, error) {
	if r.InspectionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INSPECTION", "Please specify the inspection")
	}
	if r.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Please specify the product")
	}
	if r.ReportedByID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REPORTER", "Please specify who reported the defect")
	}
	if r.RootCause == "" {
		r.RootCause = RootCauseUnknown
	}
	if r.Status == "" {
		r.Status = StatusOpen
	}
	if r.DetectedBy == "" {
		r.DetectedBy = DetectedManually
	}

	d := &Defect{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InspectionID:      r.InspectionID,
		ProductID:         r.ProductID,
		ReportedByID:      r.ReportedByID,
		Location:          strings.TrimSpace(r.Location),
		Measurements:      r.Measurements,
	}
	if err := d.setClassification(r.Type, r.Severity, r.RootCause); err != nil {
		return nil, err
	}
	if err := d.setDescription(r.Description); err != nil {
		return nil, err
	}
	if !r.Status.IsValid() {
		return nil, errInvalidStatus
	}
	d.Status = r.Status
	if !r.DetectedBy.IsValid() {
		return nil, shared.NewDomainError("INVALID_DETECTED_BY", "Detected by must be manual or ai")
	}
	d.DetectedBy = r.DetectedBy
	if err := d.setAIConfidence(r.AIConfidence); err != nil {
		return nil, err
	}

	d.AddDomainEvent(NewDefectReportedEvent(d))
	if d.Severity == SeverityCritical {
		d.AddDomainEvent(NewCriticalDefectReportedEvent(d, batchNumber))
	}
	return d, nil
}

var errInvalidStatus = shared.NewDomainError("INVALID_STATUS", "Status must be one of open, investigating, resolved, rejected")

// Changes holds the mutable fields of a defect. Nil pointers keep the current value.
type Changes struct {
	Type            *Type
	Severity        *Severity
	Description     *string
	Location        *string
	Measurements    *Measurements
	RootCause       *RootCause
	Status          *Status
	ResolutionNotes *string
}

// Update applies changes. Moving into resolved stamps the resolver.
func (d *Defect) Update(c Changes, actor uuid.UUID, now time.Time) error {
	typ, sev, cause := d.Type, d.Severity, d.RootCause
	if c.Type != nil {
		typ = *c.Type
	}
	if c.Severity != nil {
		sev = *c.Severity
	}
	if c.RootCause != nil {
		cause = *c.RootCause
	}
	if err := d.setClassification(typ, sev, cause); err != nil {
		return err
	}
	if c.Description != nil {
		if err := d.setDescription(*c.Description); err != nil {
			return err
		}
	}
	if c.Location != nil {
		d.Location = strings.TrimSpace(*c.Location)
	}
	if c.Measurements != nil {
		d.Measurements = c.Measurements
	}
	if c.ResolutionNotes != nil {
		d.ResolutionNotes = strings.TrimSpace(*c.ResolutionNotes)
	}
	if c.Status != nil {
		if !c.Status.IsValid() {
			return errInvalidStatus
		}
		if *c.Status == StatusResolved && d.Status != StatusResolved {
			d.markResolved(actor, now)
		}
		d.Status = *c.Status
	}
	d.IncrementVersion()
	d.AddDomainEvent(NewDefectUpdatedEvent(d))
	return nil
}

// Resolve closes the defect with optional notes
func (d *Defect) Resolve(actor uuid.UUID, notes string, now time.Time) {
	d.Status = StatusResolved
	d.markResolved(actor, now)
	if notes = strings.TrimSpace(notes); notes != "" {
		d.ResolutionNotes = notes
	}
	d.IncrementVersion()
	d.AddDomainEvent(NewDefectResolvedEvent(d))
}

// SetImage records the uploaded image and returns the key of the image it replaced
func (d *Defect) SetImage(url, key string) string {
	previous := d.ImageKey
	d.ImageURL = url
	d.ImageKey = key
	d.IncrementVersion()
	return previous
}

// AgeInDays returns whole days since creation, rounded up
func (d *Defect) AgeInDays(now time.Time) int {
	diff := now.Sub(d.CreatedAt)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func (d *Defect) markResolved(actor uuid.UUID, now time.Time) {
	d.ResolvedAt = &now
	if actor != uuid.Nil {
		id := actor
		d.ResolvedByID = &id
	}
}

func (d *Defect) setClassification(t Type, s Severity, r RootCause) error {
	if !t.IsValid() {
		return shared.NewDomainError("INVALID_TYPE", "Please specify a valid defect type")
	}
	if !s.IsValid() {
		return shared.NewDomainError("INVALID_SEVERITY", "Severity must be one of minor, major, critical")
	}
	if !r.IsValid() {
		return shared.NewDomainError("INVALID_ROOT_CAUSE", "Please specify a valid root cause")
	}
	d.Type, d.Severity, d.RootCause = t, s, r
	return nil
}

func (d *Defect) setDescription(desc string) error {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Please add a description")
	}
	if len(desc) > 2000 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 2000 characters")
	}
	d.Description = desc
	return nil
}

func (d *Defect) setAIConfidence(c float64) error {
	if c < 0 || c > 100 {
		return shared.NewDomainError("INVALID_AI_CONFIDENCE", "AI confidence must be between 0 and 100")
	}
	d.AIConfidence = c
	return nil
}
