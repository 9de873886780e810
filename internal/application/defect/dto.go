package defect

import (
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/defect"
)

// CreateDefectRequest represents a request to report a defect.
// Multipart handlers fill the IDs and measurements from the form themselves.
type CreateDefectRequest struct {
	InspectionID uuid.UUID            `json:"inspection_id" form:"-"`
	ProductID    uuid.UUID            `json:"product_id" form:"-"`
	Type         string               `json:"type" form:"type" binding:"required,oneof=visual functional dimensional structural finish material assembly electrical mechanical other"`
	Severity     string               `json:"severity" form:"severity" binding:"required,oneof=minor major critical"`
	Description  string               `json:"description" form:"description" binding:"required,max=2000"`
	Location     string               `json:"location" form:"location" binding:"max=200"`
	Measurements *defect.Measurements `json:"measurements" form:"-"`
	RootCause    string               `json:"root_cause" form:"root_cause" binding:"omitempty,oneof=design material manufacturing assembly handling unknown"`
	Status       string               `json:"status" form:"status" binding:"omitempty,oneof=open investigating resolved rejected"`
	DetectedBy   string               `json:"detected_by" form:"detected_by" binding:"omitempty,oneof=manual ai"`
	AIConfidence float64              `json:"ai_confidence" form:"ai_confidence" binding:"min=0,max=100"`
}

// UpdateDefectRequest represents a request to edit a defect
type UpdateDefectRequest struct {
	Type            *string              `json:"type" form:"type" binding:"omitempty,oneof=visual functional dimensional structural finish material assembly electrical mechanical other"`
	Severity        *string              `json:"severity" form:"severity" binding:"omitempty,oneof=minor major critical"`
	Description     *string              `json:"description" form:"description" binding:"omitempty,max=2000"`
	Location        *string              `json:"location" form:"location" binding:"omitempty,max=200"`
	Measurements    *defect.Measurements `json:"measurements" form:"-"`
	RootCause       *string              `json:"root_cause" form:"root_cause" binding:"omitempty,oneof=design material manufacturing assembly handling unknown"`
	Status          *string              `json:"status" form:"status" binding:"omitempty,oneof=open investigating resolved rejected"`
	ResolutionNotes *string              `json:"resolution_notes" form:"resolution_notes" binding:"omitempty,max=2000"`
}

// ResolveDefectRequest closes a defect
type ResolveDefectRequest struct {
	ResolutionNotes string `json:"resolution_notes" binding:"max=2000"`
}

// BulkCreateRequest carries several defects at once
type BulkCreateRequest struct {
	Defects []CreateDefectRequest `json:"defects"`
}

// ListDefectsQuery filters the defect list. Handlers parse the IDs and dates.
type ListDefectsQuery struct {
	Type      string `form:"type" binding:"omitempty,oneof=visual functional dimensional structural finish material assembly electrical mechanical other"`
	Severity  string `form:"severity" binding:"omitempty,oneof=minor major critical"`
	Status    string `form:"status" binding:"omitempty,oneof=open investigating resolved rejected"`
	RootCause string `form:"root_cause" binding:"omitempty,oneof=design material manufacturing assembly handling unknown"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`

	ProductID    *uuid.UUID `form:"-"`
	InspectionID *uuid.UUID `form:"-"`
	From         time.Time  `form:"-"`
	To           time.Time  `form:"-"`
}

// StatsQuery scopes defect statistics
type StatsQuery struct {
	ProductID *uuid.UUID
	From      time.Time
	To        time.Time
}

// DefectResponse represents a defect in API responses
type DefectResponse struct {
	ID              uuid.UUID            `json:"id"`
	InspectionID    uuid.UUID            `json:"inspection_id"`
	ProductID       uuid.UUID            `json:"product_id"`
	ProductName     string               `json:"product_name,omitempty"`
	ReportedByID    uuid.UUID            `json:"reported_by"`
	Type            string               `json:"type"`
	Severity        string               `json:"severity"`
	Description     string               `json:"description"`
	Location        string               `json:"location,omitempty"`
	Measurements    *defect.Measurements `json:"measurements,omitempty"`
	RootCause       string               `json:"root_cause"`
	Status          string               `json:"status"`
	ImageURL        string               `json:"image_url,omitempty"`
	DetectedBy      string               `json:"detected_by"`
	AIConfidence    float64              `json:"ai_confidence,omitempty"`
	ResolvedAt      *time.Time           `json:"resolved_at,omitempty"`
	ResolvedByID    *uuid.UUID           `json:"resolved_by,omitempty"`
	ResolutionNotes string               `json:"resolution_notes,omitempty"`
	AgeInDays       int                  `json:"age_in_days"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ToDefectResponse converts a domain Defect
func ToDefectResponse(d *defect.Defect, now time.Time) DefectResponse {
	return DefectResponse{
		ID:              d.ID,
		InspectionID:    d.InspectionID,
		ProductID:       d.ProductID,
		ReportedByID:    d.ReportedByID,
		Type:            string(d.Type),
		Severity:        string(d.Severity),
		Description:     d.Description,
		Location:        d.Location,
		Measurements:    d.Measurements,
		RootCause:       string(d.RootCause),
		Status:          string(d.Status),
		ImageURL:        d.ImageURL,
		DetectedBy:      string(d.DetectedBy),
		AIConfidence:    d.AIConfidence,
		ResolvedAt:      d.ResolvedAt,
		ResolvedByID:    d.ResolvedByID,
		ResolutionNotes: d.ResolutionNotes,
		AgeInDays:       d.AgeInDays(now),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToDefectResponses converts a slice of domain Defects
func ToDefectResponses(defects []defect.Defect, now time.Time) []DefectResponse {
	out := make([]DefectResponse, len(defects))
	for i := range defects {
		out[i] = ToDefectResponse(&defects[i], now)
	}
	return out
}

// BulkError records why one item of a bulk request failed
type BulkError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BulkResult summarizes a bulk create
type BulkResult struct {
	CreatedCount int              `json:"created_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []BulkError      `json:"errors,omitempty"`
	Defects      []DefectResponse `json:"defects"`
}

// CountResponse is one labelled tally
type CountResponse struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

// TrendResponse is one day of the severity trend
type TrendResponse struct {
	Date     string `json:"date"`
	Count    int64  `json:"count"`
	Critical int64  `json:"critical"`
	Major    int64  `json:"major"`
	Minor    int64  `json:"minor"`
}

// StatsResponse is the defect statistics payload
type StatsResponse struct {
	ByType      []CountResponse `json:"by_type"`
	BySeverity  []CountResponse `json:"by_severity"`
	ByRootCause []CountResponse `json:"by_root_cause"`
	ByStatus    []CountResponse `json:"by_status"`
	Trend       []TrendResponse `json:"trend"`
}
