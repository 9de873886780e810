package detection

import (
	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/detection"
)

// DetectResponse is the outcome of analyzing one image
type DetectResponse struct {
	ImageURL  *string          `json:"image_url"`
	Detection detection.Result `json:"detection"`
	ModelUsed string           `json:"model_used"`
	DefectID  *uuid.UUID       `json:"defect_id,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// BulkItem is the analysis of one image in a bulk request
type BulkItem struct {
	Filename  string           `json:"filename"`
	ImageURL  *string          `json:"image_url"`
	Detection detection.Result `json:"detection"`
	DefectID  *uuid.UUID       `json:"defect_id,omitempty"`
}

// BulkError is an image the bulk request could not analyze
type BulkError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BulkResponse is the outcome of a bulk analysis
type BulkResponse struct {
	Results     []BulkItem  `json:"results"`
	Errors      []BulkError `json:"errors,omitempty"`
	TotalImages int         `json:"total_images"`
}

// ConfidenceStats summarizes classifier confidence in percent
type ConfidenceStats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CountResponse is one labelled tally
type CountResponse struct {
	ID    string `json:"id"`
	Count int64  `json:"count"`
}

// DayCountResponse is one day of detections
type DayCountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatsResponse summarizes AI-detected defects
type StatsResponse struct {
	TotalDetections int64              `json:"total_detections"`
	ConfidenceStats ConfidenceStats    `json:"confidence_stats"`
	DefectsByType   []CountResponse    `json:"defects_by_type"`
	DetectionsByDay []DayCountResponse `json:"detections_by_day"`
}
