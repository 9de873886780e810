package inspection

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an inspection
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsValid reports whether the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Statuses lists all statuses in display order
func Statuses() []Status {
	return []Status{StatusPending, StatusCompleted, StatusFailed}
}

// ErrInspectionNotFound is returned when a referenced inspection does not exist
var ErrInspectionNotFound = shared.NewDomainError("INSPECTION_NOT_FOUND", "Inspection not found")

// Image is a photo attached to an inspection
type Image struct {
	URL             string  `json:"url"`
	Key             string  `json:"key"`
	DefectsDetected bool    `json:"defects_detected"`
	AIConfidence    float64 `json:"ai_confidence"`
}

// Inspection is a batch quality check of a product
type Inspection struct {
	shared.BaseAggregateRoot
	ProductID      uuid.UUID
	InspectorID    uuid.UUID
	Date           time.Time
	Status         Status
	BatchNumber    string
	Notes          string
	Images         []Image
	DefectsFound   int
	TotalInspected int
}

// NewInspection creates a pending inspection. A zero date defaults to now.
func NewInspection(productID, inspectorID uuid.UUID, batchNumber string, totalInspected int, date time.Time) (*Inspection, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Please specify the product")
	}
	if inspectorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INSPECTOR", "Please specify the inspector")
	}
	if date.IsZero() {
		date = time.Now()
	}

	i := &Inspection{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		InspectorID:       inspectorID,
		Date:              date,
		Status:            StatusPending,
		Images:            make([]Image, 0),
	}
	if err := i.setBatchNumber(batchNumber); err != nil {
		return nil, err
	}
	if err := i.setTotalInspected(totalInspected); err != nil {
		return nil, err
	}

	i.AddDomainEvent(NewInspectionCreatedEvent(i))
	return i, nil
}

// DefectRate returns defects found per hundred inspected items, 0 when nothing was inspected
func (i *Inspection) DefectRate() float64 {
	return i.DefectRateDecimal().InexactFloat64()
}

// DefectRateDecimal returns the defect rate as an exact decimal
func (i *Inspection) DefectRateDecimal() decimal.Decimal {
	return Rate(int64(i.DefectsFound), int64(i.TotalInspected))
}

// Rate computes defects/total*100. A zero total yields zero.
func Rate(defects, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(defects).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(total))
}

// Details holds the mutable fields of an inspection. Nil pointers keep the current value.
type Details struct {
	BatchNumber    *string
	Notes          *string
	TotalInspected *int
	DefectsFound   *int
	Date           *time.Time
	Status         *Status
}

// Update applies the given details
func (i *Inspection) Update(d Details) error {
	if d.BatchNumber != nil {
		if err := i.setBatchNumber(*d.BatchNumber); err != nil {
			return err
		}
	}
	if d.TotalInspected != nil {
		if err := i.setTotalInspected(*d.TotalInspected); err != nil {
			return err
		}
	}
	if d.DefectsFound != nil {
		if *d.DefectsFound < 0 {
			return shared.NewDomainError("INVALID_DEFECTS_FOUND", "Defects found cannot be negative")
		}
		i.DefectsFound = *d.DefectsFound
	}
	if d.Notes != nil {
		i.Notes = strings.TrimSpace(*d.Notes)
	}
	if d.Date != nil && !d.Date.IsZero() {
		i.Date = *d.Date
	}
	if d.Status != nil {
		if !d.Status.IsValid() {
			return shared.NewDomainError("INVALID_STATUS", "Status must be one of pending, completed, failed")
		}
		i.Status = *d.Status
	}
	i.IncrementVersion()
	i.AddDomainEvent(NewInspectionUpdatedEvent(i))
	return nil
}

// AddImages appends images to the inspection
func (i *Inspection) AddImages(images ...Image) {
	if len(images) == 0 {
		return
	}
	i.Images = append(i.Images, images...)
	i.IncrementVersion()
}

// ImageKeys returns the storage keys of all attached images
func (i *Inspection) ImageKeys() []string {
	keys := make([]string, 0, len(i.Images))
	for _, img := range i.Images {
		if img.Key != "" {
			keys = append(keys, img.Key)
		}
	}
	return keys
}

// Complete closes the inspection with the number of defects actually recorded.
// Any defect fails the batch.
func (i *Inspection) Complete(defectCount int) error {
	if defectCount < 0 {
		return shared.NewDomainError("INVALID_DEFECTS_FOUND", "Defects found cannot be negative")
	}
	i.DefectsFound = defectCount
	if defectCount > 0 {
		i.Status = StatusFailed
	} else {
		i.Status = StatusCompleted
	}
	i.IncrementVersion()
	i.AddDomainEvent(NewInspectionCompletedEvent(i))
	return nil
}

func (i *Inspection) setBatchNumber(batch string) error {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return shared.NewDomainError("INVALID_BATCH_NUMBER", "Please add a batch number")
	}
	if len(batch) > 100 {
		return shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot exceed 100 characters")
	}
	i.BatchNumber = batch
	return nil
}

func (i *Inspection) setTotalInspected(total int) error {
	if total < 1 {
		return shared.NewDomainError("INVALID_TOTAL_INSPECTED", "Total inspected must be at least 1")
	}
	i.TotalInspected = total
	return nil
}
