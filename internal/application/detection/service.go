// Package detection runs the image classifier over inspection photos and
// turns confident findings into defects.
package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/detection"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const statsWindow = 30 * 24 * time.Hour

const (
	msgStorageUnconfigured = "Image storage is not configured; the image was analyzed but not saved"
	msgUploadFailed        = "Image upload failed; the detection result was not stored"
)

var ErrInspectionRequired = shared.NewDomainError("INVALID_INPUT", "Inspection ID is required")

// DefectReporter records defects whose picture is already stored
type DefectReporter interface {
	CreateWithStoredImage(ctx context.Context, actor uuid.UUID, req defectapp.CreateDefectRequest, stored *upload.Stored) (*defectapp.DefectResponse, error)
}

// Service runs image detection
type Service struct {
	detector    detection.Detector
	storage     upload.Storage
	rules       upload.Rules
	inspections inspection.Repository
	defects     DefectReporter
	facts       analytics.Repository
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new detection service
func NewService(
	detector detection.Detector,
	storage upload.Storage,
	rules upload.Rules,
	inspections inspection.Repository,
	defects DefectReporter,
	facts analytics.Repository,
	logger *zap.Logger,
) *Service {
	return &Service{
		detector:    detector,
		storage:     storage,
		rules:       rules,
		inspections: inspections,
		defects:     defects,
		facts:       facts,
		logger:      logger,
		now:         time.Now,
	}
}

// Detect classifies one image. With an inspection the picture is attached
// to it and a confident finding is recorded as a defect.
func (s *Service) Detect(ctx context.Context, actor uuid.UUID, img upload.Image, inspectionID *uuid.UUID) (*DetectResponse, error) {
	if err := s.rules.Check(img); err != nil {
		return nil, err
	}
	var insp *inspection.Inspection
	if inspectionID != nil {
		found, err := s.inspections.FindByID(ctx, *inspectionID)
		if err != nil {
			return nil, err
		}
		insp = found
	}

	a, err := s.analyze(ctx, actor, img, insp)
	if err != nil {
		return nil, err
	}
	return &DetectResponse{
		ImageURL:  a.imageURL,
		Detection: a.result,
		ModelUsed: s.detector.Name(),
		DefectID:  a.defectID,
		Message:   a.message,
	}, nil
}

// BulkAnalyze classifies up to Rules.MaxBulkImages images of one inspection.
// Each image is handled independently; an unavailable model aborts the batch.
func (s *Service) BulkAnalyze(ctx context.Context, actor uuid.UUID, inspectionID uuid.UUID, images []upload.Image) (*BulkResponse, error) {
	if inspectionID == uuid.Nil {
		return nil, ErrInspectionRequired
	}
	if len(images) == 0 {
		return nil, upload.ErrNoImages
	}
	if limit := s.rules.MaxBulkImages; limit > 0 && len(images) > limit {
		return nil, shared.NewDomainError(upload.ErrTooManyImages.Code,
			fmt.Sprintf("At most %d images can be analyzed at once", limit))
	}
	insp, err := s.inspections.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	resp := &BulkResponse{Results: make([]BulkItem, 0, len(images)), TotalImages: len(images)}
	for _, img := range images {
		if err := s.rules.Check(img); err != nil {
			resp.Errors = append(resp.Errors, BulkError{Filename: img.Filename, Error: err.Error()})
			continue
		}
		a, err := s.analyze(ctx, actor, img, insp)
		if errors.Is(err, detection.ErrModelUnavailable) {
			return nil, err
		}
		if err != nil {
			resp.Errors = append(resp.Errors, BulkError{Filename: img.Filename, Error: err.Error()})
			continue
		}
		resp.Results = append(resp.Results, BulkItem{
			Filename:  img.Filename,
			ImageURL:  a.imageURL,
			Detection: a.result,
			DefectID:  a.defectID,
		})
	}

	s.logger.Info("Bulk analysis finished",
		zap.String("inspection_id", inspectionID.String()),
		zap.Int("analyzed", len(resp.Results)),
		zap.Int("failed", len(resp.Errors)))
	return resp, nil
}

// Stats summarizes AI-detected defects of the last 30 days
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	facts, err := s.facts.AIDefectFactsSince(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return nil, err
	}
	m := analytics.AI(facts)
	resp := &StatsResponse{
		TotalDetections: m.TotalDetections,
		ConfidenceStats: ConfidenceStats{
			Avg: m.AvgConfidence.Round(2).InexactFloat64(),
			Min: m.MinConfidence.Round(2).InexactFloat64(),
			Max: m.MaxConfidence.Round(2).InexactFloat64(),
		},
	}
	for _, c := range analytics.CountBy(facts, analytics.ByType) {
		resp.DefectsByType = append(resp.DefectsByType, CountResponse{ID: c.ID, Count: c.Count})
	}
	for _, d := range analytics.DefectsPerDay(facts) {
		resp.DetectionsByDay = append(resp.DetectionsByDay, DayCountResponse{Date: d.Date, Count: d.Count})
	}
	if resp.DefectsByType == nil {
		resp.DefectsByType = []CountResponse{}
	}
	if resp.DetectionsByDay == nil {
		resp.DetectionsByDay = []DayCountResponse{}
	}
	return resp, nil
}

// ModelStatus reports whether the classifier is ready
func (s *Service) ModelStatus(ctx context.Context) detection.ModelStatus {
	return s.detector.Status(ctx)
}

type analysis struct {
	result   detection.Result
	imageURL *string
	defectID *uuid.UUID
	message  string
}

func (s *Service) analyze(ctx context.Context, actor uuid.UUID, img upload.Image, insp *inspection.Inspection) (*analysis, error) {
	result, err := s.detector.Detect(ctx, img.Data, img.ContentType)
	if err != nil {
		s.logger.Warn("Detection failed", zap.String("model", s.detector.Name()), zap.Error(err))
		return nil, err
	}
	a := &analysis{result: result}

	stored := s.store(ctx, img, a)
	if insp == nil {
		return a, nil
	}

	confidence := math.Round(result.Confidence*10000) / 100
	if stored != nil {
		if err := s.attach(ctx, insp.ID, inspection.Image{
			URL:             stored.URL,
			Key:             stored.Key,
			DefectsDetected: result.HasDefect,
			AIConfidence:    confidence,
		}); err != nil {
			return nil, err
		}
	}
	if !result.HasDefect {
		return a, nil
	}

	d, err := s.defects.CreateWithStoredImage(ctx, actor, defectapp.CreateDefectRequest{
		InspectionID: insp.ID,
		ProductID:    insp.ProductID,
		Type:         result.DefectType,
		Severity:     string(defect.SeverityFromConfidence(confidence)),
		Description:  result.DefectDescription(),
		DetectedBy:   string(defect.DetectedByAI),
		AIConfidence: confidence,
	}, stored)
	if err != nil {
		return nil, err
	}
	a.defectID = &d.ID
	s.logger.Info("AI defect recorded",
		zap.String("defect_id", d.ID.String()),
		zap.String("inspection_id", insp.ID.String()),
		zap.String("class", result.Class),
		zap.Float64("confidence", confidence))
	return a, nil
}

// store uploads the analyzed image; failures leave the result without a URL
func (s *Service) store(ctx context.Context, img upload.Image, a *analysis) *upload.Stored {
	if s.storage == nil || !s.storage.Configured() {
		a.message = msgStorageUnconfigured
		return nil
	}
	stored, err := s.storage.Upload(ctx, upload.FolderAIDetection, img)
	if err != nil {
		s.logger.Warn("Failed to store analyzed image", zap.String("filename", img.Filename), zap.Error(err))
		a.message = msgUploadFailed
		return nil
	}
	a.imageURL = &stored.URL
	return &stored
}

// attach appends the image to the inspection, reloading when a concurrent
// defect count update bumped the version first
func (s *Service) attach(ctx context.Context, id uuid.UUID, img inspection.Image) error {
	var err error
	for attempt := 0; attempt < maxAttachAttempts; attempt++ {
		var insp *inspection.Inspection
		insp, err = s.inspections.FindByID(ctx, id)
		if err != nil {
			return err
		}
		insp.AddImages(img)
		if err = s.inspections.Save(ctx, insp); !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

const maxAttachAttempts = 3
