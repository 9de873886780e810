// Package defect records, triages and summarizes product defects.
package defect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound = shared.NewNotFoundError("Product")
	ErrEmptyBulk       = shared.NewDomainError("INVALID_INPUT", "Please provide at least one defect")
)

// Service handles defect operations
type Service struct {
	defects     defect.Repository
	inspections inspection.Repository
	products    catalog.ProductRepository
	facts       analytics.Repository
	storage     upload.Storage
	rules       upload.Rules
	events      shared.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new defect service. events may be nil.
func NewService(
	defects defect.Repository,
	inspections inspection.Repository,
	products catalog.ProductRepository,
	facts analytics.Repository,
	storage upload.Storage,
	rules upload.Rules,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		defects:     defects,
		inspections: inspections,
		products:    products,
		facts:       facts,
		storage:     storage,
		rules:       rules,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// Create reports a defect against an inspection, with an optional picture
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateDefectRequest, img *upload.Image) (*DefectResponse, error) {
	if img != nil {
		if err := s.rules.Check(*img); err != nil {
			return nil, err
		}
		if !s.storage.Configured() {
			return nil, upload.ErrStorageUnavailable
		}
	}
	insp, err := s.loadTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	var stored *upload.Stored
	if img != nil {
		st, err := s.storage.Upload(ctx, upload.FolderDefects, *img)
		if err != nil {
			return nil, err
		}
		stored = &st
	}
	resp, err := s.report(ctx, actor, insp, req, stored)
	if err != nil && stored != nil {
		s.removeImage(ctx, stored.Key)
	}
	return resp, err
}

// CreateWithStoredImage reports a defect whose picture is already in storage.
// stored may be nil.
func (s *Service) CreateWithStoredImage(ctx context.Context, actor uuid.UUID, req CreateDefectRequest, stored *upload.Stored) (*DefectResponse, error) {
	insp, err := s.loadTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, actor, insp, req, stored)
}

// BulkCreate reports each defect independently and collects per-item failures
func (s *Service) BulkCreate(ctx context.Context, actor uuid.UUID, req BulkCreateRequest) (*BulkResult, error) {
	if len(req.Defects) == 0 {
		return nil, ErrEmptyBulk
	}
	result := &BulkResult{Defects: make([]DefectResponse, 0, len(req.Defects))}
	for i, item := range req.Defects {
		resp, err := s.CreateWithStoredImage(ctx, actor, item, nil)
		if err != nil {
			result.Errors = append(result.Errors, BulkError{Index: i, Error: bulkMessage(err, i)})
			continue
		}
		result.Defects = append(result.Defects, *resp)
	}
	result.CreatedCount = len(result.Defects)
	result.ErrorCount = len(result.Errors)

	s.logger.Info("Bulk defects reported",
		zap.Int("created", result.CreatedCount),
		zap.Int("failed", result.ErrorCount))
	return result, nil
}

// List returns defects matching the query
func (s *Service) List(ctx context.Context, q ListDefectsQuery) ([]DefectResponse, int64, error) {
	filter := toFilter(q)
	defects, total, err := s.defects.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := ToDefectResponses(defects, s.now())
	s.attachProductNames(ctx, out)
	return out, total, nil
}

// ListAll returns every defect matching the query, ignoring paging
func (s *Service) ListAll(ctx context.Context, q ListDefectsQuery) ([]DefectResponse, error) {
	filter := toFilter(q)
	filter.Page, filter.PageSize = 1, 0
	defects, _, err := s.defects.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := ToDefectResponses(defects, s.now())
	s.attachProductNames(ctx, out)
	return out, nil
}

// ListByInspection returns the defects of one inspection, newest first
func (s *Service) ListByInspection(ctx context.Context, inspectionID uuid.UUID) ([]DefectResponse, error) {
	defects, err := s.defects.FindByInspection(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	return ToDefectResponses(defects, s.now()), nil
}

// GetByID returns one defect
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*DefectResponse, error) {
	d, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToDefectResponse(d, s.now())
	s.attachProductNames(ctx, []DefectResponse{resp})
	return &resp, nil
}

// Update edits a defect. A new picture replaces the stored one.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateDefectRequest, img *upload.Image) (*DefectResponse, error) {
	if img != nil {
		if err := s.rules.Check(*img); err != nil {
			return nil, err
		}
		if !s.storage.Configured() {
			return nil, upload.ErrStorageUnavailable
		}
	}
	d, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Update(toChanges(req), actor, s.now()); err != nil {
		return nil, err
	}

	previous := ""
	if img != nil {
		stored, err := s.storage.Upload(ctx, upload.FolderDefects, *img)
		if err != nil {
			return nil, err
		}
		previous = d.SetImage(stored.URL, stored.Key)
	}
	if err := s.defects.Save(ctx, d); err != nil {
		if img != nil {
			s.removeImage(ctx, d.ImageKey)
		}
		return nil, err
	}
	s.removeImage(ctx, previous)
	s.publish(ctx, d.PullDomainEvents()...)

	resp := ToDefectResponse(d, s.now())
	return &resp, nil
}

// Resolve closes a defect with resolution notes
func (s *Service) Resolve(ctx context.Context, actor, id uuid.UUID, req ResolveDefectRequest) (*DefectResponse, error) {
	d, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Resolve(actor, req.ResolutionNotes, s.now())
	if err := s.defects.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publish(ctx, d.PullDomainEvents()...)
	s.logger.Info("Defect resolved", zap.String("defect_id", id.String()), zap.String("by", actor.String()))

	resp := ToDefectResponse(d, s.now())
	return &resp, nil
}

// Delete removes a defect, decrements its inspection's count and drops the picture
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.defects.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.defects.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.inspections.AdjustDefectsFound(ctx, d.InspectionID, -1); err != nil && !errors.Is(err, inspection.ErrInspectionNotFound) {
		s.logger.Error("Failed to decrement defects found",
			zap.String("inspection_id", d.InspectionID.String()), zap.Error(err))
	}
	s.removeImage(ctx, d.ImageKey)
	s.publish(ctx, defect.NewDefectDeletedEvent(d))
	s.logger.Info("Defect deleted", zap.String("defect_id", id.String()))
	return nil
}

// Stats tallies defects by type, severity, root cause and status, with a daily trend
func (s *Service) Stats(ctx context.Context, q StatsQuery) (*StatsResponse, error) {
	facts, err := s.facts.DefectFacts(ctx, analytics.Query{
		Range:     shared.DateRange{From: q.From, To: q.To},
		ProductID: q.ProductID,
	})
	if err != nil {
		return nil, err
	}
	trend := analytics.SeverityTrend(facts)
	resp := &StatsResponse{
		ByType:      toCounts(analytics.CountBy(facts, analytics.ByType)),
		BySeverity:  toCounts(analytics.CountBy(facts, analytics.BySeverity)),
		ByRootCause: toCounts(analytics.CountBy(facts, analytics.ByRootCause)),
		ByStatus:    toCounts(analytics.CountBy(facts, analytics.ByStatus)),
		Trend:       make([]TrendResponse, len(trend)),
	}
	for i, p := range trend {
		resp.Trend[i] = TrendResponse{Date: p.Date, Count: p.Count, Critical: p.Critical, Major: p.Major, Minor: p.Minor}
	}
	return resp, nil
}

// loadTargets checks that the inspection and product of a report exist
func (s *Service) loadTargets(ctx context.Context, req CreateDefectRequest) (*inspection.Inspection, error) {
	insp, err := s.inspections.FindByID(ctx, req.InspectionID)
	if err != nil {
		if errors.Is(err, inspection.ErrInspectionNotFound) {
			return nil, &missingTarget{resource: "Inspection", err: err}
		}
		return nil, err
	}
	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &missingTarget{resource: "Product", err: ErrProductNotFound}
		}
		return nil, err
	}
	return insp, nil
}

// missingTarget tells bulk reports which referenced record was absent
type missingTarget struct {
	resource string
	err      error
}

func (e *missingTarget) Error() string { return e.err.Error() }
func (e *missingTarget) Unwrap() error { return e.err }

func (s *Service) report(ctx context.Context, actor uuid.UUID, insp *inspection.Inspection, req CreateDefectRequest, stored *upload.Stored) (*DefectResponse, error) {
	d, err := defect.NewDefect(defect.Report{
		InspectionID: insp.ID,
		ProductID:    req.ProductID,
		ReportedByID: actor,
		Type:         defect.Type(req.Type),
		Severity:     defect.Severity(req.Severity),
		Description:  req.Description,
		Location:     req.Location,
		Measurements: req.Measurements,
		RootCause:    defect.RootCause(req.RootCause),
		Status:       defect.Status(req.Status),
		DetectedBy:   defect.DetectionSource(req.DetectedBy),
		AIConfidence: req.AIConfidence,
	}, insp.BatchNumber)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		d.SetImage(stored.URL, stored.Key)
	}
	if err := s.defects.Save(ctx, d); err != nil {
		return nil, err
	}
	if err := s.inspections.AdjustDefectsFound(ctx, insp.ID, 1); err != nil {
		s.logger.Error("Failed to increment defects found",
			zap.String("inspection_id", insp.ID.String()), zap.Error(err))
	}
	s.publish(ctx, d.PullDomainEvents()...)

	s.logger.Info("Defect reported",
		zap.String("defect_id", d.ID.String()),
		zap.String("inspection_id", insp.ID.String()),
		zap.String("severity", string(d.Severity)),
		zap.String("detected_by", string(d.DetectedBy)))
	resp := ToDefectResponse(d, s.now())
	return &resp, nil
}

func (s *Service) attachProductNames(ctx context.Context, items []DefectResponse) {
	if len(items) == 0 {
		return
	}
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load product names", zap.Error(err))
		return
	}
	names := make(map[uuid.UUID]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for i := range items {
		items[i].ProductName = names[items[i].ProductID]
	}
}

func (s *Service) removeImage(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete stored image", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish defect events", zap.Error(err))
	}
}

func bulkMessage(err error, index int) string {
	var missing *missingTarget
	if errors.As(err, &missing) {
		return fmt.Sprintf("%s not found for defect at index %d", missing.resource, index)
	}
	return err.Error()
}

func toFilter(q ListDefectsQuery) defect.Filter {
	f := defect.NewFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		f.OrderDir = q.OrderDir
	}
	f.ProductID = q.ProductID
	f.InspectionID = q.InspectionID
	f.Created = shared.DateRange{From: q.From, To: q.To}
	if q.Type != "" {
		t := defect.Type(q.Type)
		f.Type = &t
	}
	if q.Severity != "" {
		sev := defect.Severity(q.Severity)
		f.Severity = &sev
	}
	if q.Status != "" {
		st := defect.Status(q.Status)
		f.Status = &st
	}
	if q.RootCause != "" {
		rc := defect.RootCause(q.RootCause)
		f.RootCause = &rc
	}
	return f
}

func toChanges(req UpdateDefectRequest) defect.Changes {
	c := defect.Changes{
		Description:     req.Description,
		Location:        req.Location,
		Measurements:    req.Measurements,
		ResolutionNotes: req.ResolutionNotes,
	}
	if req.Type != nil {
		t := defect.Type(*req.Type)
		c.Type = &t
	}
	if req.Severity != nil {
		sev := defect.Severity(*req.Severity)
		c.Severity = &sev
	}
	if req.RootCause != nil {
		rc := defect.RootCause(*req.RootCause)
		c.RootCause = &rc
	}
	if req.Status != nil {
		st := defect.Status(*req.Status)
		c.Status = &st
	}
	return c
}

func toCounts(counts []analytics.Count) []CountResponse {
	out := make([]CountResponse, len(counts))
	for i, c := range counts {
		out[i] = CountResponse{ID: c.ID, Count: c.Count}
	}
	return out
}
