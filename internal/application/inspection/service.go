// Package inspection records batch inspections and closes them out.
package inspection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	defectapp "github.com/qcdash/backend/internal/application/defect"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var ErrProductNotFound = shared.NewNotFoundError("Product")

// maxSaveAttempts bounds the reload-and-retry loop on version conflicts
const maxSaveAttempts = 3

// UserLookup resolves inspector names
type UserLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error)
}

// Service handles inspection operations
type Service struct {
	inspections inspection.Repository
	defects     defect.Repository
	products    catalog.ProductRepository
	users       UserLookup
	storage     upload.Storage
	rules       upload.Rules
	events      shared.EventPublisher
	tx          TransactionScope
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new inspection service. events may be nil.
func NewService(
	inspections inspection.Repository,
	defects defect.Repository,
	products catalog.ProductRepository,
	users UserLookup,
	storage upload.Storage,
	rules upload.Rules,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		inspections: inspections,
		defects:     defects,
		products:    products,
		users:       users,
		storage:     storage,
		rules:       rules,
		events:      events,
		tx:          NewNoOpTransactionScope(inspections, defects),
		logger:      logger,
		now:         time.Now,
	}
}

// WithTransactionScope makes multi-row deletes atomic
func (s *Service) WithTransactionScope(tx TransactionScope) *Service {
	if tx != nil {
		s.tx = tx
	}
	return s
}

// List returns inspections matching the query, newest first
func (s *Service) List(ctx context.Context, q ListInspectionsQuery) ([]InspectionResponse, int64, error) {
	items, total, err := s.inspections.FindAll(ctx, toFilter(q))
	if err != nil {
		return nil, 0, err
	}
	out := ToInspectionResponses(items)
	s.attachNames(ctx, out)
	return out, total, nil
}

// ListAll returns every inspection matching the query, ignoring paging
func (s *Service) ListAll(ctx context.Context, q ListInspectionsQuery) ([]InspectionResponse, error) {
	filter := toFilter(q)
	filter.Page, filter.PageSize = 1, 0
	items, _, err := s.inspections.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := ToInspectionResponses(items)
	s.attachNames(ctx, out)
	return out, nil
}

// Get returns an inspection with its defects
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DetailResponse, error) {
	insp, err := s.inspections.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	defects, err := s.defects.FindByInspection(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := []InspectionResponse{ToInspectionResponse(insp)}
	s.attachNames(ctx, resp)
	detail := &DetailResponse{
		Inspection: resp[0],
		Defects:    defectapp.ToDefectResponses(defects, s.now()),
	}
	for i := range detail.Defects {
		if detail.Defects[i].ProductID == insp.ProductID {
			detail.Defects[i].ProductName = resp[0].ProductName
		}
	}
	return detail, nil
}

// Create records a pending inspection performed by actor
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateInspectionRequest) (*InspectionResponse, error) {
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}
	insp, err := inspection.NewInspection(product.ID, actor, req.BatchNumber, req.TotalInspected, date)
	if err != nil {
		return nil, err
	}
	insp.Notes = strings.TrimSpace(req.Notes)
	if err := s.inspections.Save(ctx, insp); err != nil {
		return nil, err
	}
	s.publish(ctx, insp.PullDomainEvents()...)

	s.logger.Info("Inspection recorded",
		zap.String("inspection_id", insp.ID.String()),
		zap.String("product_id", product.ID.String()),
		zap.String("batch_number", insp.BatchNumber))
	resp := ToInspectionResponse(insp)
	resp.ProductName = product.Name
	return &resp, nil
}

// Update edits an inspection
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateInspectionRequest) (*InspectionResponse, error) {
	details := inspection.Details{
		BatchNumber:    req.BatchNumber,
		Notes:          req.Notes,
		TotalInspected: req.TotalInspected,
		DefectsFound:   req.DefectsFound,
		Date:           req.Date,
	}
	if req.Status != nil {
		st := inspection.Status(*req.Status)
		details.Status = &st
	}
	insp, err := s.mutate(ctx, id, func(insp *inspection.Inspection) error {
		return insp.Update(details)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, insp.PullDomainEvents()...)

	resp := []InspectionResponse{ToInspectionResponse(insp)}
	s.attachNames(ctx, resp)
	return &resp[0], nil
}

// Delete removes an inspection, its defects and every stored picture
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	insp, err := s.inspections.FindByID(ctx, id)
	if err != nil {
		return err
	}
	var defectKeys []string
	err = s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		keys, err := repos.Defects().DeleteByInspection(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Inspections().Delete(ctx, id); err != nil {
			return err
		}
		defectKeys = keys
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range append(defectKeys, insp.ImageKeys()...) {
		s.removeImage(ctx, key)
	}
	s.publish(ctx, inspection.NewInspectionDeletedEvent(insp))

	s.logger.Info("Inspection deleted",
		zap.String("inspection_id", id.String()),
		zap.Int("defects_removed", len(defectKeys)))
	return nil
}

// AddImages uploads pictures and appends them to the inspection
func (s *Service) AddImages(ctx context.Context, id uuid.UUID, images []upload.Image) (*InspectionResponse, error) {
	if err := s.rules.CheckAll(images, s.rules.MaxInspectionImages); err != nil {
		return nil, err
	}
	if !s.storage.Configured() {
		return nil, upload.ErrStorageUnavailable
	}
	if _, err := s.inspections.FindByID(ctx, id); err != nil {
		return nil, err
	}

	added := make([]inspection.Image, 0, len(images))
	for _, img := range images {
		stored, err := s.storage.Upload(ctx, upload.FolderInspections, img)
		if err != nil {
			for _, a := range added {
				s.removeImage(ctx, a.Key)
			}
			return nil, err
		}
		added = append(added, inspection.Image{URL: stored.URL, Key: stored.Key})
	}
	insp, err := s.mutate(ctx, id, func(insp *inspection.Inspection) error {
		insp.AddImages(added...)
		return nil
	})
	if err != nil {
		for _, a := range added {
			s.removeImage(ctx, a.Key)
		}
		return nil, err
	}

	resp := ToInspectionResponse(insp)
	return &resp, nil
}

// Complete closes the inspection with the number of defects on record
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*InspectionResponse, error) {
	insp, err := s.mutate(ctx, id, func(insp *inspection.Inspection) error {
		count, err := s.defects.CountByInspection(ctx, id)
		if err != nil {
			return err
		}
		return insp.Complete(int(count))
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, insp.PullDomainEvents()...)

	s.logger.Info("Inspection completed",
		zap.String("inspection_id", id.String()),
		zap.String("status", string(insp.Status)),
		zap.Int("defects_found", insp.DefectsFound),
		zap.Float64("defect_rate", insp.DefectRate()))
	resp := []InspectionResponse{ToInspectionResponse(insp)}
	s.attachNames(ctx, resp)
	return &resp[0], nil
}

// mutate loads the inspection, applies fn and saves it. A version conflict
// means another writer got there first; the fresh row is reloaded and fn reapplied.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*inspection.Inspection) error) (*inspection.Inspection, error) {
	for attempt := 1; ; attempt++ {
		insp, err := s.inspections.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(insp); err != nil {
			return nil, err
		}
		err = s.inspections.Save(ctx, insp)
		if err == nil {
			return insp, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt == maxSaveAttempts {
			return nil, err
		}
		s.logger.Debug("Inspection changed concurrently, retrying",
			zap.String("inspection_id", id.String()), zap.Int("attempt", attempt))
	}
}

func (s *Service) attachNames(ctx context.Context, items []InspectionResponse) {
	if len(items) == 0 {
		return
	}
	productIDs := make([]uuid.UUID, 0, len(items))
	inspectorIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool)
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			productIDs = append(productIDs, it.ProductID)
		}
		if !seen[it.InspectorID] {
			seen[it.InspectorID] = true
			inspectorIDs = append(inspectorIDs, it.InspectorID)
		}
	}

	productNames := make(map[uuid.UUID]string)
	if products, err := s.products.FindByIDs(ctx, productIDs); err != nil {
		s.logger.Warn("Failed to load product names", zap.Error(err))
	} else {
		for _, p := range products {
			productNames[p.ID] = p.Name
		}
	}
	inspectorNames := make(map[uuid.UUID]string)
	if s.users != nil && len(inspectorIDs) > 0 {
		if users, err := s.users.FindByIDs(ctx, inspectorIDs); err != nil {
			s.logger.Warn("Failed to load inspector names", zap.Error(err))
		} else {
			for _, u := range users {
				inspectorNames[u.ID] = u.Name
			}
		}
	}
	for i := range items {
		items[i].ProductName = productNames[items[i].ProductID]
		items[i].InspectorName = inspectorNames[items[i].InspectorID]
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
		s.logger.Warn("Failed to publish inspection events", zap.Error(err))
	}
}

func toFilter(q ListInspectionsQuery) inspection.Filter {
	f := inspection.NewFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	f.OrderBy = q.OrderBy
	f.OrderDir = q.OrderDir
	f.ProductID = q.ProductID
	f.InspectorID = q.InspectorID
	f.Day = q.Day
	if q.Status != "" {
		st := inspection.Status(q.Status)
		f.Status = &st
	}
	return f
}
