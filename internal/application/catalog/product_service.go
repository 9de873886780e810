// Package catalog manages the products whose batches are inspected.
package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/application/upload"
	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
	storage     upload.Storage
	rules       upload.Rules
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(
	productRepo catalog.ProductRepository,
	storage upload.Storage,
	rules upload.Rules,
	events shared.EventPublisher,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		storage:     storage,
		rules:       rules,
		events:      events,
		logger:      logger,
	}
}

// List returns products matching the filter and the total count
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = strings.TrimSpace(filter.Search)
	if c := strings.TrimSpace(filter.Category); c != "" {
		domainFilter.Filters["category"] = c
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if err := s.ensureNameFree(ctx, req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Name, req.Category)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		product.Description = strings.TrimSpace(req.Description)
	}
	if req.Specifications != nil {
		product.SetSpecifications(req.Specifications)
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	resp := ToProductResponse(product)
	return &resp, nil
}

// Update updates an existing product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, category, description := "", "", product.Description
	if req.Name != nil {
		if catalog.NameKeyFor(*req.Name) != product.NameKey {
			if err := s.ensureNameFree(ctx, *req.Name, product.ID); err != nil {
				return nil, err
			}
		}
		name = *req.Name
		if strings.TrimSpace(name) == "" {
			return nil, shared.NewDomainError("INVALID_NAME", "Please add a product name")
		}
	}
	if req.Category != nil {
		category = *req.Category
		if strings.TrimSpace(category) == "" {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Please add a category")
		}
	}
	if req.Description != nil {
		description = *req.Description
	}
	if err := product.Update(name, category, description); err != nil {
		return nil, err
	}
	if req.Specifications != nil {
		product.SetSpecifications(req.Specifications)
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := ToProductResponse(product)
	return &resp, nil
}

// Delete removes a product and its stored image
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeImage(ctx, product.ImageKey)
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

// UploadImage stores a new product picture and deletes the one it replaces
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, img upload.Image) (*ProductResponse, error) {
	if err := s.rules.Check(img); err != nil {
		return nil, err
	}
	if !s.storage.Configured() {
		return nil, upload.ErrStorageUnavailable
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.storage.Upload(ctx, upload.FolderProducts, img)
	if err != nil {
		return nil, err
	}
	previous := product.SetImage(stored.URL, stored.Key)
	if err := s.productRepo.Save(ctx, product); err != nil {
		s.removeImage(ctx, stored.Key)
		return nil, err
	}
	s.removeImage(ctx, previous)

	resp := ToProductResponse(product)
	return &resp, nil
}

func (s *ProductService) ensureNameFree(ctx context.Context, name string, excludeID uuid.UUID) error {
	exists, err := s.productRepo.ExistsByNameKey(ctx, catalog.NameKeyFor(name), excludeID)
	if err != nil {
		return err
	}
	if exists {
		return catalog.ErrProductNameExists
	}
	return nil
}

func (s *ProductService) removeImage(ctx context.Context, key string) {
	if key == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete stored image", zap.String("key", key), zap.Error(err))
	}
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.PullDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Error(err))
	}
}
