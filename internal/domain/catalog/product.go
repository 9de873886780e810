package catalog

import (
	"strings"

	"github.com/qcdash/backend/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrProductNameExists is returned when a product name is taken
	ErrProductNameExists = shared.NewDomainError("PRODUCT_NAME_EXISTS", "Product with this name already exists")
	// ErrProductInUse is returned when inspections or defects still reference the product
	ErrProductInUse = shared.NewDomainError("PRODUCT_IN_USE", "Product has inspections or defects and cannot be deleted")
)

var nameFolder = cases.Fold()

// Product is an item whose batches are inspected
type Product struct {
	shared.BaseAggregateRoot
	Name           string
	NameKey        string
	Category       string
	Description    string
	ImageURL       string
	ImageKey       string
	Specifications map[string]string
}

// NewProduct creates a product with a trimmed name and required category
func NewProduct(name, category string) (*Product, error) {
	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Specifications:    make(map[string]string),
	}
	if err := p.setName(name); err != nil {
		return nil, err
	}
	if err := p.setCategory(category); err != nil {
		return nil, err
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// NameKeyFor returns the uniqueness key for a product name: NFC normalized and case folded
func NameKeyFor(name string) string {
	return nameFolder.String(norm.NFC.String(strings.TrimSpace(name)))
}

// Update changes the descriptive fields. Empty name or category keep the current value.
func (p *Product) Update(name, category, description string) error {
	if name != "" {
		if err := p.setName(name); err != nil {
			return err
		}
	}
	if category != "" {
		if err := p.setCategory(category); err != nil {
			return err
		}
	}
	p.Description = strings.TrimSpace(description)
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// SetSpecifications replaces the specification map
func (p *Product) SetSpecifications(specs map[string]string) {
	cleaned := make(map[string]string, len(specs))
	for k, v := range specs {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		cleaned[k] = strings.TrimSpace(v)
	}
	p.Specifications = cleaned
	p.IncrementVersion()
}

// SetImage records the uploaded image and returns the key of the image it replaced
func (p *Product) SetImage(url, key string) string {
	previous := p.ImageKey
	p.ImageURL = url
	p.ImageKey = key
	p.IncrementVersion()
	return previous
}

func (p *Product) setName(name string) error {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Please add a product name")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	p.Name = name
	p.NameKey = NameKeyFor(name)
	return nil
}

func (p *Product) setCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return shared.NewDomainError("INVALID_CATEGORY", "Please add a category")
	}
	p.Category = category
	return nil
}
