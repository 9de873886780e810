package models

import (
	"encoding/json"

	"github.com/qcdash/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	Name           string `gorm:"type:varchar(200);not null"`
	NameKey        string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Category       string `gorm:"type:varchar(100);not null;index"`
	Description    string `gorm:"type:text"`
	ImageURL       string `gorm:"type:varchar(500)"`
	ImageKey       string `gorm:"type:varchar(255)"`
	Specifications string `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	specs := make(map[string]string)
	if m.Specifications != "" {
		// malformed JSON leaves the map empty
		_ = json.Unmarshal([]byte(m.Specifications), &specs)
	}
	return &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		NameKey:           m.NameKey,
		Category:          m.Category,
		Description:       m.Description,
		ImageURL:          m.ImageURL,
		ImageKey:          m.ImageKey,
		Specifications:    specs,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.NameKey = p.NameKey
	m.Category = p.Category
	m.Description = p.Description
	m.ImageURL = p.ImageURL
	m.ImageKey = p.ImageKey
	m.Specifications = "{}"
	if len(p.Specifications) > 0 {
		if data, err := json.Marshal(p.Specifications); err == nil {
			m.Specifications = string(data)
		}
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
