package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable catalog item measured in a Unit.
type Product struct {
	ID          uint                `json:"id" gorm:"primaryKey"`
	Name        string              `json:"name" gorm:"size:150;not null"`
	Slug        string              `json:"slug" gorm:"size:180;not null;uniqueIndex"`
	SKU         *string             `json:"sku" gorm:"column:sku;size:80;uniqueIndex"`
	Description *string             `json:"description" gorm:"type:text"`
	UnitID      uint                `json:"unit_id" gorm:"not null;index"`
	Unit        Unit                `json:"unit"`
	StoreID     *uint               `json:"store_id" gorm:"index"`
	Store       *Store              `json:"store,omitempty"`
	BrandID     *uint               `json:"brand_id" gorm:"index"`
	Brand       *Brand              `json:"brand,omitempty"`
	Price       decimal.Decimal     `json:"price" gorm:"type:decimal(12,2);not null"`
	TaxRate     decimal.Decimal     `json:"tax_rate" gorm:"type:decimal(5,2);not null"`
	StockQty    decimal.Decimal     `json:"stock_qty" gorm:"type:decimal(12,3);not null"`
	MinQty      decimal.NullDecimal `json:"min_qty" gorm:"type:decimal(12,3)"`
	MaxQty      decimal.NullDecimal `json:"max_qty" gorm:"type:decimal(12,3)"`
	IsActive    bool                `json:"is_active" gorm:"not null;index"`
	Categories  []Category          `json:"categories" gorm:"-"` // loaded in product_categories position order
	Images      []ProductImage      `json:"images" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CategoryIDs returns the ids of the loaded categories in display order.
func (p *Product) CategoryIDs() []uint {
	ids := make([]uint, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// ProductImage is an image row owned by a product. Several rows may share a Path.
type ProductImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product_id" gorm:"not null;index"`
	Path      string    `json:"path" gorm:"size:255;not null"`
	Alt       *string   `json:"alt" gorm:"size:180"`
	Sort      int       `json:"sort" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductCategory is the join row between products and categories.
type ProductCategory struct {
	ProductID  uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false;index"`
	Position   int  `gorm:"not null"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}
