package handlers

import (
	"time"

	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

type unitRef struct {
	ID   uint    `json:"id"`
	Name string  `json:"name"`
	Text string  `json:"text"`
	Step float64 `json:"step"`
}

type namedRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type imageResource struct {
	ID   uint    `json:"id"`
	Path string  `json:"path"`
	Alt  *string `json:"alt"`
	Sort int     `json:"sort"`
}

// ProductResource is the JSON shape of a product.
type ProductResource struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	SKU         *string         `json:"sku"`
	Description *string         `json:"description"`
	UnitID      uint            `json:"unit_id"`
	Unit        unitRef         `json:"unit"`
	StoreID     *uint           `json:"store_id"`
	Store       *namedRef       `json:"store"`
	BrandID     *uint           `json:"brand_id"`
	Brand       *namedRef       `json:"brand"`
	Price       float64         `json:"price"`
	TaxRate     float64         `json:"tax_rate"`
	StockQty    interface{}     `json:"stock_qty"`
	MinQty      interface{}     `json:"min_qty"`
	MaxQty      interface{}     `json:"max_qty"`
	IsActive    bool            `json:"is_active"`
	CategoryIDs []uint          `json:"category_ids"`
	Categories  []namedRef      `json:"categories"`
	Images      []imageResource `json:"images"`
	ImageURL    *string         `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProductResource shapes p for clients. Quantities of integer units are
// rendered as whole numbers.
func NewProductResource(p *models.Product) ProductResource {
	r := ProductResource{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		SKU:         p.SKU,
		Description: p.Description,
		UnitID:      p.UnitID,
		Unit: unitRef{
			ID:   p.Unit.ID,
			Name: p.Unit.Name,
			Text: p.Unit.Text,
			Step: p.Unit.Step.InexactFloat64(),
		},
		StoreID:     p.StoreID,
		BrandID:     p.BrandID,
		Price:       p.Price.InexactFloat64(),
		TaxRate:     p.TaxRate.InexactFloat64(),
		StockQty:    services.DisplayQuantity(p.Unit, p.StockQty),
		IsActive:    p.IsActive,
		CategoryIDs: p.CategoryIDs(),
		Categories:  make([]namedRef, 0, len(p.Categories)),
		Images:      make([]imageResource, 0, len(p.Images)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.MinQty.Valid {
		r.MinQty = services.DisplayQuantity(p.Unit, p.MinQty.Decimal)
	}
	if p.MaxQty.Valid {
		r.MaxQty = services.DisplayQuantity(p.Unit, p.MaxQty.Decimal)
	}
	if p.Store != nil {
		r.Store = &namedRef{ID: p.Store.ID, Name: p.Store.Name}
	}
	if p.Brand != nil {
		r.Brand = &namedRef{ID: p.Brand.ID, Name: p.Brand.Name}
	}
	for _, c := range p.Categories {
		r.Categories = append(r.Categories, namedRef{ID: c.ID, Name: c.Name})
	}
	for _, img := range p.Images {
		r.Images = append(r.Images, imageResource{ID: img.ID, Path: img.Path, Alt: img.Alt, Sort: img.Sort})
	}
	if len(p.Images) > 0 {
		first := p.Images[0].Path
		r.ImageURL = &first
	}
	return r
}

// UnitResource is the JSON shape of a unit.
type UnitResource struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Text          string    `json:"text"`
	Step          float64   `json:"step"`
	IsActive      bool      `json:"is_active"`
	ProductsCount *int64    `json:"products_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewUnitResource(u *models.Unit) UnitResource {
	return UnitResource{
		ID:        u.ID,
		Name:      u.Name,
		Text:      u.Text,
		Step:      u.Step.InexactFloat64(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newUnitListResource(u repositories.UnitWithCount) UnitResource {
	r := NewUnitResource(&u.Unit)
	count := u.ProductsCount
	r.ProductsCount = &count
	return r
}

// Meta describes the page of a list response.
type Meta struct {
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
}

func newMeta(total int64, page, perPage int) Meta {
	last := 1
	if perPage > 0 && total > 0 {
		last = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Meta{Total: total, PerPage: perPage, CurrentPage: page, LastPage: last}
}

func envelope(data interface{}, meta Meta) fiber.Map {
	return fiber.Map{"data": data, "meta": meta}
}
