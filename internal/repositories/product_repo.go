package repositories

import (
	"context"

	"katalog/internal/models"
)

// ProductFilter narrows a product listing. Nil pointers mean "no filter".
type ProductFilter struct {
	Search     string
	UnitID     *uint
	BrandID    *uint
	StoreID    *uint
	CategoryID *uint
	IsActive   *bool
	Sort       string
	Dir        string
	Page       int
	PerPage    int
}

// Offset returns the row offset of the requested page.
func (f ProductFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	ExistsSlug(ctx context.Context, slug string, excludeID uint) (bool, error)
	ExistsSKU(ctx context.Context, sku string, excludeID uint) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	SetActive(ctx context.Context, id uint, active bool) error
	SyncCategories(ctx context.Context, productID uint, categoryIDs []uint) error
	ReplaceImages(ctx context.Context, productID uint, images []models.ProductImage) error
	// Transaction runs fn against a repository bound to a single database
	// transaction. Returning an error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(repo ProductRepository) error) error
}
