package repositories

import (
	"context"
	"fmt"

	"katalog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var productSortColumns = map[string]string{
	"id":         "products.id",
	"name":       "products.name",
	"price":      "products.price",
	"stock_qty":  "products.stock_qty",
	"created_at": "products.created_at",
	"updated_at": "products.updated_at",
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func (r *GORMProductRepository) filtered(ctx context.Context, f ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("(products.name LIKE ? OR products.sku LIKE ?)", like, like)
	}
	if f.UnitID != nil {
		q = q.Where("products.unit_id = ?", *f.UnitID)
	}
	if f.BrandID != nil {
		q = q.Where("products.brand_id = ?", *f.BrandID)
	}
	if f.StoreID != nil {
		q = q.Where("products.store_id = ?", *f.StoreID)
	}
	if f.CategoryID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = products.id AND pc.category_id = ?)", *f.CategoryID)
	}
	if f.IsActive != nil {
		q = q.Where("products.is_active = ?", *f.IsActive)
	}
	return q
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Unit").
		Preload("Store").
		Preload("Brand").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_images.sort ASC, product_images.id ASC")
		})
}

// List returns one page of products matching the filter and the total match count.
func (r *GORMProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	q := withRelations(r.filtered(ctx, f))
	if f.Sort == "latest" {
		q = q.Order("products.created_at DESC")
	} else if col, ok := productSortColumns[f.Sort]; ok {
		dir := "ASC"
		if f.Dir == "desc" {
			dir = "DESC"
		}
		q = q.Order(col + " " + dir)
	} else {
		q = q.Order("products.created_at DESC")
	}
	q = q.Order("products.id DESC")
	if f.PerPage > 0 {
		q = q.Offset(f.Offset()).Limit(f.PerPage)
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	if err := r.loadCategories(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

type productCategoryRow struct {
	ProductID uint
	models.Category
}

// loadCategories fills Categories for every product in position order.
func (r *GORMProductRepository) loadCategories(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[uint]int, len(products))
	ids := make([]uint, 0, len(products))
	for i := range products {
		index[products[i].ID] = i
		ids = append(ids, products[i].ID)
		products[i].Categories = []models.Category{}
	}

	var rows []productCategoryRow
	err := r.db.WithContext(ctx).
		Table("product_categories").
		Select("product_categories.product_id, categories.*").
		Joins("JOIN categories ON categories.id = product_categories.category_id").
		Where("product_categories.product_id IN ?", ids).
		Order("product_categories.product_id, product_categories.position").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load product categories: %w", err)
	}
	for _, row := range rows {
		i := index[row.ProductID]
		products[i].Categories = append(products[i].Categories, row.Category)
	}
	return nil
}

// GetByID retrieves a single product with its unit, store, brand, images and categories.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := withRelations(r.db.WithContext(ctx)).First(&product, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, translate(err))
	}
	products := []models.Product{product}
	if err := r.loadCategories(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ExistsSlug reports whether another product already uses slug.
func (r *GORMProductRepository) ExistsSlug(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return r.exists(ctx, "slug", slug, excludeID)
}

// ExistsSKU reports whether another product already uses sku.
func (r *GORMProductRepository) ExistsSKU(ctx context.Context, sku string, excludeID uint) (bool, error) {
	return r.exists(ctx, "sku", sku, excludeID)
}

func (r *GORMProductRepository) exists(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where(column+" = ?", value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check product %s: %w", column, err)
	}
	return count > 0, nil
}

// Create inserts the product row only. Categories and images are written by
// SyncCategories and ReplaceImages.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update writes every column of the product row, zero values included.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).
		Model(product).
		Select("*").
		Omit(clause.Associations, "ID", "CreatedAt").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d not found for update: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the product together with its images and category links.
func (r *GORMProductRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete images of product %d: %w", id, err)
	}
	if err := db.Where("product_id = ?", id).Delete(&models.ProductCategory{}).Error; err != nil {
		return fmt.Errorf("failed to delete categories of product %d: %w", id, err)
	}
	res := db.Delete(&models.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// SetActive flips the active flag of a product.
func (r *GORMProductRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d not found for status update: %w", id, ErrNotFound)
	}
	return nil
}

// SyncCategories replaces the product's category links with categoryIDs,
// keeping their order in the position column.
func (r *GORMProductRepository) SyncCategories(ctx context.Context, productID uint, categoryIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductCategory{}).Error; err != nil {
		return fmt.Errorf("failed to clear categories of product %d: %w", productID, err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]models.ProductCategory, 0, len(categoryIDs))
	for i, id := range categoryIDs {
		links = append(links, models.ProductCategory{ProductID: productID, CategoryID: id, Position: i})
	}
	if err := db.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to sync categories of product %d: %w", productID, translate(err))
	}
	return nil
}

// ReplaceImages deletes the product's image rows and inserts images as new rows.
func (r *GORMProductRepository) ReplaceImages(ctx context.Context, productID uint, images []models.ProductImage) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to clear images of product %d: %w", productID, err)
	}
	if len(images) == 0 {
		return nil
	}
	rows := make([]models.ProductImage, len(images))
	for i, img := range images {
		rows[i] = models.ProductImage{ProductID: productID, Path: img.Path, Alt: img.Alt, Sort: img.Sort}
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store images of product %d: %w", productID, err)
	}
	return nil
}

// Transaction runs fn inside a database transaction.
func (r *GORMProductRepository) Transaction(ctx context.Context, fn func(repo ProductRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMProductRepository{db: tx})
	})
}
