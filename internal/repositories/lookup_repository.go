package repositories

import (
	"context"
	"fmt"

	"katalog/internal/models"

	"gorm.io/gorm"
)

// LookupRepository reads the reference data products point at.
type LookupRepository interface {
	ActiveBrands(ctx context.Context) ([]models.Brand, error)
	ActiveStores(ctx context.Context) ([]models.Store, error)
	ActiveCategories(ctx context.Context) ([]models.Category, error)
	BrandExists(ctx context.Context, id uint) (bool, error)
	StoreExists(ctx context.Context, id uint) (bool, error)
	MissingCategoryIDs(ctx context.Context, ids []uint) ([]uint, error)
}

// GORMLookupRepository is a GORM implementation of LookupRepository.
type GORMLookupRepository struct {
	db *gorm.DB
}

func NewGORMLookupRepository(db *gorm.DB) *GORMLookupRepository {
	return &GORMLookupRepository{db: db}
}

func (r *GORMLookupRepository) ActiveBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

func (r *GORMLookupRepository) ActiveStores(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return stores, nil
}

func (r *GORMLookupRepository) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order").
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *GORMLookupRepository) BrandExists(ctx context.Context, id uint) (bool, error) {
	return r.exists(ctx, &models.Brand{}, id)
}

func (r *GORMLookupRepository) StoreExists(ctx context.Context, id uint) (bool, error) {
	return r.exists(ctx, &models.Store{}, id)
}

func (r *GORMLookupRepository) exists(ctx context.Context, model any, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up %T %d: %w", model, id, err)
	}
	return count > 0, nil
}

// MissingCategoryIDs returns the ids that have no category row, in input order.
func (r *GORMLookupRepository) MissingCategoryIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to look up categories: %w", err)
	}
	known := make(map[uint]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
