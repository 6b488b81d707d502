package repositories

import (
	"context"
	"fmt"

	"katalog/internal/models"

	"gorm.io/gorm"
)

// UnitWithCount is a unit together with the number of products measured in it.
type UnitWithCount struct {
	models.Unit
	ProductsCount int64 `gorm:"column:products_count"`
}

// UnitRepository defines the interface for unit data access.
type UnitRepository interface {
	List(ctx context.Context, active *bool) ([]UnitWithCount, error)
	GetByID(ctx context.Context, id uint) (*models.Unit, error)
	Create(ctx context.Context, unit *models.Unit) error
	Update(ctx context.Context, unit *models.Unit) error
	Delete(ctx context.Context, id uint) error
	SetActive(ctx context.Context, id uint, active bool) error
	CountProducts(ctx context.Context, id uint) (int64, error)
	HasStockedProducts(ctx context.Context, id uint) (bool, error)
	ProductsByUnit(ctx context.Context, id uint) ([]models.Product, error)
	ReassignProducts(ctx context.Context, fromID, toID uint) (int64, error)
	Transaction(ctx context.Context, fn func(repo UnitRepository) error) error
}

// GORMUnitRepository is a GORM implementation of UnitRepository.
type GORMUnitRepository struct {
	db *gorm.DB
}

// NewGORMUnitRepository creates a new instance of GORMUnitRepository.
func NewGORMUnitRepository(db *gorm.DB) *GORMUnitRepository {
	return &GORMUnitRepository{db: db}
}

// List returns units ordered by name with their product counts.
func (r *GORMUnitRepository) List(ctx context.Context, active *bool) ([]UnitWithCount, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Select("units.*, (SELECT COUNT(*) FROM products WHERE products.unit_id = units.id) AS products_count")
	if active != nil {
		q = q.Where("units.is_active = ?", *active)
	}
	var units []UnitWithCount
	if err := q.Order("units.name ASC").Order("units.id ASC").Scan(&units).Error; err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

func (r *GORMUnitRepository) GetByID(ctx context.Context, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get unit %d: %w", id, translate(err))
	}
	return &unit, nil
}

func (r *GORMUnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	if err := r.db.WithContext(ctx).Create(unit).Error; err != nil {
		return fmt.Errorf("failed to create unit: %w", translate(err))
	}
	return nil
}

func (r *GORMUnitRepository) Update(ctx context.Context, unit *models.Unit) error {
	res := r.db.WithContext(ctx).Model(unit).Select("*").Omit("ID", "CreatedAt").Updates(unit)
	if res.Error != nil {
		return fmt.Errorf("failed to update unit %d: %w", unit.ID, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unit %d not found for update: %w", unit.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMUnitRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Unit{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete unit %d: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unit %d not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GORMUnitRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of unit %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unit %d not found for status update: %w", id, ErrNotFound)
	}
	return nil
}

// CountProducts returns how many products reference the unit.
func (r *GORMUnitRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("unit_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products of unit %d: %w", id, err)
	}
	return count, nil
}

// HasStockedProducts reports whether any product of the unit holds stock.
func (r *GORMUnitRepository) HasStockedProducts(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("unit_id = ? AND stock_qty > 0", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check stock of unit %d: %w", id, err)
	}
	return count > 0, nil
}

// ProductsByUnit returns the quantity columns of every product of the unit.
func (r *GORMUnitRepository) ProductsByUnit(ctx context.Context, id uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Select("id", "name", "unit_id", "stock_qty", "min_qty", "max_qty").
		Where("unit_id = ?", id).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load products of unit %d: %w", id, err)
	}
	return products, nil
}

// ReassignProducts moves every product from one unit to another.
func (r *GORMUnitRepository) ReassignProducts(ctx context.Context, fromID, toID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("unit_id = ?", fromID).Update("unit_id", toID)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to move products from unit %d to %d: %w", fromID, toID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GORMUnitRepository) Transaction(ctx context.Context, fn func(repo UnitRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMUnitRepository{db: tx})
	})
}
