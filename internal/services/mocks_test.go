package services_test

import (
	"context"

	"katalog/internal/events"
	"katalog/internal/models"
	"katalog/internal/repositories"

	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository.
// Transaction runs fn against the mock itself.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) ExistsSlug(ctx context.Context, slug string, excludeID uint) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) ExistsSKU(ctx context.Context, sku string, excludeID uint) (bool, error) {
	args := m.Called(ctx, sku, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) SetActive(ctx context.Context, id uint, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockProductRepository) SyncCategories(ctx context.Context, productID uint, categoryIDs []uint) error {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Error(0)
}

func (m *MockProductRepository) ReplaceImages(ctx context.Context, productID uint, images []models.ProductImage) error {
	args := m.Called(ctx, productID, images)
	return args.Error(0)
}

func (m *MockProductRepository) Transaction(_ context.Context, fn func(repo repositories.ProductRepository) error) error {
	return fn(m)
}

// MockUnitRepository is a mock implementation of repositories.UnitRepository.
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) List(ctx context.Context, active *bool) ([]repositories.UnitWithCount, error) {
	args := m.Called(ctx, active)
	return args.Get(0).([]repositories.UnitWithCount), args.Error(1)
}

func (m *MockUnitRepository) GetByID(ctx context.Context, id uint) (*models.Unit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Unit), args.Error(1)
}

func (m *MockUnitRepository) Create(ctx context.Context, unit *models.Unit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockUnitRepository) Update(ctx context.Context, unit *models.Unit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockUnitRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUnitRepository) SetActive(ctx context.Context, id uint, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockUnitRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUnitRepository) HasStockedProducts(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUnitRepository) ProductsByUnit(ctx context.Context, id uint) ([]models.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockUnitRepository) ReassignProducts(ctx context.Context, fromID, toID uint) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUnitRepository) Transaction(_ context.Context, fn func(repo repositories.UnitRepository) error) error {
	return fn(m)
}

// MockReferences is a mock implementation of services.ReferenceChecker.
type MockReferences struct {
	mock.Mock
}

func (m *MockReferences) BrandExists(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferences) StoreExists(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferences) MissingCategoryIDs(ctx context.Context, ids []uint) ([]uint, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
