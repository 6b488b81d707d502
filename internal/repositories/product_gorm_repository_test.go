package repositories_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"katalog/internal/database"
	"katalog/internal/logger"
	"katalog/internal/models"
	"katalog/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: dsn, MaxRetries: 1}, logger.NewWithWriter("test", io.Discard))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.Seed(context.Background(), db))
	return db
}

func newProduct(name, slug string) *models.Product {
	return &models.Product{
		Name:     name,
		Slug:     slug,
		UnitID:   1,
		Price:    decimal.RequireFromString("9.90"),
		TaxRate:  decimal.RequireFromString("18"),
		StockQty: decimal.RequireFromString("4"),
		IsActive: true,
	}
}

func TestGORMProductRepository_CreateTranslatesDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProductRepository(setupDB(t))

	require.NoError(t, repo.Create(ctx, newProduct("Vida", "vida")))
	err := repo.Create(ctx, newProduct("Vida", "vida"))
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	taken, err := repo.ExistsSlug(ctx, "vida", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.ExistsSlug(ctx, "vida", 1)
	require.NoError(t, err)
	assert.False(t, taken, "a product does not collide with itself")
}

func TestGORMProductRepository_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProductRepository(setupDB(t))

	err := repo.Transaction(ctx, func(tx repositories.ProductRepository) error {
		p := newProduct("Vida", "vida")
		if err := tx.Create(ctx, p); err != nil {
			return err
		}
		return tx.Create(ctx, newProduct("Vida", "vida"))
	})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)

	_, total, err := repo.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGORMProductRepository_Relations(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMProductRepository(setupDB(t))

	p := newProduct("Kumaş", "kumas")
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.SyncCategories(ctx, p.ID, []uint{3, 1}))
	require.NoError(t, repo.ReplaceImages(ctx, p.ID, []models.ProductImage{
		{Path: "b.jpg", Sort: 1},
		{Path: "a.jpg", Sort: 0},
	}))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "metre", got.Unit.Name)
	assert.Equal(t, []uint{3, 1}, got.CategoryIDs())
	require.Len(t, got.Images, 2)
	assert.Equal(t, "a.jpg", got.Images[0].Path)

	require.NoError(t, repo.SyncCategories(ctx, p.ID, []uint{2}))
	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, got.CategoryIDs())

	categoryID := uint(2)
	products, total, err := repo.List(ctx, repositories.ProductFilter{CategoryID: &categoryID, PerPage: 10, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, []uint{2}, products[0].CategoryIDs())
}

func TestGORMProductRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := repositories.NewGORMProductRepository(db)

	p := newProduct("Vida", "vida")
	sku := "V-1"
	p.SKU = &sku
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.ReplaceImages(ctx, p.ID, []models.ProductImage{{Path: "v.jpg"}}))

	p.SKU = nil
	p.IsActive = false
	require.NoError(t, repo.Update(ctx, p))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SKU, "nil pointers are written as NULL")
	assert.False(t, got.IsActive)

	missing := newProduct("Yok", "yok")
	missing.ID = 999
	assert.ErrorIs(t, repo.Update(ctx, missing), repositories.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), repositories.ErrNotFound)

	var images int64
	require.NoError(t, db.Model(&models.ProductImage{}).Where("product_id = ?", p.ID).Count(&images).Error)
	assert.Zero(t, images)
}

func TestGORMUnitRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	products := repositories.NewGORMProductRepository(db)
	units := repositories.NewGORMUnitRepository(db)

	empty := newProduct("Boş", "bos")
	empty.StockQty = decimal.Zero
	require.NoError(t, products.Create(ctx, empty))

	list, err := units.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "adet", list[0].Name)
	assert.Equal(t, int64(1), list[1].ProductsCount)

	stocked, err := units.HasStockedProducts(ctx, 1)
	require.NoError(t, err)
	assert.False(t, stocked)

	require.NoError(t, products.Create(ctx, newProduct("Dolu", "dolu")))
	stocked, err = units.HasStockedProducts(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stocked)

	moved, err := units.ReassignProducts(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)
	count, err := units.CountProducts(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, units.Delete(ctx, 1))
	_, err = units.GetByID(ctx, 1)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestGORMLookupRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := repositories.NewGORMLookupRepository(db)

	missing, err := repo.MissingCategoryIDs(ctx, []uint{1, 2, 42})
	require.NoError(t, err)
	assert.Equal(t, []uint{42}, missing)

	ok, err := repo.BrandExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.StoreExists(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	categories, err := repo.ActiveCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "Elektronik", categories[0].Name)
}
