package database

import (
	"context"
	"fmt"

	"katalog/internal/models"
	"katalog/pkg/slug"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed inserts the reference rows a fresh installation needs. Rows are matched
// by name, so running it twice changes nothing.
func Seed(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		units := []models.Unit{
			{Name: "metre", Text: "Metre", Step: decimal.RequireFromString("0.01"), IsActive: true},
			{Name: "adet", Text: "Adet", Step: decimal.NewFromInt(1), IsActive: true},
		}
		for i := range units {
			if err := tx.Where(models.Unit{Name: units[i].Name}).FirstOrCreate(&units[i]).Error; err != nil {
				return fmt.Errorf("failed to seed unit %s: %w", units[i].Name, err)
			}
		}

		for i, name := range []string{"Elektronik", "Giyim", "Ev & Yaşam"} {
			c := models.Category{Name: name, Slug: slug.Make(name), SortOrder: i + 1, IsActive: true}
			if err := tx.Where(models.Category{Slug: c.Slug}).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("failed to seed category %s: %w", name, err)
			}
		}

		brand := models.Brand{Name: "Genel", IsActive: true}
		if err := tx.Where(models.Brand{Name: brand.Name}).FirstOrCreate(&brand).Error; err != nil {
			return fmt.Errorf("failed to seed brand: %w", err)
		}
		store := models.Store{Name: "Merkez Mağaza", IsActive: true}
		if err := tx.Where(models.Store{Name: store.Name}).FirstOrCreate(&store).Error; err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
		return nil
	})
}
