package services

import (
	"context"

	"katalog/internal/models"
	"katalog/internal/repositories"
)

// StoreSettings is the public identity of the shop.
type StoreSettings struct {
	Name     string `json:"name"`
	Logo     string `json:"logo"`
	Currency string `json:"currency"`
	Timezone string `json:"timezone"`
}

// LookupService serves the reference lists the admin panel fills its pickers from.
type LookupService struct {
	repo     repositories.LookupRepository
	settings StoreSettings
}

func NewLookupService(repo repositories.LookupRepository, settings StoreSettings) *LookupService {
	return &LookupService{repo: repo, settings: settings}
}

func (s *LookupService) Brands(ctx context.Context) ([]models.Brand, error) {
	return s.repo.ActiveBrands(ctx)
}

func (s *LookupService) Stores(ctx context.Context) ([]models.Store, error) {
	return s.repo.ActiveStores(ctx)
}

func (s *LookupService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ActiveCategories(ctx)
}

func (s *LookupService) Settings() StoreSettings {
	return s.settings
}
