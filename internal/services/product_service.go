package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"katalog/internal/events"
	"katalog/internal/metrics"
	"katalog/internal/models"
	"katalog/internal/repositories"
)

const (
	// maxSlugAttempts bounds how often a write is retried after losing a slug race.
	maxSlugAttempts = 3

	maxNameLength = 150
	copyPrefix    = "Copy of "
)

// EventPublisher receives catalog events after the change committed.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	validator *ProductValidator
	slugs     *SlugGenerator
	events    EventPublisher
	log       *slog.Logger
}

// NewProductService creates a new ProductService. publisher may be nil.
func NewProductService(repo repositories.ProductRepository, validator *ProductValidator, publisher EventPublisher, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		repo:      repo,
		validator: validator,
		slugs:     NewSlugGenerator(repo),
		events:    publisher,
		log:       logger,
	}
}

// List returns one page of products and the total number of matches.
func (s *ProductService) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	return s.repo.List(ctx, filter)
}

// Get retrieves a single product with its relations.
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return product, nil
}

// Create validates in, assigns a unique slug and stores the product with its
// categories and images in one transaction.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (product *models.Product, err error) {
	defer func() { observe("product.create", err) }()

	vp, err := s.validator.ValidateCreate(ctx, in)
	if err != nil {
		return nil, err
	}

	var id uint
	err = s.write(ctx, vp.SlugSource, 0, vp.Product.SKU, func(repo repositories.ProductRepository, slug string) error {
		p := vp.Product
		p.ID = 0
		p.Slug = slug
		if err := repo.Create(ctx, &p); err != nil {
			return err
		}
		if err := s.sideEffects(ctx, repo, p.ID, vp); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductCreated, product, 0)
	return product, nil
}

// Update applies the fields present in in to product id. Absent fields keep
// their stored values and the slug only changes when the payload names one.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (product *models.Product, err error) {
	defer func() { observe("product.update", err) }()

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	vp, err := s.validator.ValidateUpdate(ctx, existing, in)
	if err != nil {
		return nil, err
	}

	err = s.write(ctx, vp.SlugSource, id, vp.Product.SKU, func(repo repositories.ProductRepository, slug string) error {
		p := vp.Product
		p.ID = id
		if slug != "" {
			p.Slug = slug
		}
		if err := repo.Update(ctx, &p); err != nil {
			return err
		}
		return s.sideEffects(ctx, repo, id, vp)
	})
	if err != nil {
		return nil, err
	}

	product, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductUpdated, product, 0)
	return product, nil
}

// Duplicate clones product id as an inactive draft named "Copy of <name>".
// Slug and SKU are not copied; categories and image rows are.
func (s *ProductService) Duplicate(ctx context.Context, id uint) (product *models.Product, err error) {
	defer func() { observe("product.duplicate", err) }()

	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	draft := *src
	draft.ID = 0
	draft.Name = truncateRunes(copyPrefix+src.Name, maxNameLength)
	draft.Slug = ""
	draft.SKU = nil
	draft.IsActive = false
	draft.Categories = nil
	draft.Images = nil
	draft.CreatedAt, draft.UpdatedAt = time.Time{}, time.Time{}

	images := make([]models.ProductImage, len(src.Images))
	for i, img := range src.Images {
		images[i] = models.ProductImage{Path: img.Path, Alt: img.Alt, Sort: img.Sort}
	}
	plan := &ValidatedProduct{
		SyncCategories: len(src.Categories) > 0,
		CategoryIDs:    src.CategoryIDs(),
		ReplaceImages:  len(images) > 0,
		Images:         images,
	}

	var newID uint
	err = s.write(ctx, draft.Name, 0, nil, func(repo repositories.ProductRepository, slug string) error {
		p := draft
		p.ID = 0
		p.Slug = slug
		if err := repo.Create(ctx, &p); err != nil {
			return err
		}
		if err := s.sideEffects(ctx, repo, p.ID, plan); err != nil {
			return err
		}
		newID = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err = s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductDuplicated, product, src.ID)
	return product, nil
}

// Delete removes product id with its images and category links. Deleting a
// missing product reports ErrNotFound.
func (s *ProductService) Delete(ctx context.Context, id uint) (err error) {
	defer func() { observe("product.delete", err) }()

	err = s.repo.Transaction(ctx, func(repo repositories.ProductRepository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("product %d: %w", id, err)
	}
	s.publish(ctx, events.ProductDeleted, &models.Product{ID: id}, 0)
	return nil
}

// SetActive toggles the active flag and nothing else.
func (s *ProductService) SetActive(ctx context.Context, id uint, active bool) (product *models.Product, err error) {
	defer func() { observe("product.status", err) }()

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	product, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductStatusChanged, product, 0)
	return product, nil
}

func (s *ProductService) sideEffects(ctx context.Context, repo repositories.ProductRepository, id uint, vp *ValidatedProduct) error {
	if vp.SyncCategories {
		if err := repo.SyncCategories(ctx, id, vp.CategoryIDs); err != nil {
			return err
		}
	}
	if vp.ReplaceImages {
		if err := repo.ReplaceImages(ctx, id, vp.Images); err != nil {
			return err
		}
	}
	return nil
}

// write runs fn in a transaction with a freshly generated slug. When the
// commit trips the unique slug index because a concurrent writer took the same
// slug, the slug is regenerated and fn retried, up to maxSlugAttempts in total.
// An empty slugSource keeps the stored slug and fn receives "".
func (s *ProductService) write(ctx context.Context, slugSource string, excludeID uint, sku *string,
	fn func(repo repositories.ProductRepository, slug string) error) error {
	for attempt := 1; ; attempt++ {
		var slug string
		if slugSource != "" {
			var err error
			if slug, err = s.slugs.Unique(ctx, slugSource, excludeID); err != nil {
				return err
			}
		}

		err := s.repo.Transaction(ctx, func(repo repositories.ProductRepository) error {
			return fn(repo, slug)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return err
		}

		if sku != nil {
			taken, checkErr := s.repo.ExistsSKU(ctx, *sku, excludeID)
			if checkErr != nil {
				return checkErr
			}
			if taken {
				return &ConflictError{Code: CodeSKUConflict, Field: "sku", Message: "The sku has already been taken."}
			}
		}
		if slugSource == "" || attempt == maxSlugAttempts {
			return &ConflictError{
				Code:    CodeSlugConflict,
				Field:   "slug",
				Message: fmt.Sprintf("Could not assign a unique slug after %d attempts.", attempt),
			}
		}
		metrics.SlugRetries.Inc()
		s.log.WarnContext(ctx, "slug taken at commit, retrying", "slug", slug, "attempt", attempt)
	}
}

func (s *ProductService) publish(ctx context.Context, eventType string, p *models.Product, sourceID uint) {
	if s.events == nil {
		return
	}
	e := events.New(eventType, p.ID)
	e.Slug = p.Slug
	e.SourceID = sourceID
	if eventType == events.ProductStatusChanged {
		active := p.IsActive
		e.IsActive = &active
	}
	if err := s.events.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.ErrorContext(ctx, "failed to publish catalog event", "type", eventType, "product_id", p.ID, "error", err)
	}
}

// observe records the outcome of a mutation.
func observe(operation string, err error) {
	outcome := "ok"
	var ve *ValidationError
	var ce *ConflictError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		outcome = "invalid"
	case errors.As(err, &ce):
		outcome = "conflict"
		metrics.Conflicts.WithLabelValues(ce.Code).Inc()
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.Mutations.WithLabelValues(operation, outcome).Inc()
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
