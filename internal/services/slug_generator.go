package services

import (
	"context"
	"fmt"
	"strconv"

	"katalog/pkg/slug"
)

// MaxSlugLength matches the products.slug column.
const MaxSlugLength = 180

// SlugChecker answers whether a product slug is taken by a product other than excludeID.
type SlugChecker interface {
	ExistsSlug(ctx context.Context, slug string, excludeID uint) (bool, error)
}

// SlugGenerator derives unique product slugs. The check is advisory; the
// unique index on products.slug is what finally rejects a collision.
type SlugGenerator struct {
	checker SlugChecker
}

func NewSlugGenerator(checker SlugChecker) *SlugGenerator {
	return &SlugGenerator{checker: checker}
}

// Unique slugifies base and appends -2, -3, ... until the candidate is free.
func (g *SlugGenerator) Unique(ctx context.Context, base string, excludeID uint) (string, error) {
	root := slug.Truncate(slug.Make(base), MaxSlugLength)
	candidate := root
	for n := 2; ; n++ {
		taken, err := g.checker.ExistsSlug(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		suffix := "-" + strconv.Itoa(n)
		candidate = slug.Truncate(root, MaxSlugLength-len(suffix)) + suffix
	}
}
