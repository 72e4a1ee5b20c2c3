package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// DemoProducts is the starter catalog loaded by Seed
var DemoProducts = []map[string]any{
	{
		"name":        "Classic Cotton T-Shirt",
		"description": "Soft, breathable cotton tee. Perfect for everyday wear.",
		"price":       24.99,
		"image":       "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400",
	},
	{
		"name":        "Slim Fit Chinos",
		"description": "Comfortable chinos with a modern slim fit.",
		"price":       59.99,
		"image":       "https://images.unsplash.com/photo-1624378439575-d8705ad7ae80?w=400",
	},
	{
		"name":        "Wool Blend Sweater",
		"description": "Warm and stylish sweater for cooler days.",
		"price":       79.99,
		"image":       "https://images.unsplash.com/photo-1576566588028-4147f3842f27?w=400",
	},
}

// Seed creates the given products through the regular create path, but only
// when the catalog is empty. It returns the number of products created.
func (s *ProductService) Seed(ctx context.Context, products []map[string]any) (int, error) {
	total, err := s.repo.Count(ctx, domain.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if total > 0 {
		s.logger.InfoContext(ctx, "Catalog already populated, skipping seed",
			slog.Int("total", total),
		)
		return 0, nil
	}

	for i, raw := range products {
		if _, err := s.CreateProduct(ctx, raw); err != nil {
			return i, fmt.Errorf("failed to seed product %d: %w", i, err)
		}
	}

	s.logger.InfoContext(ctx, "Catalog seeded", slog.Int("count", len(products)))
	return len(products), nil
}
