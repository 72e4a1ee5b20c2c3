package domain

import (
	"context"
)

// ProductFilter narrows a listing. An empty Search selects every product.
// Limit <= 0 means no limit.
type ProductFilter struct {
	Search string
	Offset int
	Limit  int
}

// ProductRepository defines the contract for product storage.
// FindMany orders by UpdatedAt descending, then ID ascending.
// Search matches a case-insensitive substring of Name or Description.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindMany(ctx context.Context, filter ProductFilter) ([]*Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, id string) error
}
