package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
		tracer:   tracer,
		logger:   logger,
	}
}

// clone returns a copy so callers never share the stored record
func clone(p *domain.Product) *domain.Product {
	c := *p
	if p.Image != nil {
		image := *p.Image
		c.Image = &image
	}
	return &c
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.String("product.name", product.Name),
	)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = clone(product)

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", product.ID),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		r.logger.WarnContext(ctx, "Product not found",
			slog.String("product_id", id),
		)
		return nil, domain.ErrProductNotFound
	}

	r.logger.DebugContext(ctx, "Product found in repository",
		slog.String("product_id", id),
		slog.String("product_name", product.Name),
	)

	span.SetStatus(codes.Ok, "Product found")
	return clone(product), nil
}

func matches(p *domain.Product, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// filtered returns matching products, most recently updated first. Callers hold the lock.
func (r *ProductRepository) filtered(search string) []*domain.Product {
	products := make([]*domain.Product, 0, len(r.products))
	for _, product := range r.products {
		if matches(product, search) {
			products = append(products, product)
		}
	}

	sort.Slice(products, func(i, j int) bool {
		if !products[i].UpdatedAt.Equal(products[j].UpdatedAt) {
			return products[i].UpdatedAt.After(products[j].UpdatedAt)
		}
		return products[i].ID < products[j].ID
	})
	return products
}

// FindMany retrieves one window of the products matching the filter
func (r *ProductRepository) FindMany(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.FindMany")
	defer span.End()

	span.SetAttributes(
		attribute.String("products.search", filter.Search),
		attribute.Int("products.offset", filter.Offset),
		attribute.Int("products.limit", filter.Limit),
	)

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.filtered(filter.Search)

	start := min(max(filter.Offset, 0), len(all))
	end := len(all)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(all))
	}

	products := make([]*domain.Product, 0, end-start)
	for _, product := range all[start:end] {
		products = append(products, clone(product))
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))

	r.logger.InfoContext(ctx, "Products retrieved from repository",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Count returns how many products match the filter's search
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	_, span := r.tracer.Start(ctx, "ProductRepository.Count")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, product := range r.products {
		if matches(product, filter.Search) {
			total++
		}
	}

	span.SetAttributes(attribute.Int("products.total", total))
	span.SetStatus(codes.Ok, "Products counted")
	return total, nil
}

// Update applies the patch atomically and refreshes UpdatedAt
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	product, exists := r.products[id]
	if !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}

	updated := clone(product)
	updated.Apply(patch)
	r.products[id] = updated

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return clone(updated), nil
}

// Delete removes a product by ID
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[id]; !exists {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return domain.ErrProductNotFound
	}
	delete(r.products, id)

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return nil
}
