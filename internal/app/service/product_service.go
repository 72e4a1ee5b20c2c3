package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/validator"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	validator             *validator.ProductValidator
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	validator *validator.ProductValidator,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	// Initialize metrics
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		repo:                  repo,
		validator:             validator,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
	}
}

func (s *ProductService) record(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// resultOf maps an error to the metric result label
func resultOf(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "failure"
	}
}

// ListProducts returns one page of products matching the search, most recently
// updated first, with pagination computed against the filtered count.
func (s *ProductService) ListProducts(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	page := dto.NewPageRequest(req.Page, req.Limit)
	filter := domain.ProductFilter{
		Search: req.Search,
		Offset: page.Offset(),
		Limit:  page.Limit,
	}

	span.SetAttributes(
		attribute.String("products.search", req.Search),
		attribute.Int("products.page", page.Page),
		attribute.Int("products.limit", page.Limit),
	)

	s.logger.InfoContext(ctx, "Listing products",
		slog.String("search", req.Search),
		slog.Int("page", page.Page),
		slog.Int("limit", page.Limit),
	)

	var (
		products []*domain.Product
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.FindMany(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to retrieve products")
		s.logger.ErrorContext(ctx, "Failed to list products",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "list", "failure")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("product.count", len(products)),
		attribute.Int("products.total", total),
	)
	s.record(ctx, "list", "success")

	s.logger.InfoContext(ctx, "Products listed successfully",
		slog.Int("count", len(products)),
		slog.Int("total", total),
	)

	span.SetStatus(codes.Ok, "Products listed successfully")
	return &dto.ProductListResponse{
		Products:   dto.ToProductResponseList(products),
		Pagination: dto.NewPagination(page, total),
	}, nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Getting product by ID",
		slog.String("product_id", id),
	)

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrProductNotFound) {
			span.SetStatus(codes.Error, "Product not found")
			s.logger.WarnContext(ctx, "Product not found",
				slog.String("product_id", id),
			)
		} else {
			span.SetStatus(codes.Error, "Failed to retrieve product")
			s.logger.ErrorContext(ctx, "Failed to get product",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
		s.record(ctx, "read", resultOf(err))
		return nil, err
	}

	s.record(ctx, "read", "success")

	s.logger.InfoContext(ctx, "Product retrieved successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return dto.ToProductResponse(product), nil
}

// CreateProduct validates raw input in full mode and stores a new product.
// Nothing is written when validation fails.
func (s *ProductService) CreateProduct(ctx context.Context, raw any) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	draft, err := s.validator.ValidateCreate(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Validation failed")
		s.logger.WarnContext(ctx, "Product validation failed",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "create", "invalid")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("product.name", draft.Name),
		attribute.String("product.price", draft.Price.String()),
	)

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("name", draft.Name),
		slog.String("price", draft.Price.String()),
	)

	product := domain.NewProduct(draft)
	span.SetAttributes(attribute.String("product.id", product.ID))

	// Store in repository
	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store product")
		s.logger.ErrorContext(ctx, "Failed to store product",
			slog.String("error", err.Error()),
		)
		s.record(ctx, "create", "failure")
		return nil, err
	}

	// Record metrics
	s.productCreatedCounter.Add(ctx, 1)
	s.record(ctx, "create", "success")

	s.logger.InfoContext(ctx, "Product created successfully",
		slog.String("product_id", product.ID),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return dto.ToProductResponse(product), nil
}

// UpdateProduct applies the fields present in raw to an existing product.
// Existence is checked before validation, so a missing id reports not found
// even when the payload is also invalid.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, raw any) (*dto.ProductResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Updating product",
		slog.String("product_id", id),
	)

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, s.fail(ctx, span, "update", id, err)
	}

	patch, err := s.validator.ValidatePatch(raw)
	if err != nil {
		return nil, s.fail(ctx, span, "update", id, err)
	}
	if patch.IsEmpty() {
		s.logger.DebugContext(ctx, "Empty patch, only updatedAt changes",
			slog.String("product_id", id),
		)
	}

	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.fail(ctx, span, "update", id, err)
	}

	s.record(ctx, "update", "success")

	s.logger.InfoContext(ctx, "Product updated successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return dto.ToProductResponse(product), nil
}

// DeleteProduct removes an existing product
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Deleting product",
		slog.String("product_id", id),
	)

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.fail(ctx, span, "delete", id, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, "delete", id, err)
	}

	s.record(ctx, "delete", "success")

	s.logger.InfoContext(ctx, "Product deleted successfully",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return nil
}

// fail records a failed mutation on the span, the log and the operation counter
func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, id string, err error) error {
	result := resultOf(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, "Product "+operation+" failed: "+result)

	if result == "failure" {
		s.logger.ErrorContext(ctx, "Product "+operation+" failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.WarnContext(ctx, "Product "+operation+" rejected",
			slog.String("product_id", id),
			slog.String("reason", result),
			slog.String("error", err.Error()),
		)
	}

	s.record(ctx, operation, result)
	return err
}
