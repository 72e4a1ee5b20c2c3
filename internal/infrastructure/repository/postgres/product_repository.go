package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	columns      = "id, name, description, price, image, created_at, updated_at"
	queryTimeout = 3 * time.Second
)

// ProductRepository is a PostgreSQL implementation of domain.ProductRepository
type ProductRepository struct {
	db     *sql.DB
	tracer trace.Tracer
	logger *slog.Logger
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sql.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		tracer: tracer,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p     domain.Product
		image sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	return &p, nil
}

// escapeLike makes % and _ in a search term match literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// whereClause builds the search predicate starting at placeholder $1
func whereClause(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	return " WHERE (name ILIKE $1 OR description ILIKE $1)", []any{"%" + escapeLike(search) + "%"}
}

// fail records err on the span and wraps it with the operation name
func (r *ProductRepository) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")

	attrs := []any{slog.String("error", err.Error())}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		attrs = append(attrs, slog.String("sqlstate", pgErr.Code))
	}
	r.logger.ErrorContext(ctx, "Product repository "+op+" failed", attrs...)

	return fmt.Errorf("could not %s product: %w", op, err)
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", product.ID),
		attribute.String("product.name", product.Name),
	)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `INSERT INTO products (` + columns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.Image, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return r.fail(ctx, span, "create", err)
	}

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

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + columns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, r.fail(ctx, span, "find", err)
	}

	span.SetStatus(codes.Ok, "Product found")
	return product, nil
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

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := whereClause(filter.Search)
	query := `SELECT ` + columns + ` FROM products` + where + ` ORDER BY updated_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.fail(ctx, span, "list", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, r.fail(ctx, span, "list", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(ctx, span, "list", err)
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	span.SetStatus(codes.Ok, "Products retrieved successfully")
	return products, nil
}

// Count returns how many products match the filter's search
func (r *ProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Count")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := whereClause(filter.Search)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return 0, r.fail(ctx, span, "count", err)
	}

	span.SetAttributes(attribute.Int("products.total", total))
	span.SetStatus(codes.Ok, "Products counted")
	return total, nil
}

// Update applies the patch in a single statement. updated_at moves to now, or
// one millisecond past its previous value when the clock has not advanced.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.SetImage {
		set("image", patch.Image)
	}

	args = append(args, domain.Now())
	sets = append(sets, fmt.Sprintf("updated_at = GREATEST($%d, updated_at + interval '1 millisecond')", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), columns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, r.fail(ctx, span, "update", err)
	}

	r.logger.InfoContext(ctx, "Product updated in repository",
		slog.String("product_id", id),
		slog.Int("fields", len(sets)-1),
	)

	span.SetStatus(codes.Ok, "Product updated successfully")
	return product, nil
}

// Delete removes a product by ID
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return r.fail(ctx, span, "delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return r.fail(ctx, span, "delete", err)
	}
	if affected == 0 {
		span.RecordError(domain.ErrProductNotFound)
		span.SetStatus(codes.Error, "Product not found")
		return domain.ErrProductNotFound
	}

	r.logger.InfoContext(ctx, "Product deleted from repository",
		slog.String("product_id", id),
	)

	span.SetStatus(codes.Ok, "Product deleted successfully")
	return nil
}
