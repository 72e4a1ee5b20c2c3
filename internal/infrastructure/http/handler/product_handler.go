package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
)

const maxBodyBytes = 1 << 20

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	products, err := h.service.ListProducts(r.Context(), dto.ListProductsRequest{
		Search: q.Get("search"),
		Page:   intParam(q.Get("page")),
		Limit:  intParam(q.Get("limit")),
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch products")
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.service.GetProductByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "Failed to fetch product")
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err, "Failed to create product")
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := h.readBody(w, r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, body)
	if err != nil {
		h.writeError(w, r, err, "Failed to update product")
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Failed to delete product")
		return
	}

	response.JSON(w, http.StatusOK, dto.DeleteProductResponse{Success: true})
}

// writeError maps service errors to status codes. Unexpected errors are logged
// and reported with the generic message only.
func (h *ProductHandler) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, verr)
	case errors.Is(err, domain.ErrProductNotFound):
		response.Error(w, http.StatusNotFound, "Product not found")
	default:
		h.logger.ErrorContext(r.Context(), message,
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, message)
	}
}

// readBody decodes a single JSON value, keeping numbers as json.Number
func (h *ProductHandler) readBody(w http.ResponseWriter, r *http.Request) (any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("body must have only a single json value")
	}

	return body, nil
}

// intParam parses a query parameter; absent or malformed values yield nil
func intParam(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
