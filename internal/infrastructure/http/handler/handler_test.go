package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/app/validator"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/repository/memory"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newProductRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := discardLogger()
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	repo := memory.NewProductRepository(tracer, logger)
	svc := service.NewProductService(repo, validator.New(), tracer, metricnoop.NewMeterProvider().Meter("test"), logger)
	h := NewProductHandler(svc, logger)

	r := chi.NewRouter()
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestProductLifecycle(t *testing.T) {
	router := newProductRouter(t)

	w := do(t, router, http.MethodPost, "/products", `{"name":"Tee","description":"Cotton","price":19.99}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}

	raw := decode[map[string]any](t, w)
	if img, ok := raw["image"]; !ok || img != nil {
		t.Errorf("expected explicit null image, got %v (present=%v)", img, ok)
	}

	created := decode[dto.ProductResponse](t, w)
	if created.ID == "" || created.Name != "Tee" || created.Price != 19.99 {
		t.Fatalf("unexpected product %+v", created)
	}
	if created.CreatedAt != created.UpdatedAt {
		t.Errorf("fresh product must have createdAt == updatedAt, got %s / %s", created.CreatedAt, created.UpdatedAt)
	}

	w = do(t, router, http.MethodPut, "/products/"+created.ID, `{"price":24.99}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[dto.ProductResponse](t, w)
	if updated.Name != "Tee" || updated.Description != "Cotton" || updated.Price != 24.99 {
		t.Errorf("unexpected update result %+v", updated)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Errorf("createdAt changed: %s -> %s", created.CreatedAt, updated.CreatedAt)
	}
	before, _ := time.Parse(time.RFC3339Nano, created.UpdatedAt)
	after, _ := time.Parse(time.RFC3339Nano, updated.UpdatedAt)
	if !after.After(before) {
		t.Errorf("updatedAt must increase: %s -> %s", created.UpdatedAt, updated.UpdatedAt)
	}

	w = do(t, router, http.MethodGet, "/products/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[dto.ProductResponse](t, w); got.Price != 24.99 {
		t.Errorf("expected persisted price 24.99, got %v", got.Price)
	}

	w = do(t, router, http.MethodDelete, "/products/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[dto.DeleteProductResponse](t, w); !got.Success {
		t.Error("expected success true")
	}

	w = do(t, router, http.MethodGet, "/products/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := decode[response.ErrorResponse](t, w); got.Error != "Product not found" {
		t.Errorf("unexpected error %q", got.Error)
	}
}

func TestCreateProduct_ValidationFailed(t *testing.T) {
	router := newProductRouter(t)

	w := do(t, router, http.MethodPost, "/products", `{"name":"","description":"x","price":-5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	got := decode[response.ErrorResponse](t, w)
	if got.Error != "Validation failed" || got.Details == nil {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if msgs := got.Details.FieldErrors["name"]; len(msgs) == 0 || msgs[0] != "Name is required" {
		t.Errorf("unexpected name errors %v", msgs)
	}
	if msgs := got.Details.FieldErrors["price"]; len(msgs) == 0 || msgs[0] != "Price must be positive" {
		t.Errorf("unexpected price errors %v", msgs)
	}
	if _, ok := got.Details.FieldErrors["description"]; ok {
		t.Error("description is valid and must not be reported")
	}

	list := decode[dto.ProductListResponse](t, do(t, router, http.MethodGet, "/products", ""))
	if list.Pagination.Total != 0 {
		t.Errorf("failed create must not store anything, total=%d", list.Pagination.Total)
	}
}

func TestCreateProduct_PriceOutOfRange(t *testing.T) {
	router := newProductRouter(t)

	for _, body := range []string{
		`{"name":"Tee","description":"Soft","price":"1e400"}`,
		`{"name":"Tee","description":"Soft","price":1e400}`,
		`{"name":"Tee","description":"Soft","price":"1e99999999"}`,
		`{"name":"Tee","description":"Soft","price":100000000000}`,
	} {
		w := do(t, router, http.MethodPost, "/products", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", body, w.Code, w.Body.String())
		}
		got := decode[response.ErrorResponse](t, w)
		if got.Details == nil || len(got.Details.FieldErrors["price"]) != 1 {
			t.Errorf("%s: expected a price error, got %s", body, w.Body.String())
		}
	}

	w := do(t, router, http.MethodGet, "/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if list := decode[dto.ProductListResponse](t, w); list.Pagination.Total != 0 {
		t.Errorf("rejected prices must not be stored, total=%d", list.Pagination.Total)
	}
}

func TestCreateProduct_BadBodies(t *testing.T) {
	router := newProductRouter(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"name":`, "Invalid JSON body"},
		{"trailing data", `{"name":"a"} {}`, "Invalid JSON body"},
		{"not an object", `[1,2,3]`, "Validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/products", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if got := decode[response.ErrorResponse](t, w); got.Error != tt.message {
				t.Errorf("expected %q, got %q", tt.message, got.Error)
			}
		})
	}
}

func TestMutations_MissingProduct(t *testing.T) {
	router := newProductRouter(t)

	tests := []struct {
		name   string
		method string
		body   string
	}{
		{"update with valid payload", http.MethodPut, `{"price":10}`},
		{"update with invalid payload", http.MethodPut, `{"price":-1,"image":"nope"}`},
		{"delete", http.MethodDelete, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, "/products/does-not-exist", tt.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
			}
			if got := decode[response.ErrorResponse](t, w); got.Error != "Product not found" {
				t.Errorf("unexpected error %q", got.Error)
			}
		})
	}
}

func TestUpdateProduct_ClearsImage(t *testing.T) {
	router := newProductRouter(t)

	created := decode[dto.ProductResponse](t, do(t, router, http.MethodPost, "/products",
		`{"name":"Cap","description":"Wool cap","price":"12.5","image":"https://cdn.example.com/cap.png"}`))
	if created.Image == nil || created.Price != 12.5 {
		t.Fatalf("unexpected product %+v", created)
	}

	w := do(t, router, http.MethodPut, "/products/"+created.ID, `{"image":""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[dto.ProductResponse](t, w); got.Image != nil {
		t.Errorf("expected image cleared, got %q", *got.Image)
	}
}

func TestUpdateProduct_InvalidPayload(t *testing.T) {
	router := newProductRouter(t)

	created := decode[dto.ProductResponse](t, do(t, router, http.MethodPost, "/products",
		`{"name":"Cap","description":"Wool cap","price":12}`))

	w := do(t, router, http.MethodPut, "/products/"+created.ID, `{"name":"","image":"not a url"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	got := decode[response.ErrorResponse](t, w)
	if got.Details == nil || len(got.Details.FieldErrors["name"]) == 0 || len(got.Details.FieldErrors["image"]) == 0 {
		t.Errorf("expected name and image errors, got %s", w.Body.String())
	}

	after := decode[dto.ProductResponse](t, do(t, router, http.MethodGet, "/products/"+created.ID, ""))
	if after.Name != "Cap" || after.UpdatedAt != created.UpdatedAt {
		t.Errorf("rejected update must leave the product untouched: %+v", after)
	}
}

func TestListProducts_Pagination(t *testing.T) {
	router := newProductRouter(t)

	for i := 0; i < 15; i++ {
		body := fmt.Sprintf(`{"name":"Item %d","description":"Plain","price":%d}`, i, i+1)
		if w := do(t, router, http.MethodPost, "/products", body); w.Code != http.StatusCreated {
			t.Fatalf("seed %d failed: %d", i, w.Code)
		}
	}

	tests := []struct {
		query      string
		count      int
		page       int
		limit      int
		totalPages int
	}{
		{"", 12, 1, 12, 2},
		{"?page=2", 3, 2, 12, 2},
		{"?page=3", 0, 3, 12, 2},
		{"?limit=100", 15, 1, 50, 1},
		{"?page=0&limit=0", 1, 1, 1, 15},
		{"?page=abc&limit=xyz", 12, 1, 12, 2},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/products"+tt.query, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			got := decode[dto.ProductListResponse](t, w)
			if len(got.Products) != tt.count {
				t.Errorf("expected %d products, got %d", tt.count, len(got.Products))
			}
			want := dto.Pagination{Page: tt.page, Limit: tt.limit, Total: 15, TotalPages: tt.totalPages}
			if got.Pagination != want {
				t.Errorf("expected pagination %+v, got %+v", want, got.Pagination)
			}
		})
	}
}

func TestListProducts_PageBeyondIntRange(t *testing.T) {
	router := newProductRouter(t)
	do(t, router, http.MethodPost, "/products", `{"name":"Tee","description":"Cotton","price":19.99}`)

	w := do(t, router, http.MethodGet, "/products?page=9223372036854775807&limit=12", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[dto.ProductListResponse](t, w)
	if len(got.Products) != 0 {
		t.Errorf("expected an empty page, got %d products", len(got.Products))
	}
	if got.Pagination.Total != 1 || got.Pagination.TotalPages != 1 {
		t.Errorf("unexpected pagination %+v", got.Pagination)
	}
}

func TestListProducts_EmptyCatalog(t *testing.T) {
	router := newProductRouter(t)

	w := do(t, router, http.MethodGet, "/products", "")
	if !bytes.Contains(w.Body.Bytes(), []byte(`"products":[]`)) {
		t.Errorf("expected empty products array, got %s", w.Body.String())
	}
	got := decode[dto.ProductListResponse](t, w)
	if got.Pagination.Total != 0 || got.Pagination.TotalPages != 0 {
		t.Errorf("unexpected pagination %+v", got.Pagination)
	}
}

func TestListProducts_Search(t *testing.T) {
	router := newProductRouter(t)

	for _, body := range []string{
		`{"name":"Wool Blend Sweater","description":"Warm","price":79.99}`,
		`{"name":"Chinos","description":"Slim fit","price":59.99}`,
		`{"name":"Scarf","description":"Soft WOOL scarf","price":19}`,
	} {
		do(t, router, http.MethodPost, "/products", body)
	}

	got := decode[dto.ProductListResponse](t, do(t, router, http.MethodGet, "/products?search=wool", ""))
	if got.Pagination.Total != 2 || len(got.Products) != 2 {
		t.Fatalf("expected 2 wool matches, got %+v", got.Pagination)
	}
	for _, p := range got.Products {
		if p.Name == "Chinos" {
			t.Error("chinos must not match wool")
		}
	}

	got = decode[dto.ProductListResponse](t, do(t, router, http.MethodGet, "/products?search=sweat", ""))
	if len(got.Products) != 1 || got.Products[0].Name != "Wool Blend Sweater" {
		t.Errorf("expected sweater for partial match, got %+v", got.Products)
	}

	got = decode[dto.ProductListResponse](t, do(t, router, http.MethodGet, "/products?search=boots", ""))
	if got.Pagination.Total != 0 || got.Pagination.TotalPages != 0 {
		t.Errorf("expected no matches, got %+v", got.Pagination)
	}
}
