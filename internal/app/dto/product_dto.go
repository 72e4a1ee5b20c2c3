package dto

import (
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// TimestampLayout is the ISO-8601 form timestamps are serialized with
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ProductResponse represents the product response
type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       *string `json:"image"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// ToProductResponse converts a domain Product to ProductResponse.
// Every read path shapes products through here.
func ToProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Image:       p.Image,
		CreatedAt:   FormatTimestamp(p.CreatedAt),
		UpdatedAt:   FormatTimestamp(p.UpdatedAt),
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}

// FormatTimestamp renders t in UTC with millisecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DeleteProductResponse is returned after a successful delete
type DeleteProductResponse struct {
	Success bool `json:"success"`
}

// UploadResponse carries the URL of a stored upload
type UploadResponse struct {
	URL string `json:"url"`
}
