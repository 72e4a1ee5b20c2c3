package dto

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 50
)

// ListProductsRequest is the raw list query. Nil Page or Limit means the
// parameter was not supplied.
type ListProductsRequest struct {
	Search string
	Page   *int
	Limit  *int
}

// PageRequest is a normalized page position
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest applies defaults and bounds: page >= 1, limit in [1, MaxLimit]
func NewPageRequest(page, limit *int) PageRequest {
	pr := PageRequest{Page: DefaultPage, Limit: DefaultLimit}
	if page != nil {
		pr.Page = max(*page, 1)
	}
	if limit != nil {
		pr.Limit = min(max(*limit, 1), MaxLimit)
	}
	return pr
}

// Offset is the number of records skipped before this page. It saturates at
// math.MaxInt, which still lands past the last record.
func (p PageRequest) Offset() int {
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Pagination is the envelope returned alongside a page of products
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the envelope for a filtered total
func NewPagination(pr PageRequest, total int) Pagination {
	return Pagination{
		Page:       pr.Page,
		Limit:      pr.Limit,
		Total:      total,
		TotalPages: (total + pr.Limit - 1) / pr.Limit,
	}
}

// ProductListResponse represents a page of products
type ProductListResponse struct {
	Products   []*ProductResponse `json:"products"`
	Pagination Pagination         `json:"pagination"`
}
