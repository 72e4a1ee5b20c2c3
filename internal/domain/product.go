package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits a price is stored with.
const PriceScale = 2

// PriceIntegerDigits bounds the digits before the decimal point, so prices fit NUMERIC(12, 2).
const PriceIntegerDigits = 10

// MaxPrice is the largest price that can be stored
var MaxPrice = decimal.New(999999999999, -PriceScale)

// Product represents the product entity
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Image       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductDraft is a fully validated payload for a new product
type ProductDraft struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Image       *string
}

// ProductPatch lists the fields an update applies. A nil field is left untouched.
// SetImage distinguishes clearing the image (Image == nil) from not touching it.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	SetImage    bool
	Image       *string
}

// IsEmpty reports whether the patch changes nothing besides updatedAt
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && !p.SetImage
}

// NewProduct creates a new product from a validated draft
func NewProduct(draft ProductDraft) *Product {
	now := Now()
	return &Product{
		ID:          uuid.New().String(),
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Image:       draft.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the patched fields onto the product and refreshes UpdatedAt
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.SetImage {
		p.Image = patch.Image
	}
	p.UpdatedAt = NextUpdatedAt(p.UpdatedAt)
}

// Now returns the current UTC time at the precision timestamps are stored with
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NextUpdatedAt returns a timestamp strictly after prev, even when the clock
// has not advanced past it.
func NextUpdatedAt(prev time.Time) time.Time {
	now := Now()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
