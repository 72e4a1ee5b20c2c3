// Package validator turns raw request bodies into normalized product payloads.
//
// Validation is a pure transform: the input is the decoded JSON value, the
// output is either a payload ready for the repository or a
// *domain.ValidationError listing every failing field.
package validator

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	v10 "github.com/go-playground/validator/v10"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldImage       = "image"
)

// rules holds the validator tag applied to each field once it is coerced
var rules = map[string]string{
	fieldName:        "required",
	fieldDescription: "required",
	fieldPrice:       "gt=0,lte=" + domain.MaxPrice.String(),
	fieldImage:       "url",
}

var messages = map[string]string{
	fieldName + ".required":        "Name is required",
	fieldDescription + ".required": "Description is required",
	fieldPrice + ".gt":             "Price must be positive",
	fieldPrice + ".lte":            priceTooLarge,
	fieldImage + ".url":            "Invalid url",
}

var priceTooLarge = "Price must be at most " + domain.MaxPrice.String()

// ProductValidator validates product payloads in create (full) or update (partial) mode
type ProductValidator struct {
	validate *v10.Validate
}

// New creates a product validator
func New() *ProductValidator {
	return &ProductValidator{validate: v10.New()}
}

// input is the coerced form of a request body. Pointers are nil when the key
// was absent; image is tracked separately because null is a value for it.
type input struct {
	name        *string
	description *string
	price       *decimal.Decimal
	imageSet    bool
	image       *string
}

// ValidateCreate runs full validation: name, description and price are required.
func (v *ProductValidator) ValidateCreate(raw any) (domain.ProductDraft, error) {
	verr := domain.NewValidationError()
	in := v.coerce(raw, verr)

	if len(verr.FormErrors) == 0 {
		if in.name == nil && !verr.HasField(fieldName) {
			verr.AddField(fieldName, "Name is required")
		}
		if in.description == nil && !verr.HasField(fieldDescription) {
			verr.AddField(fieldDescription, "Description is required")
		}
		if in.price == nil && !verr.HasField(fieldPrice) {
			verr.AddField(fieldPrice, "Price is required")
		}
	}

	if verr.HasErrors() {
		return domain.ProductDraft{}, verr
	}

	return domain.ProductDraft{
		Name:        *in.name,
		Description: *in.description,
		Price:       *in.price,
		Image:       in.image,
	}, nil
}

// ValidatePatch runs partial validation: only the keys present are checked and
// only those end up in the patch.
func (v *ProductValidator) ValidatePatch(raw any) (domain.ProductPatch, error) {
	verr := domain.NewValidationError()
	in := v.coerce(raw, verr)
	if verr.HasErrors() {
		return domain.ProductPatch{}, verr
	}

	return domain.ProductPatch{
		Name:        in.name,
		Description: in.description,
		Price:       in.price,
		SetImage:    in.imageSet,
		Image:       in.image,
	}, nil
}

// coerce reads each known key, converts it to its target type and checks it
// against its rule. Failures are collected on verr.
func (v *ProductValidator) coerce(raw any, verr *domain.ValidationError) input {
	var in input

	body, ok := raw.(map[string]any)
	if !ok {
		verr.AddForm("Expected object")
		return in
	}

	if value, present := body[fieldName]; present {
		in.name = v.text(fieldName, "Name", value, verr)
	}
	if value, present := body[fieldDescription]; present {
		in.description = v.text(fieldDescription, "Description", value, verr)
	}
	if value, present := body[fieldPrice]; present && value != nil {
		in.price = v.price(value, verr)
	}
	if value, present := body[fieldImage]; present {
		in.imageSet = true
		in.image = v.image(value, verr)
	}

	return in
}

func (v *ProductValidator) text(field, label string, value any, verr *domain.ValidationError) *string {
	s, ok := value.(string)
	if !ok {
		verr.AddField(field, label+" must be a string")
		return nil
	}
	if !v.check(field, s, verr) {
		return nil
	}
	return &s
}

// price accepts a JSON number or a numeric string and rounds it to cents,
// half away from zero. The magnitude is bounded before rounding.
func (v *ProductValidator) price(value any, verr *domain.ValidationError) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)

	switch p := value.(type) {
	case json.Number:
		d, err = decimal.NewFromString(p.String())
	case float64:
		if math.IsInf(p, 0) || math.IsNaN(p) {
			err = errors.New("price is not finite")
			break
		}
		d = decimal.NewFromFloat(p)
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(p))
	default:
		err = errors.New("unsupported price type")
	}
	if err != nil {
		verr.AddField(fieldPrice, "Price must be a number")
		return nil
	}

	// digits before the decimal point; negative for values below 0.1
	magnitude := d.NumDigits() + int(d.Exponent())
	switch {
	case d.Sign() <= 0 || magnitude < -domain.PriceScale:
		verr.AddField(fieldPrice, messages[fieldPrice+".gt"])
		return nil
	case magnitude > domain.PriceIntegerDigits:
		verr.AddField(fieldPrice, priceTooLarge)
		return nil
	}

	d = d.Round(domain.PriceScale)
	if !v.check(fieldPrice, d.InexactFloat64(), verr) {
		return nil
	}
	return &d
}

// image maps "" and null to nil; anything else must be an absolute URL.
func (v *ProductValidator) image(value any, verr *domain.ValidationError) *string {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		verr.AddField(fieldImage, "Image must be a string")
		return nil
	}
	if s == "" {
		return nil
	}
	if !v.check(fieldImage, s, verr) {
		return nil
	}
	return &s
}

func (v *ProductValidator) check(field string, value any, verr *domain.ValidationError) bool {
	err := v.validate.Var(value, rules[field])
	if err == nil {
		return true
	}

	var fieldErrs v10.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.AddField(field, err.Error())
		return false
	}
	for _, fe := range fieldErrs {
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		verr.AddField(field, msg)
	}
	return false
}
