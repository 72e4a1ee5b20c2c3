package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("invalid test body %q: %v", body, err)
	}
	return raw
}

func validationError(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	return verr
}

func TestValidateCreate_Valid(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		body      string
		wantPrice string
		wantImage *string
	}{
		{name: "numeric price", body: `{"name":"Tee","description":"Soft","price":19.99}`, wantPrice: "19.99"},
		{name: "string price", body: `{"name":"Tee","description":"Soft","price":" 24.5 "}`, wantPrice: "24.5"},
		{name: "empty image becomes null", body: `{"name":"Tee","description":"Soft","price":1,"image":""}`, wantPrice: "1"},
		{name: "null image", body: `{"name":"Tee","description":"Soft","price":1,"image":null}`, wantPrice: "1"},
		{name: "rounds half away from zero", body: `{"name":"Tee","description":"Soft","price":10.005}`, wantPrice: "10.01"},
		{name: "rounds down", body: `{"name":"Tee","description":"Soft","price":"10.004"}`, wantPrice: "10"},
		{name: "largest storable price", body: `{"name":"Tee","description":"Soft","price":"9999999999.99"}`, wantPrice: "9999999999.99"},
		{name: "unknown keys ignored", body: `{"name":"Tee","description":"Soft","price":2,"stock":4}`, wantPrice: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := v.ValidateCreate(decode(t, tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if draft.Name != "Tee" || draft.Description != "Soft" {
				t.Errorf("unexpected text fields: %+v", draft)
			}
			if draft.Price.String() != tt.wantPrice {
				t.Errorf("expected price %s, got %s", tt.wantPrice, draft.Price.String())
			}
			if draft.Image != nil {
				t.Errorf("expected nil image, got %q", *draft.Image)
			}
		})
	}
}

func TestValidateCreate_KeepsImageURL(t *testing.T) {
	draft, err := New().ValidateCreate(decode(t, `{"name":"Tee","description":"Soft","price":1,"image":"https://cdn.example.com/tee.png"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft.Image == nil || *draft.Image != "https://cdn.example.com/tee.png" {
		t.Errorf("expected image url to be kept, got %v", draft.Image)
	}
}

func TestValidateCreate_Invalid(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{
			name: "empty body",
			body: `{}`,
			fields: map[string]string{
				"name":        "Name is required",
				"description": "Description is required",
				"price":       "Price is required",
			},
		},
		{
			name:   "empty name",
			body:   `{"name":"","description":"Soft","price":1}`,
			fields: map[string]string{"name": "Name is required"},
		},
		{
			name:   "negative price",
			body:   `{"name":"Tee","description":"Soft","price":-5}`,
			fields: map[string]string{"price": "Price must be positive"},
		},
		{
			name:   "zero after rounding",
			body:   `{"name":"Tee","description":"Soft","price":0.004}`,
			fields: map[string]string{"price": "Price must be positive"},
		},
		{
			name:   "price above column range",
			body:   `{"name":"Tee","description":"Soft","price":10000000000}`,
			fields: map[string]string{"price": "Price must be at most 9999999999.99"},
		},
		{
			name:   "price rounding past the maximum",
			body:   `{"name":"Tee","description":"Soft","price":"9999999999.995"}`,
			fields: map[string]string{"price": "Price must be at most 9999999999.99"},
		},
		{
			name:   "price beyond float range",
			body:   `{"name":"Tee","description":"Soft","price":1e400}`,
			fields: map[string]string{"price": "Price must be at most 9999999999.99"},
		},
		{
			name:   "string price beyond float range",
			body:   `{"name":"Tee","description":"Soft","price":"1e400"}`,
			fields: map[string]string{"price": "Price must be at most 9999999999.99"},
		},
		{
			name:   "huge exponent",
			body:   `{"name":"Tee","description":"Soft","price":"1e99999999"}`,
			fields: map[string]string{"price": "Price must be at most 9999999999.99"},
		},
		{
			name:   "tiny exponent",
			body:   `{"name":"Tee","description":"Soft","price":"1e-99999999"}`,
			fields: map[string]string{"price": "Price must be positive"},
		},
		{
			name:   "huge negative exponent",
			body:   `{"name":"Tee","description":"Soft","price":"-1e99999999"}`,
			fields: map[string]string{"price": "Price must be positive"},
		},
		{
			name:   "non numeric price",
			body:   `{"name":"Tee","description":"Soft","price":"abc"}`,
			fields: map[string]string{"price": "Price must be a number"},
		},
		{
			name:   "null price",
			body:   `{"name":"Tee","description":"Soft","price":null}`,
			fields: map[string]string{"price": "Price is required"},
		},
		{
			name:   "relative image",
			body:   `{"name":"Tee","description":"Soft","price":1,"image":"not a url"}`,
			fields: map[string]string{"image": "Invalid url"},
		},
		{
			name: "wrong types",
			body: `{"name":5,"description":true,"price":1,"image":7}`,
			fields: map[string]string{
				"name":        "Name must be a string",
				"description": "Description must be a string",
				"image":       "Image must be a string",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateCreate(decode(t, tt.body))
			verr := validationError(t, err)

			if len(verr.FieldErrors) != len(tt.fields) {
				t.Errorf("expected %d failing fields, got %v", len(tt.fields), verr.FieldErrors)
			}
			for field, msg := range tt.fields {
				got := verr.FieldErrors[field]
				if len(got) != 1 || got[0] != msg {
					t.Errorf("field %s: expected [%q], got %v", field, msg, got)
				}
			}
		})
	}
}

func TestValidateCreate_NonFiniteFloatPrice(t *testing.T) {
	for _, price := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := New().ValidateCreate(map[string]any{"name": "Tee", "description": "Soft", "price": price})
		verr := validationError(t, err)
		if got := verr.FieldErrors["price"]; len(got) != 1 || got[0] != "Price must be a number" {
			t.Errorf("price %v: unexpected errors %v", price, got)
		}
	}
}

func TestValidatePatch_PriceRange(t *testing.T) {
	_, err := New().ValidatePatch(decode(t, `{"price":"1e11"}`))
	verr := validationError(t, err)
	if got := verr.FieldErrors["price"]; len(got) != 1 || got[0] != "Price must be at most 9999999999.99" {
		t.Errorf("unexpected price errors: %v", got)
	}
}

func TestValidateCreate_NotAnObject(t *testing.T) {
	_, err := New().ValidateCreate(decode(t, `[1,2]`))
	verr := validationError(t, err)
	if len(verr.FormErrors) != 1 || verr.FormErrors[0] != "Expected object" {
		t.Errorf("expected form error, got %v", verr.FormErrors)
	}
	if len(verr.FieldErrors) != 0 {
		t.Errorf("expected no field errors, got %v", verr.FieldErrors)
	}
}

func TestValidatePatch_OnlyPresentFields(t *testing.T) {
	patch, err := New().ValidatePatch(decode(t, `{"price":24.99}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Name != nil || patch.Description != nil || patch.SetImage {
		t.Errorf("expected only price in patch, got %+v", patch)
	}
	if patch.Price == nil || patch.Price.String() != "24.99" {
		t.Errorf("expected price 24.99, got %v", patch.Price)
	}
}

func TestValidatePatch_Image(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantURL string
	}{
		{name: "absent", body: `{}`, wantSet: false},
		{name: "empty clears", body: `{"image":""}`, wantSet: true},
		{name: "null clears", body: `{"image":null}`, wantSet: true},
		{name: "url sets", body: `{"image":"http://img.example.com/a.png"}`, wantSet: true, wantURL: "http://img.example.com/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := v.ValidatePatch(decode(t, tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if patch.SetImage != tt.wantSet {
				t.Errorf("expected SetImage %v, got %v", tt.wantSet, patch.SetImage)
			}
			if tt.wantURL == "" && patch.Image != nil {
				t.Errorf("expected nil image, got %q", *patch.Image)
			}
			if tt.wantURL != "" && (patch.Image == nil || *patch.Image != tt.wantURL) {
				t.Errorf("expected image %q, got %v", tt.wantURL, patch.Image)
			}
		})
	}
}

func TestValidatePatch_NullPriceIsAbsent(t *testing.T) {
	patch, err := New().ValidatePatch(decode(t, `{"price":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !patch.IsEmpty() {
		t.Errorf("expected empty patch, got %+v", patch)
	}
}

func TestValidatePatch_Invalid(t *testing.T) {
	_, err := New().ValidatePatch(decode(t, `{"name":"","price":"0"}`))
	verr := validationError(t, err)
	if got := verr.FieldErrors["name"]; len(got) != 1 || got[0] != "Name is required" {
		t.Errorf("unexpected name errors: %v", got)
	}
	if got := verr.FieldErrors["price"]; len(got) != 1 || got[0] != "Price must be positive" {
		t.Errorf("unexpected price errors: %v", got)
	}
	if _, ok := verr.FieldErrors["description"]; ok {
		t.Error("absent description must not be validated in update mode")
	}
}
