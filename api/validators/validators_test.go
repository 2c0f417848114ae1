package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type priceRequest struct {
	ProductID    string           `json:"product_id" validate:"required"`
	Quantity     int              `json:"quantity" validate:"min=0"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty" validate:"omitempty,gt=0"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"p1","quantity":2,"selling_price":"9.50"}`))
	var dest priceRequest
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.ProductID != "p1" || dest.Quantity != 2 || dest.SellingPrice.String() != "9.5" {
		t.Fatalf("unexpected decode %+v", dest)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"unknown field":       {body: `{"product_id":"p1","extra":true}`},
		"malformed":           {body: `{"product_id":`},
		"missing product":     {body: `{"quantity":1}`, field: "product_id"},
		"zero selling price":  {body: `{"product_id":"p1","selling_price":"0"}`, field: "selling_price"},
		"negative sell price": {body: `{"product_id":"p1","selling_price":-3}`, field: "selling_price"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dest priceRequest
			err := DecodeJSONBody(req, &dest)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tc.field == "" {
				return
			}
			details, ok := typed.Details().(map[string]string)
			if !ok {
				t.Fatalf("expected field details, got %T", typed.Details())
			}
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected %s in details %v", tc.field, details)
			}
		})
	}
}

func TestParseSearch(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=++blue+dream++&limit=5", nil)
	params, err := ParseSearch(req, 200, 20, 100)
	if err != nil || params.Query != "blue dream" || params.Limit != 5 {
		t.Fatalf("unexpected %+v %v", params, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?q=kush", nil)
	if params, err := ParseSearch(req, 200, 20, 100); err != nil || params.Limit != 20 {
		t.Fatalf("expected default limit, got %+v %v", params, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?q=&limit=abc", nil)
	if params, err := ParseSearch(req, 200, 20, 100); err != nil || params.Query != "" {
		t.Fatalf("blank query should not validate limit, got %+v %v", params, err)
	}

	for _, rawQuery := range []string{"q=kush&limit=abc", "q=kush&limit=500", "q=kush&limit=0"} {
		req = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
		_, err := ParseSearch(req, 200, 20, 100)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", rawQuery, err)
		}
		if details, ok := typed.Details().(map[string]string); !ok || details["limit"] == "" {
			t.Fatalf("%s: expected limit in details, got %v", rawQuery, typed.Details())
		}
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
	}
	for header, want := range cases {
		got, err := BearerToken(header)
		if err != nil || got != want {
			t.Fatalf("BearerToken(%q) = %q, %v", header, got, err)
		}
	}
	for _, header := range []string{"", "  ", "Bearer "} {
		if _, err := BearerToken(header); err != ErrMissingToken {
			t.Fatalf("BearerToken(%q) expected ErrMissingToken, got %v", header, err)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := SanitizeString("  hello  ", 3); got != "hel" {
		t.Fatalf("unexpected %q", got)
	}
	// "é" is two bytes; a cap landing inside it drops the whole character.
	if got := SanitizeString("caféine", 4); got != "caf" {
		t.Fatalf("expected cut on a character boundary, got %q", got)
	}
	if got := SanitizeString("café", 5); got != "café" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("日本語", 7); !utf8.ValidString(got) || got != "日本" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestProductID(t *testing.T) {
	got, err := ProductID(" p-1 ")
	if err != nil || got != "p-1" {
		t.Fatalf("unexpected %q %v", got, err)
	}

	got, err = ProductID(strings.Repeat("a", maxProductIDLen))
	if err != nil || len(got) != maxProductIDLen {
		t.Fatalf("id at the cap should pass unchanged, got %d bytes %v", len(got), err)
	}

	for name, raw := range map[string]string{
		"one byte over": strings.Repeat("a", maxProductIDLen) + "b",
		"shared prefix": strings.Repeat("x", maxProductIDLen) + "-variant-2",
		"invalid utf-8": "p-\xff",
	} {
		got, err := ProductID(raw)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %q %v", name, got, err)
		}
		if got != "" {
			t.Fatalf("%s: expected no id, got %q", name, got)
		}
	}
}
