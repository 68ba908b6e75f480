// Package pricing derives order totals. All arithmetic runs on integer cents and
// total == subtotal + tax + shipping holds exactly on the *Cents fields. The
// dollar fields are the same amounts rounded to float64 for display; summing
// them in floating point can be off by one ulp.
package pricing

import (
	"math"

	"github.com/himalfrost/store-api/internal/domain"
)

// Rules are the store-wide pricing parameters.
type Rules struct {
	TaxRate           float64 // e.g. 0.08
	ShippingFee       float64 // dollars, charged below the threshold
	FreeShippingAbove float64 // dollars; subtotal >= this ships free
}

// DefaultRules match the storefront defaults: 8% tax, $5 shipping under $50.
var DefaultRules = Rules{TaxRate: 0.08, ShippingFee: 5.00, FreeShippingAbove: 50.00}

type Quote struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`

	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// ToCents converts a dollar amount to whole cents, rounding half away from zero.
func ToCents(v float64) int64 { return int64(math.Round(v * 100)) }

// FromCents converts cents back to dollars.
func FromCents(c int64) float64 { return float64(c) / 100 }

// SubtotalCents folds price x quantity over the items.
func SubtotalCents(items []domain.OrderItem) int64 {
	var sum int64
	for _, it := range items {
		sum += ToCents(it.Price) * int64(it.Quantity)
	}
	return sum
}

// Calculate returns subtotal, tax, shipping and total for items.
func (r Rules) Calculate(items []domain.OrderItem) Quote {
	subtotal := SubtotalCents(items)
	tax := int64(math.Round(float64(subtotal) * r.TaxRate))
	var shipping int64
	if subtotal < ToCents(r.FreeShippingAbove) {
		shipping = ToCents(r.ShippingFee)
	}
	total := subtotal + tax + shipping
	return Quote{
		Subtotal:      FromCents(subtotal),
		Tax:           FromCents(tax),
		Shipping:      FromCents(shipping),
		Total:         FromCents(total),
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    total,
	}
}
