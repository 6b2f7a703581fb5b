package cart

import (
	"github.com/shopspring/decimal"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
)

// PricingResult is the priced snapshot of a cart.
type PricingResult struct {
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

// ComputeTotal prices the cart lines and applies the promotion, if any. The
// function is pure: same lines and promotion always produce the same result.
//
// A promotion with a product restriction set discounts only the lines it
// covers. The discount never exceeds the eligible subtotal, so totals cannot
// go negative.
func ComputeTotal(items []models.CartItem, promo *models.Promotion) PricingResult {
	var subtotal int64
	var eligible int64

	for _, item := range items {
		line := item.UnitPriceCents * int64(item.Qty)
		subtotal += line
		if promo != nil && promo.AppliesTo(item.ProductID) {
			eligible += line
		}
	}

	discount := int64(0)
	if promo != nil && eligible > 0 {
		switch promo.DiscountType {
		case enums.DiscountTypePercentage:
			discount = percentageOf(eligible, promo.DiscountValue)
		case enums.DiscountTypeFixed:
			discount = promo.DiscountValue
		}
		if discount > eligible {
			discount = eligible
		}
		if discount < 0 {
			discount = 0
		}
	}

	return PricingResult{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
	}
}

// percentageOf computes cents * percent / 100 in decimal space, rounding to
// the nearest cent, so repeated float math cannot drift the total.
func percentageOf(cents int64, percent int64) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
