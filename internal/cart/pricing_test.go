package cart

import (
	"testing"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
)

func TestComputeTotalNoPromotion(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{ProductID: uuid.New(), Qty: 2, UnitPriceCents: 1050},
		{ProductID: uuid.New(), Qty: 1, UnitPriceCents: 399},
	}

	got := ComputeTotal(items, nil)
	if got.SubtotalCents != 2499 || got.DiscountCents != 0 || got.TotalCents != 2499 {
		t.Fatalf("unexpected pricing: %+v", got)
	}
}

func TestComputeTotalPercentage(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{ProductID: uuid.New(), Qty: 3, UnitPriceCents: 333},
	}
	promo := &models.Promotion{
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 10,
	}

	got := ComputeTotal(items, promo)
	if got.SubtotalCents != 999 {
		t.Fatalf("expected subtotal 999, got %d", got.SubtotalCents)
	}
	// 10% of 999 is 99.9, rounded to the nearest cent.
	if got.DiscountCents != 100 {
		t.Fatalf("expected discount 100, got %d", got.DiscountCents)
	}
	if got.TotalCents != 899 {
		t.Fatalf("expected total 899, got %d", got.TotalCents)
	}
}

func TestComputeTotalFixedClampsToEligible(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{ProductID: uuid.New(), Qty: 1, UnitPriceCents: 500},
	}
	promo := &models.Promotion{
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 2000,
	}

	got := ComputeTotal(items, promo)
	if got.DiscountCents != 500 {
		t.Fatalf("expected discount clamped to 500, got %d", got.DiscountCents)
	}
	if got.TotalCents != 0 {
		t.Fatalf("expected total 0, got %d", got.TotalCents)
	}
}

func TestComputeTotalRestrictedPromotion(t *testing.T) {
	t.Parallel()

	covered := uuid.New()
	other := uuid.New()
	items := []models.CartItem{
		{ProductID: covered, Qty: 2, UnitPriceCents: 1000},
		{ProductID: other, Qty: 1, UnitPriceCents: 5000},
	}
	promo := &models.Promotion{
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 50,
		ProductIDs:    []uuid.UUID{covered},
	}

	got := ComputeTotal(items, promo)
	if got.SubtotalCents != 7000 {
		t.Fatalf("expected subtotal 7000, got %d", got.SubtotalCents)
	}
	// Only the covered line's 2000 is discountable.
	if got.DiscountCents != 1000 {
		t.Fatalf("expected discount 1000, got %d", got.DiscountCents)
	}
	if got.TotalCents != 6000 {
		t.Fatalf("expected total 6000, got %d", got.TotalCents)
	}
}

func TestComputeTotalPromotionCoversNothing(t *testing.T) {
	t.Parallel()

	items := []models.CartItem{
		{ProductID: uuid.New(), Qty: 1, UnitPriceCents: 1500},
	}
	promo := &models.Promotion{
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 100,
		ProductIDs:    []uuid.UUID{uuid.New()},
	}

	got := ComputeTotal(items, promo)
	if got.DiscountCents != 0 || got.TotalCents != 1500 {
		t.Fatalf("expected no discount, got %+v", got)
	}
}

func TestComputeTotalEmptyCart(t *testing.T) {
	t.Parallel()

	got := ComputeTotal(nil, nil)
	if got.SubtotalCents != 0 || got.DiscountCents != 0 || got.TotalCents != 0 {
		t.Fatalf("expected zero pricing, got %+v", got)
	}
}
