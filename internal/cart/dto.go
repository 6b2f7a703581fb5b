package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
)

// CartDTO represents the cart payload returned to clients.
type CartDTO struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	PromotionID   *uuid.UUID    `json:"promotion_id,omitempty"`
	SubtotalCents int64         `json:"subtotal_cents"`
	DiscountCents int64         `json:"discount_cents"`
	TotalCents    int64         `json:"total_cents"`
	Items         []CartItemDTO `json:"items"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CartItemDTO is one cart line.
type CartItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// NewCartDTO builds a DTO from the persisted cart and its priced snapshot.
func NewCartDTO(cart *models.Cart, pricing PricingResult) *CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.UnitPriceCents * int64(item.Qty),
		})
	}
	return &CartDTO{
		ID:            cart.ID,
		UserID:        cart.UserID,
		PromotionID:   cart.PromotionID,
		SubtotalCents: pricing.SubtotalCents,
		DiscountCents: pricing.DiscountCents,
		TotalCents:    pricing.TotalCents,
		Items:         items,
		UpdatedAt:     cart.UpdatedAt,
	}
}
