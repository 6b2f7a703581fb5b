package promotion

import (
	"time"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
)

// PromotionDTO represents the promotion payload returned to clients.
type PromotionDTO struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Code          string      `json:"code"`
	DiscountType  string      `json:"discount_type"`
	DiscountValue int64       `json:"discount_value"`
	StartsAt      time.Time   `json:"starts_at"`
	EndsAt        time.Time   `json:"ends_at"`
	Active        bool        `json:"active"`
	UsageLimit    *int        `json:"usage_limit,omitempty"`
	UsedCount     int         `json:"used_count"`
	ProductIDs    []uuid.UUID `json:"product_ids,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewPromotionDTO builds a DTO from the persisted model.
func NewPromotionDTO(promo *models.Promotion) *PromotionDTO {
	return &PromotionDTO{
		ID:            promo.ID,
		Name:          promo.Name,
		Code:          promo.Code,
		DiscountType:  promo.DiscountType.String(),
		DiscountValue: promo.DiscountValue,
		StartsAt:      promo.StartsAt,
		EndsAt:        promo.EndsAt,
		Active:        promo.Active,
		UsageLimit:    promo.UsageLimit,
		UsedCount:     promo.UsedCount,
		ProductIDs:    append([]uuid.UUID(nil), promo.ProductIDs...),
		CreatedAt:     promo.CreatedAt,
		UpdatedAt:     promo.UpdatedAt,
	}
}
