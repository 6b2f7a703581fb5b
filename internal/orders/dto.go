package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/pagination"
)

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

// CreateOrderInput carries everything checkout needs beyond the caller identity.
type CreateOrderInput struct {
	Items     []OrderItemInput `json:"items"`
	PromoCode *string          `json:"promo_code,omitempty"`
}

// PaymentResult is the opaque outcome handed back by the payment provider.
type PaymentResult struct {
	Reference string `json:"reference"`
}

// OrderItemDTO mirrors the persisted line snapshot.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Qty            int       `json:"qty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Items         []OrderItemDTO `json:"items"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	TotalCents    int64          `json:"total_cents"`
	PromotionID   *uuid.UUID     `json:"promotion_id,omitempty"`
	IsPaid        bool           `json:"is_paid"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	PaymentRef    *string        `json:"payment_ref,omitempty"`
	IsDelivered   bool           `json:"is_delivered"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// OrderListResult carries one page of a user's orders plus the next cursor.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// AdminOrderListResult adds the running total across every order on record.
type AdminOrderListResult struct {
	Orders           []OrderDTO `json:"orders"`
	NextCursor       string     `json:"next_cursor,omitempty"`
	TotalAmountCents int64      `json:"total_amount_cents"`
}

// ListOrdersInput captures pagination for the order listings.
type ListOrdersInput struct {
	Pagination pagination.Params
}

// NewOrderDTO converts the stored order into its API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for i := range order.Items {
		item := order.Items[i]
		items = append(items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return &OrderDTO{
		ID:            order.ID,
		UserID:        order.UserID,
		Items:         items,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TotalCents:    order.TotalCents,
		PromotionID:   order.PromotionID,
		IsPaid:        order.IsPaid,
		PaidAt:        order.PaidAt,
		PaymentRef:    order.PaymentRef,
		IsDelivered:   order.IsDelivered,
		DeliveredAt:   order.DeliveredAt,
		CreatedAt:     order.CreatedAt,
	}
}
