package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order captures a priced checkout snapshot. Totals are fixed at creation
// time; only the paid/delivered flags and their timestamps mutate afterwards.
type Order struct {
	ID            uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID   `gorm:"column:user_id;type:uuid;not null"`
	SubtotalCents int64       `gorm:"column:subtotal_cents;not null"`
	DiscountCents int64       `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int64       `gorm:"column:total_cents;not null"`
	PromotionID   *uuid.UUID  `gorm:"column:promotion_id;type:uuid"`
	IsPaid        bool        `gorm:"column:is_paid;not null;default:false"`
	PaidAt        *time.Time  `gorm:"column:paid_at"`
	PaymentRef    *string     `gorm:"column:payment_ref"`
	IsDelivered   bool        `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt   *time.Time  `gorm:"column:delivered_at"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
