package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/enums"
)

// Promotion is shared across carts, so UsedCount mutates only through the
// guarded update issued by the promotions service. DiscountValue holds
// percent points for percentage promotions and cents for fixed ones.
type Promotion struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name          string             `gorm:"column:name;not null"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue int64              `gorm:"column:discount_value;not null"`
	StartsAt      time.Time          `gorm:"column:starts_at;not null"`
	EndsAt        time.Time          `gorm:"column:ends_at;not null"`
	// Active carries no default tag; gorm omits zero-value fields with one
	// from the INSERT and a paused promotion would come back active.
	Active bool `gorm:"column:active;not null"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	ProductIDs    []uuid.UUID        `gorm:"column:product_ids;type:jsonb;serializer:json"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// WithinWindow reports whether the promotion's validity window contains now.
func (p *Promotion) WithinWindow(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// Exhausted reports whether a configured usage limit has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

// AppliesTo reports whether the promotion covers the given product. An empty
// restriction set covers everything.
func (p *Promotion) AppliesTo(productID uuid.UUID) bool {
	if len(p.ProductIDs) == 0 {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
