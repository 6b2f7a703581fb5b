package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the canonical catalog listing. Stock is mutated only through
// guarded updates issued by the inventory engine; Rating and NumReviews are
// derived from the review set and rewritten by the aggregate recalculator.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	Brand       string    `gorm:"column:brand;not null"`
	Category    string    `gorm:"column:category;not null"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	Rating      float64   `gorm:"column:rating;not null;default:0"`
	NumReviews  int       `gorm:"column:num_reviews;not null;default:0"`
	CreatedBy   uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
