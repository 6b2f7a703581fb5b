package review

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
)

// Repository wires together review persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a review by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindByProductAndUser loads the user's review of the product, if any.
func (r *Repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		First(&review, "product_id = ? AND user_id = ?", productID, userID).
		Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// CreateReview inserts a new review row.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// UpdateReview updates an existing review row.
func (r *Repository) UpdateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Save(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes a review by ID.
func (r *Repository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{}).Error
}

// ListByProduct returns all reviews for the product, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// reviewStats is the aggregate snapshot of one product's reviews.
type reviewStats struct {
	Count int64
	Avg   float64
}

// AggregateByProduct scans every review for the product and returns the
// count and mean rating. Zero reviews yields a zero mean.
func (r *Repository) AggregateByProduct(ctx context.Context, productID uuid.UUID) (reviewStats, error) {
	var stats struct {
		Count int64
		Avg   *float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, AVG(rating) AS avg").
		Where("product_id = ?", productID).
		Scan(&stats).
		Error
	if err != nil {
		return reviewStats{}, err
	}
	out := reviewStats{Count: stats.Count}
	if stats.Avg != nil {
		out.Avg = *stats.Avg
	}
	return out, nil
}

// WriteProductStats rewrites the product's derived rating columns.
func (r *Repository) WriteProductStats(ctx context.Context, productID uuid.UUID, stats reviewStats) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating":      stats.Avg,
			"num_reviews": stats.Count,
		}).Error
}
