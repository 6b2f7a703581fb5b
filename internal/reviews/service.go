package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes review CRUD with derived-stat maintenance. Every mutation
// recomputes the product's rating and num_reviews inside the same
// transaction, so the derived columns can never drift from the review set.
type Service interface {
	CreateReview(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	UpdateReview(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error)
	DeleteReview(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error)
}

// CreateReviewInput holds the validated payload to create a review.
type CreateReviewInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// UpdateReviewInput holds optional mutation values for a review.
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
}

// NewService constructs a review service instance.
func NewService(repo *Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// CreateReview inserts the review and recomputes product stats atomically.
// One review per (product, user); a second attempt is rejected.
func (s *service) CreateReview(ctx context.Context, userID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var out *ReviewDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindByProductAndUser(ctx, input.ProductID, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateReview, "user already reviewed this product")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing review")
		}

		review := &models.Review{
			ProductID: input.ProductID,
			UserID:    userID,
			Rating:    input.Rating,
			Comment:   strings.TrimSpace(input.Comment),
		}
		created, err := txRepo.CreateReview(ctx, review)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert review")
		}

		if err := recalculateProductStats(ctx, txRepo, input.ProductID); err != nil {
			return err
		}

		out = NewReviewDTO(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateReview mutates rating or comment. Only the author or an admin may
// touch a review.
func (s *service) UpdateReview(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error) {
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
	}

	var out *ReviewDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		review, err := loadReview(ctx, txRepo, reviewID)
		if err != nil {
			return err
		}
		if err := ensureOwnerOrAdmin(review, actorID, actorRole); err != nil {
			return err
		}

		if input.Rating != nil {
			review.Rating = *input.Rating
		}
		if input.Comment != nil {
			review.Comment = strings.TrimSpace(*input.Comment)
		}
		updated, err := txRepo.UpdateReview(ctx, review)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update review")
		}

		if err := recalculateProductStats(ctx, txRepo, review.ProductID); err != nil {
			return err
		}

		out = NewReviewDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteReview removes the review and recomputes product stats. Deleting the
// last review resets the product to an unrated state.
func (s *service) DeleteReview(ctx context.Context, actorID uuid.UUID, actorRole enums.Role, reviewID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		review, err := loadReview(ctx, txRepo, reviewID)
		if err != nil {
			return err
		}
		if err := ensureOwnerOrAdmin(review, actorID, actorRole); err != nil {
			return err
		}

		if err := txRepo.DeleteReview(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete review")
		}

		return recalculateProductStats(ctx, txRepo, review.ProductID)
	})
}

// ListByProduct returns all reviews of the product, newest first.
func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error) {
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	dtos := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewReviewDTO(&rows[i]))
	}
	return dtos, nil
}

// recalculateProductStats rewrites the derived columns from a full scan of
// the product's reviews. Runs inside the caller's transaction.
func recalculateProductStats(ctx context.Context, repo *Repository, productID uuid.UUID) error {
	stats, err := repo.AggregateByProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate reviews")
	}
	if err := repo.WriteProductStats(ctx, productID, stats); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: write product stats")
	}
	return nil
}

func loadReview(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Review, error) {
	review, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	return review, nil
}

func ensureOwnerOrAdmin(review *models.Review, actorID uuid.UUID, actorRole enums.Role) error {
	if review.UserID == actorID || actorRole.IsAdmin() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "review belongs to another user")
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return nil
}
