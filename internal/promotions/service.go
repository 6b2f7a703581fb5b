package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
)

// Service exposes promotion management and redemption accounting.
type Service interface {
	CreatePromotion(ctx context.Context, input CreatePromotionInput) (*PromotionDTO, error)
	UpdatePromotion(ctx context.Context, promotionID uuid.UUID, input UpdatePromotionInput) (*PromotionDTO, error)
	DeletePromotion(ctx context.Context, promotionID uuid.UUID) error
	GetPromotion(ctx context.Context, promotionID uuid.UUID) (*PromotionDTO, error)
	ListPromotions(ctx context.Context) ([]PromotionDTO, error)

	// ResolveActiveByCode returns the promotion iff it is active and inside
	// its validity window at the given instant.
	ResolveActiveByCode(ctx context.Context, code string, now time.Time) (*models.Promotion, error)

	// ConsumeUsage takes one redemption; ReleaseUsage gives it back.
	ConsumeUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error
	ReleaseUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error
}

// CreatePromotionInput holds the validated payload to create a promotion.
type CreatePromotionInput struct {
	Name          string
	Code          string
	DiscountType  enums.DiscountType
	DiscountValue int64
	StartsAt      time.Time
	EndsAt        time.Time
	Active        bool
	UsageLimit    *int
	ProductIDs    []uuid.UUID
}

// UpdatePromotionInput holds optional mutation values for a promotion.
type UpdatePromotionInput struct {
	Name          *string
	DiscountType  *enums.DiscountType
	DiscountValue *int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	Active        *bool
	UsageLimit    *int
	ProductIDs    *[]uuid.UUID
}

// service implements the promotion service.
type service struct {
	repo *Repository
}

// NewService constructs a promotion service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreatePromotion(ctx context.Context, input CreatePromotionInput) (*PromotionDTO, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if err := validateDiscount(input.DiscountType, input.DiscountValue); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	if input.UsageLimit != nil && *input.UsageLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be non-negative")
	}

	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion by code")
	}

	promo := &models.Promotion{
		Name:          strings.TrimSpace(input.Name),
		Code:          code,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		Active:        input.Active,
		UsageLimit:    input.UsageLimit,
		ProductIDs:    append([]uuid.UUID(nil), input.ProductIDs...),
	}

	created, err := s.repo.CreatePromotion(ctx, promo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert promotion")
	}
	return NewPromotionDTO(created), nil
}

func (s *service) UpdatePromotion(ctx context.Context, promotionID uuid.UUID, input UpdatePromotionInput) (*PromotionDTO, error) {
	promo, err := s.loadPromotion(ctx, promotionID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		promo.Name = strings.TrimSpace(*input.Name)
	}
	if input.DiscountType != nil {
		promo.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		promo.DiscountValue = *input.DiscountValue
	}
	if err := validateDiscount(promo.DiscountType, promo.DiscountValue); err != nil {
		return nil, err
	}

	if input.StartsAt != nil {
		promo.StartsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		promo.EndsAt = *input.EndsAt
	}
	if err := validateWindow(promo.StartsAt, promo.EndsAt); err != nil {
		return nil, err
	}

	if input.Active != nil {
		promo.Active = *input.Active
	}
	if input.UsageLimit != nil {
		if *input.UsageLimit < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must be non-negative")
		}
		promo.UsageLimit = input.UsageLimit
	}
	if input.ProductIDs != nil {
		promo.ProductIDs = append([]uuid.UUID(nil), (*input.ProductIDs)...)
	}

	updated, err := s.repo.UpdatePromotion(ctx, promo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update promotion")
	}
	return NewPromotionDTO(updated), nil
}

func (s *service) DeletePromotion(ctx context.Context, promotionID uuid.UUID) error {
	if _, err := s.loadPromotion(ctx, promotionID); err != nil {
		return err
	}
	if err := s.repo.DeletePromotion(ctx, promotionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete promotion")
	}
	return nil
}

func (s *service) GetPromotion(ctx context.Context, promotionID uuid.UUID) (*PromotionDTO, error) {
	promo, err := s.loadPromotion(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	return NewPromotionDTO(promo), nil
}

func (s *service) ListPromotions(ctx context.Context) ([]PromotionDTO, error) {
	rows, err := s.repo.ListPromotions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	dtos := make([]PromotionDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewPromotionDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ResolveActiveByCode(ctx context.Context, code string, now time.Time) (*models.Promotion, error) {
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion by code")
	}
	if !promo.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion is not active")
	}
	if !promo.WithinWindow(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion is outside its validity window")
	}
	if promo.Exhausted() {
		return nil, pkgerrors.New(pkgerrors.CodePromoLimit, "promotion usage limit reached")
	}
	return promo, nil
}

// ConsumeUsage takes one redemption inside the caller's transaction. The
// guarded update loses the race cleanly when the last redemption is gone.
func (s *service) ConsumeUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error {
	affected, err := s.repo.WithTx(tx).IncrementUsage(ctx, promotionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment promo usage")
	}
	if affected == 0 {
		if _, lerr := s.repo.WithTx(tx).FindByID(ctx, promotionID); errors.Is(lerr, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return pkgerrors.New(pkgerrors.CodePromoLimit, "promotion usage limit reached")
	}
	return nil
}

// ReleaseUsage compensates a consumed redemption after a failed checkout.
func (s *service) ReleaseUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error {
	if _, err := s.repo.WithTx(tx).DecrementUsage(ctx, promotionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement promo usage")
	}
	return nil
}

func (s *service) loadPromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	return promo, nil
}

func validateDiscount(discountType enums.DiscountType, value int64) error {
	if !discountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount_type")
	}
	if value < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_value must be non-negative")
	}
	if discountType == enums.DiscountTypePercentage && value > 100 {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	return nil
}

func validateWindow(startsAt, endsAt time.Time) error {
	if startsAt.IsZero() || endsAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "starts_at and ends_at are required")
	}
	if !startsAt.Before(endsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "starts_at must be before ends_at")
	}
	return nil
}
