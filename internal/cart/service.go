package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type promotionResolver interface {
	ResolveActiveByCode(ctx context.Context, code string, now time.Time) (*models.Promotion, error)
}

type promotionLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
}

// Service exposes cart mutation and read operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	UpdateItemQty(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
	ApplyPromotion(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error)
	RemovePromotion(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	products  productLoader
	promos    promotionResolver
	promoRepo promotionLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, promos promotionResolver, promoRepo promotionLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotion resolver required")
	}
	if promoRepo == nil {
		return nil, fmt.Errorf("promotion loader required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		products:  products,
		promos:    promos,
		promoRepo: promoRepo,
	}, nil
}

// GetCart returns the user's cart. A user with no cart yet gets an empty one
// without a row being written.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewCartDTO(&models.Cart{UserID: userID}, PricingResult{}), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	promo, err := s.activePromotion(ctx, cart)
	if err != nil {
		return nil, err
	}
	return NewCartDTO(cart, ComputeTotal(cart.Items, promo)), nil
}

// AddItem grows the line for the product, refreshing the price snapshot to
// the product's current price.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var out *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadOrCreateCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		line := findLine(cart, productID)
		if line == nil {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:         cart.ID,
				ProductID:      productID,
				Qty:            qty,
				UnitPriceCents: product.PriceCents,
			})
			line = &cart.Items[len(cart.Items)-1]
		} else {
			line.Qty += qty
			line.UnitPriceCents = product.PriceCents
		}
		if err := txRepo.UpsertItem(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart item")
		}

		out, err = s.finalizeCart(ctx, txRepo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItemQty sets the line quantity. Zero removes the line.
func (s *service) UpdateItemQty(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be non-negative")
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var out *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		line := findLine(cart, productID)
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		line.Qty = qty
		line.UnitPriceCents = product.PriceCents
		if err := txRepo.UpsertItem(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert cart item")
		}

		out, err = s.finalizeCart(ctx, txRepo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem drops the line for the product.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		affected, err := txRepo.DeleteItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}

		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept

		out, err = s.finalizeCart(ctx, txRepo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClearCart empties the cart and drops any applied promotion.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}

		if err := txRepo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart items")
		}
		cart.Items = nil
		cart.PromotionID = nil
		cart.TotalCents = 0
		if err := txRepo.SaveCart(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart")
		}
		return nil
	})
}

// ApplyPromotion attaches an active promotion to the cart. The promotion must
// cover at least one line.
func (s *service) ApplyPromotion(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error) {
	promo, err := s.promos.ResolveActiveByCode(ctx, code, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var out *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		covered := false
		for _, item := range cart.Items {
			if promo.AppliesTo(item.ProductID) {
				covered = true
				break
			}
		}
		if !covered {
			return pkgerrors.New(pkgerrors.CodeValidation, "promotion does not apply to any cart item")
		}

		cart.PromotionID = &promo.ID
		pricing := ComputeTotal(cart.Items, promo)
		cart.TotalCents = pricing.TotalCents
		if err := txRepo.SaveCart(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart")
		}
		out = NewCartDTO(cart, pricing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemovePromotion detaches the applied promotion, if any.
func (s *service) RemovePromotion(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	var out *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := s.loadCart(ctx, txRepo, userID)
		if err != nil {
			return err
		}
		cart.PromotionID = nil
		pricing := ComputeTotal(cart.Items, nil)
		cart.TotalCents = pricing.TotalCents
		if err := txRepo.SaveCart(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart")
		}
		out = NewCartDTO(cart, pricing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) loadCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadOrCreateCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	created, err := repo.CreateCart(ctx, &models.Cart{UserID: userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create cart")
	}
	return created, nil
}

// finalizeCart recomputes the cached total and persists the header. A
// promotion that has since expired or been deactivated is silently dropped.
func (s *service) finalizeCart(ctx context.Context, repo *Repository, cart *models.Cart) (*CartDTO, error) {
	promo, err := s.activePromotion(ctx, cart)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		cart.PromotionID = nil
	}

	pricing := ComputeTotal(cart.Items, promo)
	cart.TotalCents = pricing.TotalCents
	if err := repo.SaveCart(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save cart")
	}
	return NewCartDTO(cart, pricing), nil
}

// activePromotion loads the cart's promotion and checks it is still usable.
func (s *service) activePromotion(ctx context.Context, cart *models.Cart) (*models.Promotion, error) {
	if cart.PromotionID == nil {
		return nil, nil
	}
	promo, err := s.promoRepo.FindByID(ctx, *cart.PromotionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart promotion")
	}
	if !promo.Active || !promo.WithinWindow(time.Now().UTC()) || promo.Exhausted() {
		return nil, nil
	}
	return promo, nil
}

func findLine(cart *models.Cart, productID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}
