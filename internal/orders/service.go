package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/internal/cart"
	"github.com/avendanolabs/storefront-backend/internal/inventory"
	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
	"github.com/avendanolabs/storefront-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, req inventory.ReservationRequest) (*inventory.Reservation, error)
	Release(ctx context.Context, tx *gorm.DB, rsv inventory.Reservation) error
}

type promotionRedeemer interface {
	ResolveActiveByCode(ctx context.Context, code string, now time.Time) (*models.Promotion, error)
	ConsumeUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error
	ReleaseUsage(ctx context.Context, tx *gorm.DB, promotionID uuid.UUID) error
}

type orderNotifier interface {
	OrderConfirmed(ctx context.Context, userID, orderID uuid.UUID, totalCents int64)
	OrderDelivered(ctx context.Context, userID, orderID uuid.UUID)
}

// Service coordinates the order lifecycle from checkout to delivery.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, result PaymentResult) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
	GetByID(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (*OrderDTO, error)
	ListByUser(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*OrderListResult, error)
	ListAll(ctx context.Context, input ListOrdersInput) (*AdminOrderListResult, error)
}

type service struct {
	repo       *Repository
	tx         txRunner
	inventory  stockReserver
	promotions promotionRedeemer
	notifier   orderNotifier
	checkout   *metrics.CheckoutMetrics
	now        func() time.Time
}

// NewService builds the order service. The notifier and metrics may be nil.
func NewService(
	repo *Repository,
	tx txRunner,
	stock stockReserver,
	promos promotionRedeemer,
	notifier orderNotifier,
	checkout *metrics.CheckoutMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotion redeemer required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		inventory:  stock,
		promotions: promos,
		notifier:   notifier,
		checkout:   checkout,
		now:        time.Now,
	}, nil
}

// Create runs checkout as a sequence of independently atomic steps: one
// guarded stock decrement per line, one guarded promo redemption, then the
// order write. Any failed step releases everything the earlier steps took.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	start := s.now()
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateOrderItems(input.Items); err != nil {
		return nil, err
	}

	granted := make([]inventory.Reservation, 0, len(input.Items))
	for _, item := range input.Items {
		var rsv *inventory.Reservation
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var rErr error
			rsv, rErr = s.inventory.Reserve(ctx, tx, inventory.ReservationRequest{
				ProductID: item.ProductID,
				Qty:       item.Qty,
			})
			return rErr
		})
		if err != nil {
			s.checkout.ObserveCheckout("conflict", s.now().Sub(start))
			return nil, s.failCheckout(ctx, err, granted, nil)
		}
		granted = append(granted, *rsv)
	}

	var promo *models.Promotion
	if input.PromoCode != nil && *input.PromoCode != "" {
		resolved, err := s.promotions.ResolveActiveByCode(ctx, *input.PromoCode, s.now())
		if err != nil {
			s.checkout.ObserveCheckout("promo_rejected", s.now().Sub(start))
			return nil, s.failCheckout(ctx, err, granted, nil)
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.promotions.ConsumeUsage(ctx, tx, resolved.ID)
		})
		if err != nil {
			s.checkout.ObserveCheckout("promo_rejected", s.now().Sub(start))
			return nil, s.failCheckout(ctx, err, granted, nil)
		}
		promo = resolved
	}

	order := buildOrder(userID, granted, promo)
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var cErr error
		created, cErr = s.repo.WithTx(tx).CreateOrder(ctx, order)
		return cErr
	})
	if err != nil {
		s.checkout.ObserveCheckout("error", s.now().Sub(start))
		var promoID *uuid.UUID
		if promo != nil {
			promoID = &promo.ID
		}
		cause := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: persist order")
		return nil, s.failCheckout(ctx, cause, granted, promoID)
	}

	s.checkout.ObserveCheckout("success", s.now().Sub(start))
	if s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, userID, created.ID, created.TotalCents)
	}
	return NewOrderDTO(created), nil
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, result PaymentResult) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if loaded.IsPaid {
			order = loaded
			return nil
		}

		paidAt := s.now().UTC()
		updates := map[string]any{
			"is_paid": true,
			"paid_at": paidAt,
		}
		if result.Reference != "" {
			updates["payment_ref"] = result.Reference
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order paid")
		}

		loaded.IsPaid = true
		loaded.PaidAt = &paidAt
		if result.Reference != "" {
			ref := result.Reference
			loaded.PaymentRef = &ref
		}
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	firstTransition := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if loaded.IsDelivered {
			order = loaded
			return nil
		}

		deliveredAt := s.now().UTC()
		updates := map[string]any{
			"is_delivered": true,
			"delivered_at": deliveredAt,
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark order delivered")
		}

		loaded.IsDelivered = true
		loaded.DeliveredAt = &deliveredAt
		order = loaded
		firstTransition = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if firstTransition && s.notifier != nil {
		s.notifier.OrderDelivered(ctx, order.UserID, order.ID)
	}
	return NewOrderDTO(order), nil
}

// Delete restores each line's stock and promo redemption, then removes the
// order and its items. Lines for products removed from the catalog are
// skipped; there is nowhere left to return their stock.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			rsv := inventory.Reservation{
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
			}
			if err := s.inventory.Release(ctx, tx, rsv); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					continue
				}
				return err
			}
		}

		if order.PromotionID != nil {
			if err := s.promotions.ReleaseUsage(ctx, tx, *order.PromotionID); err != nil {
				return err
			}
		}

		if err := repo.DeleteOrder(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order")
		}
		return nil
	})
}

func (s *service) GetByID(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.Role) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actorID && !actorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*OrderListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	rows, nextCursor, err := s.repo.ListOrders(ctx, orderListQuery{
		UserID:     &userID,
		Pagination: input.Pagination,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return &OrderListResult{Orders: toOrderDTOs(rows), NextCursor: nextCursor}, nil
}

func (s *service) ListAll(ctx context.Context, input ListOrdersInput) (*AdminOrderListResult, error) {
	rows, nextCursor, err := s.repo.ListOrders(ctx, orderListQuery{Pagination: input.Pagination})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	total, err := s.repo.SumTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sum order totals")
	}
	return &AdminOrderListResult{
		Orders:           toOrderDTOs(rows),
		NextCursor:       nextCursor,
		TotalAmountCents: total,
	}, nil
}

// failCheckout compensates every step that already landed. When compensation
// itself fails the aggregate outranks the original cause: stock or promo
// counters are now wrong and the caller has to know.
func (s *service) failCheckout(ctx context.Context, cause error, granted []inventory.Reservation, promoID *uuid.UUID) error {
	var errs error
	for _, rsv := range granted {
		rsv := rsv
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.inventory.Release(ctx, tx, rsv)
		})
		errs = multierr.Append(errs, err)
	}
	if promoID != nil {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.promotions.ReleaseUsage(ctx, tx, *promoID)
		})
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		s.checkout.IncCompensationFailure()
		return pkgerrors.Wrap(pkgerrors.CodeCompensation, multierr.Append(cause, errs), "checkout rollback incomplete")
	}
	return cause
}

func buildOrder(userID uuid.UUID, granted []inventory.Reservation, promo *models.Promotion) *models.Order {
	lines := make([]models.CartItem, 0, len(granted))
	items := make([]models.OrderItem, 0, len(granted))
	for _, rsv := range granted {
		lines = append(lines, models.CartItem{
			ProductID:      rsv.ProductID,
			Qty:            rsv.Qty,
			UnitPriceCents: rsv.UnitPriceCents,
		})
		items = append(items, models.OrderItem{
			ProductID:      rsv.ProductID,
			Name:           rsv.Name,
			Qty:            rsv.Qty,
			UnitPriceCents: rsv.UnitPriceCents,
			TotalCents:     rsv.UnitPriceCents * int64(rsv.Qty),
		})
	}

	priced := cart.ComputeTotal(lines, promo)
	order := &models.Order{
		UserID:        userID,
		Items:         items,
		SubtotalCents: priced.SubtotalCents,
		DiscountCents: priced.DiscountCents,
		TotalCents:    priced.TotalCents,
	}
	if promo != nil {
		id := promo.ID
		order.PromotionID = &id
	}
	return order
}

func validateOrderItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line")
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

func loadOrder(ctx context.Context, repo *Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func toOrderDTOs(rows []models.Order) []OrderDTO {
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewOrderDTO(&rows[i]))
	}
	return dtos
}
