package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
	"github.com/avendanolabs/storefront-backend/pkg/metrics"
)

// ReservationRequest asks for qty units of one product.
type ReservationRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// Reservation is a granted request plus the price snapshot taken at grant
// time. Callers that fail later must hand the same value back to Release.
type Reservation struct {
	ProductID      uuid.UUID
	Qty            int
	Name           string
	UnitPriceCents int64
}

// Engine hands out stock through guarded decrements. A reservation either
// lands atomically or not at all; there is no partial grant for a request.
type Engine struct {
	checkout *metrics.CheckoutMetrics
}

// NewEngine constructs the reservation engine. Metrics may be nil.
func NewEngine(checkout *metrics.CheckoutMetrics) *Engine {
	return &Engine{checkout: checkout}
}

// Reserve decrements stock for the requested product iff enough remains.
// The qty comparison happens inside the UPDATE so concurrent reservations
// for the last units cannot both win.
func (e *Engine) Reserve(ctx context.Context, tx *gorm.DB, req ReservationRequest) (*Reservation, error) {
	if req.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", req.ProductID, req.Qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", req.Qty))
	if res.Error != nil {
		e.checkout.IncReservation("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: decrement stock")
	}

	if res.RowsAffected == 0 {
		// Re-read to tell a missing product from an undersupplied one.
		var product models.Product
		err := tx.WithContext(ctx).First(&product, "id = ?", req.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.checkout.IncReservation("not_found")
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if err != nil {
			e.checkout.IncReservation("error")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
		}
		e.checkout.IncReservation("conflict")
		return nil, pkgerrors.New(
			pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for product %s", product.ID),
		).WithDetails(map[string]any{
			"product_id": product.ID,
			"requested":  req.Qty,
			"available":  product.Stock,
		})
	}

	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", req.ProductID).Error; err != nil {
		e.checkout.IncReservation("error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product after reserve")
	}

	e.checkout.IncReservation("success")
	return &Reservation{
		ProductID:      product.ID,
		Qty:            req.Qty,
		Name:           product.Name,
		UnitPriceCents: product.PriceCents,
	}, nil
}

// Release returns previously reserved units to stock. It is the compensation
// half of Reserve and must not be called with a reservation that never landed.
func (e *Engine) Release(ctx context.Context, tx *gorm.DB, rsv Reservation) error {
	if rsv.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", rsv.ProductID).
		UpdateColumn("stock", gorm.Expr("stock + ?", rsv.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
