package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
)

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	engine := NewEngine(nil)

	product := seedProduct(t, db, 5, 1299)

	var rsv *Reservation
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		rsv, terr = engine.Reserve(ctx, tx, ReservationRequest{ProductID: product.ID, Qty: 3})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if rsv.Qty != 3 || rsv.UnitPriceCents != 1299 || rsv.Name != product.Name {
		t.Fatalf("unexpected reservation snapshot: %+v", rsv)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if after.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", after.Stock)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	engine := NewEngine(nil)

	product := seedProduct(t, db, 3, 500)

	_, err := engine.Reserve(ctx, db, ReservationRequest{ProductID: product.ID, Qty: 10})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// A failed reservation must not touch stock.
	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if after.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", after.Stock)
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := NewEngine(nil)

	_, err := engine.Reserve(context.Background(), db, ReservationRequest{ProductID: uuid.New(), Qty: 1})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	engine := NewEngine(nil)

	for _, qty := range []int{0, -2} {
		_, err := engine.Reserve(context.Background(), db, ReservationRequest{ProductID: uuid.New(), Qty: qty})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for qty %d, got %v", qty, err)
		}
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	engine := NewEngine(nil)

	product := seedProduct(t, db, 5, 800)

	rsv, err := engine.Reserve(ctx, db, ReservationRequest{ProductID: product.ID, Qty: 4})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := engine.Release(ctx, db, *rsv); err != nil {
		t.Fatalf("release: %v", err)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if after.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", after.Stock)
	}
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	engine := NewEngine(nil)

	product := seedProduct(t, db, 5, 1000)

	const workers = 8
	granted := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := engine.Reserve(ctx, db, ReservationRequest{ProductID: product.ID, Qty: 2})
			granted[idx] = err == nil
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range granted {
		if ok {
			wins++
		}
	}
	if wins > 2 {
		t.Fatalf("expected at most 2 grants of qty 2 from stock 5, got %d", wins)
	}

	var after models.Product
	if err := db.First(&after, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if after.Stock < 0 {
		t.Fatalf("stock went negative: %d", after.Stock)
	}
	if after.Stock != 5-2*wins {
		t.Fatalf("expected stock %d, got %d", 5-2*wins, after.Stock)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, priceCents int64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        "Test Product",
		Description: "seeded",
		Brand:       "Testco",
		Category:    "gadgets",
		PriceCents:  priceCents,
		Stock:       stock,
		CreatedBy:   uuid.New(),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate products: %v", err)
	}
	return db
}
