package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/avendanolabs/storefront-backend/pkg/errors"
)

func TestCreatePromotionNormalizesAndValidates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	dto, err := svc.CreatePromotion(ctx, CreatePromotionInput{
		Name:          "Launch Sale",
		Code:          "  launch10 ",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 10,
		StartsAt:      now,
		EndsAt:        now.Add(24 * time.Hour),
		Active:        true,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	if dto.Code != "LAUNCH10" {
		t.Fatalf("expected normalized code LAUNCH10, got %s", dto.Code)
	}

	// Duplicate code is a conflict.
	_, err = svc.CreatePromotion(ctx, CreatePromotionInput{
		Name:          "Dup",
		Code:          "launch10",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 5,
		StartsAt:      now,
		EndsAt:        now.Add(time.Hour),
		Active:        true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreatePromotionRejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	now := time.Now().UTC()

	_, err := svc.CreatePromotion(context.Background(), CreatePromotionInput{
		Name:          "Backwards",
		Code:          "BACK",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 500,
		StartsAt:      now.Add(time.Hour),
		EndsAt:        now,
		Active:        true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreatePromotionRejectsPercentOver100(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	now := time.Now().UTC()

	_, err := svc.CreatePromotion(context.Background(), CreatePromotionInput{
		Name:          "Too Much",
		Code:          "BIG",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 150,
		StartsAt:      now,
		EndsAt:        now.Add(time.Hour),
		Active:        true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveActiveByCode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "LIVE"
		p.StartsAt = now.Add(-time.Hour)
		p.EndsAt = now.Add(time.Hour)
	})
	seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "EXPIRED"
		p.StartsAt = now.Add(-2 * time.Hour)
		p.EndsAt = now.Add(-time.Hour)
	})
	seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "PAUSED"
		p.Active = false
		p.StartsAt = now.Add(-time.Hour)
		p.EndsAt = now.Add(time.Hour)
	})

	if _, err := svc.ResolveActiveByCode(ctx, "live", now); err != nil {
		t.Fatalf("resolve live: %v", err)
	}
	if _, err := svc.ResolveActiveByCode(ctx, "EXPIRED", now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for expired, got %v", err)
	}
	if _, err := svc.ResolveActiveByCode(ctx, "PAUSED", now); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for paused, got %v", err)
	}
	if _, err := svc.ResolveActiveByCode(ctx, "MISSING", now); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConsumeUsageRespectsLimit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	ctx := context.Background()

	limit := 2
	promo := seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "LIMITED"
		p.UsageLimit = &limit
	})

	for i := 0; i < limit; i++ {
		if err := svc.ConsumeUsage(ctx, db, promo.ID); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	err := svc.ConsumeUsage(ctx, db, promo.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodePromoLimit) {
		t.Fatalf("expected promo limit error, got %v", err)
	}

	var after models.Promotion
	if err := db.First(&after, "id = ?", promo.ID).Error; err != nil {
		t.Fatalf("load promotion: %v", err)
	}
	if after.UsedCount != limit {
		t.Fatalf("expected used_count %d, got %d", limit, after.UsedCount)
	}

	// Releasing hands the redemption back.
	if err := svc.ReleaseUsage(ctx, db, promo.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := svc.ConsumeUsage(ctx, db, promo.ID); err != nil {
		t.Fatalf("consume after release: %v", err)
	}
}

func TestConcurrentConsumesHonorSingleUse(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	ctx := context.Background()

	limit := 1
	promo := seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "ONESHOT"
		p.UsageLimit = &limit
	})

	const workers = 8
	granted := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			granted[idx] = svc.ConsumeUsage(ctx, db, promo.ID) == nil
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range granted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one consume to win, got %d", wins)
	}

	var after models.Promotion
	if err := db.First(&after, "id = ?", promo.ID).Error; err != nil {
		t.Fatalf("load promotion: %v", err)
	}
	if after.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", after.UsedCount)
	}
}

func TestCreatePromotionPersistsPausedState(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	now := time.Now().UTC()

	dto, err := svc.CreatePromotion(context.Background(), CreatePromotionInput{
		Name:          "Drafted",
		Code:          "DRAFT",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 500,
		StartsAt:      now,
		EndsAt:        now.Add(time.Hour),
		Active:        false,
	})
	if err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	if dto.Active {
		t.Fatal("expected promotion to come back paused")
	}

	var row models.Promotion
	if err := db.First(&row, "id = ?", dto.ID).Error; err != nil {
		t.Fatalf("load promotion: %v", err)
	}
	if row.Active {
		t.Fatal("expected paused promotion row, got active")
	}
}

func TestConsumeUsageUnknownPromotion(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)

	err := svc.ConsumeUsage(context.Background(), db, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnlimitedPromotionNeverExhausts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := mustService(t, db)
	ctx := context.Background()

	promo := seedPromotion(t, db, func(p *models.Promotion) {
		p.Code = "FOREVER"
	})

	for i := 0; i < 10; i++ {
		if err := svc.ConsumeUsage(ctx, db, promo.ID); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
}

func mustService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedPromotion(t *testing.T, db *gorm.DB, mutate func(*models.Promotion)) *models.Promotion {
	t.Helper()
	now := time.Now().UTC()
	promo := &models.Promotion{
		Name:          "Seeded",
		Code:          "SEED",
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: 10,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
		Active:        true,
	}
	if mutate != nil {
		mutate(promo)
	}
	if err := db.Create(promo).Error; err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
	return promo
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:promotion_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Promotion{}); err != nil {
		t.Fatalf("migrate promotions: %v", err)
	}
	return db
}
