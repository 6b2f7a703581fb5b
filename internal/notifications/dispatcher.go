package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avendanolabs/storefront-backend/pkg/config"
	"github.com/avendanolabs/storefront-backend/pkg/db/models"
	"github.com/avendanolabs/storefront-backend/pkg/enums"
	"github.com/avendanolabs/storefront-backend/pkg/logger"
)

// Dispatcher writes order lifecycle notifications without ever failing the
// triggering operation. Send detaches from the caller's context so a checkout
// response never waits on it.
type Dispatcher struct {
	repo Repository
	logg *logger.Logger
	cfg  config.NotificationsConfig
}

// NewDispatcher builds a notification dispatcher.
func NewDispatcher(repo Repository, logg *logger.Logger, cfg config.NotificationsConfig) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, logg: logg, cfg: cfg}, nil
}

// OrderConfirmed records a confirmation notification for the order's owner.
func (d *Dispatcher) OrderConfirmed(ctx context.Context, userID, orderID uuid.UUID, totalCents int64) {
	d.send(ctx, &models.Notification{
		UserID: userID,
		Type:   enums.NotificationOrderConfirmed,
		Title:  "Order confirmed",
		Body:   fmt.Sprintf("Order %s confirmed, total %d cents.", orderID, totalCents),
	})
}

// OrderDelivered records a delivery notification for the order's owner.
func (d *Dispatcher) OrderDelivered(ctx context.Context, userID, orderID uuid.UUID) {
	d.send(ctx, &models.Notification{
		UserID: userID,
		Type:   enums.NotificationOrderDelivered,
		Title:  "Order delivered",
		Body:   fmt.Sprintf("Order %s was delivered.", orderID),
	})
}

func (d *Dispatcher) send(ctx context.Context, notification *models.Notification) {
	if !d.cfg.Enabled {
		return
	}

	fields := d.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"user_id": notification.UserID,
		"type":    notification.Type,
	})

	go func() {
		sendCtx := fields
		if d.cfg.SendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(fields, d.cfg.SendTimeout)
			defer cancel()
		}
		if err := d.repo.Create(sendCtx, notification); err != nil {
			d.logg.Warn(d.logg.WithField(sendCtx, "error", err.Error()), "notification write failed")
			return
		}
		d.logg.Debug(sendCtx, "notification recorded")
	}()
}
