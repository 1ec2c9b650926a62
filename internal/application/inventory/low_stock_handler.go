package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockbooks/backend/internal/domain/inventory"
	"github.com/stockbooks/backend/internal/domain/shared"
)

// LowStockAlertHandler logs a warning whenever a stock deduction pushes an
// inventory row at or below its reorder level. It is the default subscriber
// for reorder alerts; richer channels (email, webhooks) can be added as
// further handlers on the same event type.
type LowStockAlertHandler struct {
	logger *zap.Logger
}

// NewLowStockAlertHandler creates a new low stock alert handler
func NewLowStockAlertHandler(logger *zap.Logger) *LowStockAlertHandler {
	return &LowStockAlertHandler{logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *LowStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowReorderLevel}
}

// Handle logs the reorder alert
func (h *LowStockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	alert, ok := event.(*inventory.StockBelowReorderLevelEvent)
	if !ok {
		h.logger.Warn("unexpected event type for low stock handler",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()))
		return nil
	}

	h.logger.Warn("inventory below reorder level",
		zap.String("tenant_id", alert.TenantID().String()),
		zap.String("product_id", alert.ProductID.String()),
		zap.String("on_hand", alert.OnHand.String()),
		zap.String("reorder_level", alert.ReorderLevel.String()))
	return nil
}
