package inventory

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// RecalculationRequestedHandler replays a ledger when a backdated move asked for it
type RecalculationRequestedHandler struct {
	service *RecalculationService
	logger  *zap.Logger
}

// NewRecalculationRequestedHandler creates a new handler for recalculation requests
func NewRecalculationRequestedHandler(service *RecalculationService, logger *zap.Logger) *RecalculationRequestedHandler {
	return &RecalculationRequestedHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RecalculationRequestedHandler) EventTypes() []string {
	return []string{inventory.EventTypeRecalculationRequested}
}

// Handle processes a RecalculationRequestedEvent.
// The event id doubles as the idempotency key, so redelivery replays the stored outcome.
func (h *RecalculationRequestedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	req, ok := event.(*inventory.RecalculationRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeRecalculationRequested, event.EventType())
	}

	meta := command.Command{
		IdempotencyKey: "event:" + event.EventID().String(),
		CorrelationID:  req.CorrelationID(),
		Actor:          "system:inventory-recalc",
	}
	state, err := h.service.Recalculate(ctx, meta, req.Key(), req.FromDate)
	if err != nil {
		h.logger.Error("inventory recalculation failed",
			zap.String("event_id", event.EventID().String()),
			zap.String("item_id", req.ItemID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("inventory recalculated",
		zap.String("event_id", event.EventID().String()),
		zap.String("item_id", req.ItemID.String()),
		zap.String("location_id", req.LocationID.String()),
		zap.String("quantity", state.Quantity),
		zap.String("average_cost", state.AverageCost),
	)
	return nil
}

var _ shared.EventHandler = (*RecalculationRequestedHandler)(nil)
