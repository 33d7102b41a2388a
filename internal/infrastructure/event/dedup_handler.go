package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupStats counts what a DedupHandler did with its deliveries
type DedupStats struct {
	Handled    int64 `json:"handled"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// DedupHandler runs the wrapped handler at most once per event id while the
// id is remembered by the store. A failed run releases its claim so the
// broker's redelivery gets another attempt.
type DedupHandler struct {
	next   shared.EventHandler
	store  shared.ConsumedEventStore
	cfg    shared.DedupConfig
	logger *zap.Logger

	handled, duplicates, failed atomic.Int64
}

// NewDedupHandler wraps next. A zero cfg falls back to DefaultDedupConfig.
func NewDedupHandler(next shared.EventHandler, store shared.ConsumedEventStore, cfg shared.DedupConfig, logger *zap.Logger) *DedupHandler {
	if cfg == (shared.DedupConfig{}) {
		cfg = shared.DefaultDedupConfig()
	}
	return &DedupHandler{next: next, store: store, cfg: cfg, logger: logger}
}

// EventTypes forwards to the wrapped handler
func (h *DedupHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event id, runs the wrapped handler, and releases the
// claim on failure. A store error is logged and the event handled anyway:
// downstream handlers are idempotent on their own keys, so a duplicate is
// cheaper than a lost event.
func (h *DedupHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.cfg.Enabled {
		return h.next.Handle(ctx, ev)
	}

	id := ev.EventID().String()
	log := h.logger.With(eventFields(ev)...)

	fresh, err := h.store.MarkProcessed(ctx, id, h.cfg.TTL)
	switch {
	case err != nil:
		log.Warn("consumed-event store unavailable, handling without dedup", zap.Error(err))
	case !fresh:
		h.duplicates.Add(1)
		log.Info("skipping redelivered event")
		return nil
	}

	if err := h.next.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		if relErr := h.store.Release(context.WithoutCancel(ctx), id); relErr != nil {
			log.Warn("could not release consumed-event claim", zap.Error(relErr))
		}
		return err
	}
	h.handled.Add(1)
	return nil
}

// Stats returns a snapshot of the counters
func (h *DedupHandler) Stats() DedupStats {
	return DedupStats{
		Handled:    h.handled.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*DedupHandler)(nil)
