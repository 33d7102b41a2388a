package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes the dispatch loop
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Sent rows older than CleanupRetention are purged every CleanupInterval
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
	// StaleAfter is how long a row may stay PROCESSING before it is requeued
	StaleAfter time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		StaleAfter:       5 * time.Minute,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	d := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	return c
}

// DispatchStats summarizes one dispatch pass
type DispatchStats struct {
	Claimed int
	Sent    int
	Failed  int
	Dead    int
}

// DispatchRecorder receives the outcome of every non-empty dispatch pass
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, sent, failed, dead int)
}

// OutboxProcessor moves committed outbox rows to a publisher. Delivery is
// at least once: a row becomes SENT only after Publish returned nil, so a
// crash between the two publishes the event again.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	recorder   DispatchRecorder
	now        func() time.Time

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config.withDefaults(),
		logger:     logger,
		now:        time.Now,
		wake:       make(chan struct{}, 1),
	}
}

func (p *OutboxProcessor) SetRecorder(r DispatchRecorder) {
	p.recorder = r
}

// Notify asks for a dispatch pass now. It never blocks and pending wakeups coalesce.
func (p *OutboxProcessor) Notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start runs the dispatch loop until ctx is cancelled or Stop is called
func (p *OutboxProcessor) Start(ctx context.Context) error {
	if p.done != nil {
		return errors.New("outbox processor already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("stale_after", p.config.StaleAfter),
	)
	return nil
}

// Stop cancels the loop and waits for the pass in flight, bounded by ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.done == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.done)

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()
	housekeeping := time.NewTicker(p.config.CleanupInterval)
	defer housekeeping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-housekeeping.C:
			p.cleanup(ctx)
			continue
		case <-poll.C:
		case <-p.wake:
		}
		p.drain(ctx)
	}
}

// drain keeps dispatching while passes come back full
func (p *OutboxProcessor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		stats, err := p.ProcessOnce(ctx)
		if err != nil || stats.Claimed < p.config.BatchSize {
			return
		}
	}
}

// ProcessOnce claims one batch of due rows and publishes them
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (DispatchStats, error) {
	batch, err := p.repo.ClaimDue(ctx, p.now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("claim outbox batch", zap.Error(err))
		return DispatchStats{}, err
	}

	stats := DispatchStats{Claimed: len(batch)}
	for _, entry := range batch {
		switch p.settle(ctx, entry, p.deliver(ctx, entry)) {
		case shared.OutboxStatusSent:
			stats.Sent++
		case shared.OutboxStatusDead:
			stats.Dead++
		default:
			stats.Failed++
		}
	}
	if stats.Claimed > 0 && p.recorder != nil {
		p.recorder.RecordDispatch(ctx, stats.Sent, stats.Failed, stats.Dead)
	}
	return stats, nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "outbox", "deliver")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEventType, entry.EventType,
		telemetry.SpanAttrEventID, entry.EventID,
		telemetry.SpanAttrTenantID, entry.TenantID,
		"attempt", entry.Attempts,
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, ev)
}

// settle records the delivery outcome on the row. A failed write leaves the
// row PROCESSING, and RequeueStale hands it out again later.
func (p *OutboxProcessor) settle(ctx context.Context, entry *shared.OutboxEntry, deliveryErr error) shared.OutboxStatus {
	now := p.now()
	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
	}

	if deliveryErr == nil {
		entry.MarkSent(now)
		p.logger.Debug("event dispatched", fields...)
	} else {
		entry.MarkFailed(now, deliveryErr)
		fields = append(fields, zap.Int("attempts", entry.Attempts), zap.Error(deliveryErr))
		if entry.IsDead() {
			p.logger.Warn("event is dead after final attempt", append(fields,
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()))...)
		} else {
			p.logger.Error("event dispatch failed", append(fields, zap.Timep("retry_at", entry.RetryAt))...)
		}
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("record dispatch outcome",
			zap.String("event_id", entry.EventID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err))
	}
	return entry.Status
}

// cleanup requeues abandoned claims and purges old sent rows
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	now := p.now()

	if n, err := p.repo.RequeueStale(ctx, now.Add(-p.config.StaleAfter)); err != nil {
		p.logger.Error("requeue stale outbox rows", zap.Error(err))
	} else if n > 0 {
		p.logger.Warn("requeued stale outbox rows", zap.Int64("rows", n))
	}

	if !p.config.CleanupEnabled || p.config.CleanupRetention <= 0 {
		return
	}
	cutoff := now.Add(-p.config.CleanupRetention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	switch {
	case err != nil:
		p.logger.Error("purge sent outbox rows", zap.Error(err))
	case n > 0:
		p.logger.Info("purged sent outbox rows", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	}
}
