package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Command describes one mutating request
type Command struct {
	TenantID       uuid.UUID
	IdempotencyKey string
	CorrelationID  string
	Actor          string
	// Action names the operation, e.g. "purchase_order.approve"
	Action     string
	EntityType string
	EntityID   uuid.UUID
	// Request is fingerprinted so a key cannot be reused for a different payload
	Request any
	// LockKeys are the distributed lock keys taken before the transaction
	LockKeys []string
	// EffectiveDates are checked against closed periods before anything else happens
	EffectiveDates []time.Time
}

// Tx is handed to the command body. It exposes the transactional repositories and
// collects the audit metadata and events written when the body succeeds.
type Tx struct {
	Repositories
	cmd      *Command
	entityID uuid.UUID
	metadata map[string]any
	events   []shared.DomainEvent
}

// Command returns the executing command
func (t *Tx) Command() Command {
	return *t.cmd
}

// SetEntity sets the entity the audit record points at
func (t *Tx) SetEntity(id uuid.UUID) {
	t.entityID = id
}

// AddMetadata adds a key to the audit metadata
func (t *Tx) AddMetadata(key string, value any) {
	if t.metadata == nil {
		t.metadata = make(map[string]any)
	}
	t.metadata[key] = value
}

// Emit queues events for the outbox
func (t *Tx) Emit(events ...shared.DomainEvent) {
	t.events = append(t.events, events...)
}

// Collect queues and clears the pending events of aggregates
func (t *Tx) Collect(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		t.events = append(t.events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
}

// ExecutorConfig holds executor settings
type ExecutorConfig struct {
	LockTTL time.Duration
}

// Executor runs commands exactly once per idempotency key
type Executor struct {
	scope   TransactionScope
	records idempotency.Repository
	guard   PeriodGuard
	locker  Locker
	config  ExecutorConfig
	logger  *zap.Logger

	notifier Notifier
	metrics  MetricsRecorder
}

// NewExecutor creates a new Executor.
// records is the non-transactional idempotency repository used for replay lookups.
func NewExecutor(
	scope TransactionScope,
	records idempotency.Repository,
	guard PeriodGuard,
	locker Locker,
	config ExecutorConfig,
	logger *zap.Logger,
) *Executor {
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Second
	}
	return &Executor{
		scope:   scope,
		records: records,
		guard:   guard,
		locker:  locker,
		config:  config,
		logger:  logger,
	}
}

// SetNotifier sets the component woken after commits that produced events
func (e *Executor) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetMetrics sets the command metrics recorder
func (e *Executor) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

// Execute runs fn once for the command's idempotency key and returns the stored JSON result.
// The boolean reports whether the result was replayed from an earlier execution.
func (e *Executor) Execute(ctx context.Context, cmd Command, fn func(ctx context.Context, tx *Tx) (any, error)) (json.RawMessage, bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "command", "execute",
		attribute.String(telemetry.SpanAttrAction, cmd.Action),
		attribute.String(telemetry.SpanAttrTenantID, cmd.TenantID.String()),
		attribute.String(telemetry.SpanAttrIdempotencyKey, cmd.IdempotencyKey),
		attribute.String(telemetry.SpanAttrCorrelationID, cmd.CorrelationID),
		attribute.StringSlice(telemetry.SpanAttrLockKeys, cmd.LockKeys),
	)
	defer span.End()
	if cmd.EntityType != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrEntityType, cmd.EntityType, telemetry.SpanAttrEntityID, cmd.EntityID)
	}

	var (
		result   json.RawMessage
		replayed bool
		err      error
	)
	start := time.Now()
	telemetry.WithProfilingLabels(ctx, map[string]string{telemetry.ProfilingLabelAction: cmd.Action}, func(ctx context.Context) {
		result, replayed, err = e.execute(ctx, cmd, fn)
	})
	e.record(ctx, cmd.Action, replayed, err, time.Since(start))

	span.SetAttributes(attribute.Bool(telemetry.SpanAttrReplayed, replayed))
	telemetry.RecordError(span, err)
	return result, replayed, err
}

func (e *Executor) execute(ctx context.Context, cmd Command, fn func(ctx context.Context, tx *Tx) (any, error)) (json.RawMessage, bool, error) {
	cmd.IdempotencyKey = strings.TrimSpace(cmd.IdempotencyKey)
	if cmd.IdempotencyKey == "" {
		return nil, false, idempotency.ErrMissingKey
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = uuid.NewString()
	}
	requestHash, err := fingerprint(cmd.Request)
	if err != nil {
		return nil, false, err
	}

	log := e.logger.With(
		zap.String("action", cmd.Action),
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("idempotency_key", cmd.IdempotencyKey),
		zap.String("correlation_id", cmd.CorrelationID),
	)

	// Replays never take locks or touch the period guard.
	existing, err := e.records.Find(ctx, cmd.TenantID, cmd.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up idempotency record: %w", err)
	}
	if existing != nil {
		result, err := replay(existing, cmd.Action, requestHash)
		if err == nil || isStoredFailure(existing, err) {
			log.Info("command replayed", zap.String("status", string(existing.Status)))
			return result, true, err
		}
		return nil, false, err
	}

	if e.guard != nil {
		for _, date := range cmd.EffectiveDates {
			if err := e.guard.AssertOpenPeriod(ctx, cmd.TenantID, date, cmd.Action); err != nil {
				return nil, false, err
			}
		}
	}

	var (
		result json.RawMessage
		events []shared.DomainEvent
	)
	run := func(ctx context.Context) error {
		return e.scope.Execute(ctx, func(repos Repositories) error {
			rec := idempotency.NewRecord(cmd.TenantID, cmd.IdempotencyKey, cmd.Action, requestHash, cmd.CorrelationID)
			if err := repos.Idempotency().Claim(ctx, rec); err != nil {
				if errors.Is(err, idempotency.ErrInProgress) {
					return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"idempotencyKey": cmd.IdempotencyKey}).WithCause(err)
				}
				return err
			}

			tx := &Tx{Repositories: repos, cmd: &cmd, entityID: cmd.EntityID}
			value, err := fn(ctx, tx)
			if err != nil {
				return err
			}
			body, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode command result: %w", err)
			}

			entry, err := audit.NewEntry(cmd.TenantID, cmd.Actor, cmd.Action, cmd.EntityType, tx.entityID,
				cmd.IdempotencyKey, cmd.CorrelationID, tx.metadata)
			if err != nil {
				return fmt.Errorf("failed to build audit entry: %w", err)
			}
			if err := repos.Audit().Append(ctx, entry); err != nil {
				return fmt.Errorf("failed to write audit entry: %w", err)
			}

			for _, ev := range tx.events {
				if traced, ok := ev.(shared.TracedEvent); ok {
					traced.SetTrace(cmd.CorrelationID, cmd.IdempotencyKey)
				}
			}
			if err := repos.Events().Append(ctx, tx.events...); err != nil {
				return fmt.Errorf("failed to write outbox events: %w", err)
			}

			rec.Succeed(body)
			if err := repos.Idempotency().Complete(ctx, rec); err != nil {
				return fmt.Errorf("failed to complete idempotency record: %w", err)
			}
			result = body
			events = tx.events
			return nil
		})
	}

	if e.locker != nil && len(cmd.LockKeys) > 0 {
		keys := sortedKeys(cmd.LockKeys)
		err = e.locker.WithLocks(ctx, keys, e.config.LockTTL, func(ctx context.Context) error {
			telemetry.AddEvent(trace.SpanFromContext(ctx), "locks_acquired", telemetry.SpanAttrLockKeys, keys)
			return run(ctx)
		})
	} else {
		err = run(ctx)
	}
	if err != nil {
		e.recordFailure(ctx, cmd, requestHash, err, log)
		return nil, false, err
	}

	log.Info("command executed", zap.Int("events", len(events)))
	if len(events) > 0 && e.notifier != nil {
		e.notifier.Notify()
	}
	return result, false, nil
}

// recordFailure stores business failures so a retry returns the same error.
// Concurrency and infrastructure errors are left unrecorded so the client can retry.
func (e *Executor) recordFailure(ctx context.Context, cmd Command, requestHash string, err error, log *zap.Logger) {
	de, ok := shared.AsDomainError(err)
	if !ok {
		log.Error("command failed", zap.Error(err))
		return
	}
	if de.Retryable() || de.Code == shared.CodePeriodClosed || de.IsNotFound() {
		log.Warn("command rejected", zap.String("code", de.Code), zap.String("message", de.Message))
		return
	}

	log.Info("command failed with business error", zap.String("code", de.Code))
	saveErr := e.scope.Execute(ctx, func(repos Repositories) error {
		rec := idempotency.NewRecord(cmd.TenantID, cmd.IdempotencyKey, cmd.Action, requestHash, cmd.CorrelationID)
		rec.Fail(de)
		return repos.Idempotency().Claim(ctx, rec)
	})
	if saveErr != nil {
		log.Warn("failed to record command failure", zap.Error(saveErr))
	}
}

func (e *Executor) record(ctx context.Context, action string, replayed bool, err error, d time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case replayed:
		outcome = "replayed"
	case err != nil:
		outcome = "error"
		if de, ok := shared.AsDomainError(err); ok {
			outcome = strings.ToLower(de.Code)
		}
	}
	e.metrics.RecordCommand(ctx, action, outcome, d)
}

// replay returns the stored outcome of a completed record
func replay(rec *idempotency.Record, action, requestHash string) (json.RawMessage, error) {
	if !rec.Matches(action, requestHash) {
		return nil, idempotency.ErrKeyReused.WithDetails(map[string]any{"action": rec.Action})
	}
	switch rec.Status {
	case idempotency.StatusSucceeded:
		return rec.Response, nil
	case idempotency.StatusFailed:
		return nil, rec.StoredError()
	}
	return nil, shared.ErrConcurrencyConflict.WithCause(idempotency.ErrInProgress)
}

func isStoredFailure(rec *idempotency.Record, err error) bool {
	if rec.Status != idempotency.StatusFailed {
		return false
	}
	de, ok := shared.AsDomainError(err)
	return ok && de.Code == rec.ErrorCode
}

func fingerprint(request any) (string, error) {
	if request == nil {
		return "", nil
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint request: %w", err)
	}
	return idempotency.HashRequest(body), nil
}

func sortedKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// Run executes a typed command body. The returned value is decoded from the stored
// result, so a first execution and its replays produce identical responses.
func Run[T any](ctx context.Context, e *Executor, cmd Command, fn func(ctx context.Context, tx *Tx) (T, error)) (T, bool, error) {
	var out T
	raw, replayed, err := e.Execute(ctx, cmd, func(ctx context.Context, tx *Tx) (any, error) {
		return fn(ctx, tx)
	})
	if err != nil {
		return out, replayed, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, replayed, fmt.Errorf("failed to decode command result: %w", err)
	}
	return out, replayed, nil
}
