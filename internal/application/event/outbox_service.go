package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier wakes the outbox dispatcher
type Notifier interface {
	Notify()
}

// OutboxService lets a company inspect its outbox and revive dead events
type OutboxService struct {
	repo     shared.OutboxRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger, now: time.Now}
}

// SetNotifier makes revived rows dispatch without waiting for the next poll
func (s *OutboxService) SetNotifier(n Notifier) {
	s.notifier = n
}

type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"companyId"`
	EventID       uuid.UUID  `json:"eventId"`
	EventType     string     `json:"eventType"`
	AggregateID   uuid.UUID  `json:"aggregateId"`
	AggregateType string     `json:"aggregateType"`
	CorrelationID string     `json:"correlationId,omitempty"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	MaxAttempts   int        `json:"maxAttempts"`
	LastError     string     `json:"lastError,omitempty"`
	RetryAt       *time.Time `json:"retryAt,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func newOutboxEntryDTO(e *shared.OutboxEntry) *OutboxEntryDTO {
	return &OutboxEntryDTO{
		ID:            e.ID,
		CompanyID:     e.TenantID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		CorrelationID: e.CorrelationID,
		Status:        string(e.Status),
		Attempts:      e.Attempts,
		MaxAttempts:   e.MaxAttempts,
		LastError:     e.LastError,
		RetryAt:       e.RetryAt,
		SentAt:        e.SentAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OutboxFilter is the paging query of the dead letter listing
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize,omitempty" binding:"omitempty,min=1,max=100"`
}

func (f OutboxFilter) normalized() OutboxFilter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = defaultPageSize
	case f.PageSize > maxPageSize:
		f.PageSize = maxPageSize
	}
	return f
}

type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// OutboxStatsDTO counts a company's outbox rows by status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

func internalError(msg string, cause error) *shared.DomainError {
	return shared.NewDomainError("INTERNAL_ERROR", msg).WithCause(cause)
}

// ListDead pages through the company's dead events
func (s *OutboxService) ListDead(ctx context.Context, tenantID uuid.UUID, filter OutboxFilter) (*OutboxListResult, error) {
	f := filter.normalized()
	rows, total, err := s.repo.FindDead(ctx, tenantID, f.Page, f.PageSize)
	if err != nil {
		s.logger.Error("list dead outbox rows", zap.Stringer("tenant_id", tenantID), zap.Error(err))
		return nil, internalError("failed to list dead events", err)
	}

	res := &OutboxListResult{
		Entries:    make([]OutboxEntryDTO, 0, len(rows)),
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: int((total + int64(f.PageSize) - 1) / int64(f.PageSize)),
	}
	for _, row := range rows {
		res.Entries = append(res.Entries, *newOutboxEntryDTO(row))
	}
	return res, nil
}

// Entry returns one outbox row of the company
func (s *OutboxService) Entry(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntryDTO, error) {
	row, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return newOutboxEntryDTO(row), nil
}

// Revive puts one dead event back in the dispatch queue
func (s *OutboxService) Revive(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntryDTO, error) {
	row, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := row.Revive(s.now()); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, err.Error()).
			WithDetails(map[string]any{"status": string(row.Status)})
	}
	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("save revived outbox row", zap.Stringer("id", id), zap.Error(err))
		return nil, internalError("failed to revive event", err)
	}

	s.logger.Info("revived dead event",
		zap.Stringer("id", id),
		zap.Stringer("tenant_id", tenantID),
		zap.String("event_type", row.EventType),
	)
	s.wake()
	return newOutboxEntryDTO(row), nil
}

// ReviveAll revives every dead event of the company. Revived rows leave the
// dead set, so it keeps reading the first page until nothing changes.
func (s *OutboxService) ReviveAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var revived int64
	for {
		rows, _, err := s.repo.FindDead(ctx, tenantID, 1, maxPageSize)
		if err != nil {
			s.logger.Error("list dead outbox rows", zap.Stringer("tenant_id", tenantID), zap.Error(err))
			return revived, internalError("failed to list dead events", err)
		}

		n := s.reviveBatch(ctx, rows)
		revived += n
		if n == 0 || len(rows) < maxPageSize {
			break
		}
	}

	s.logger.Info("revived dead events", zap.Stringer("tenant_id", tenantID), zap.Int64("count", revived))
	if revived > 0 {
		s.wake()
	}
	return revived, nil
}

func (s *OutboxService) reviveBatch(ctx context.Context, rows []*shared.OutboxEntry) int64 {
	var n int64
	now := s.now()
	for _, row := range rows {
		if row.Revive(now) != nil {
			continue
		}
		if err := s.repo.Update(ctx, row); err != nil {
			s.logger.Error("save revived outbox row", zap.Stringer("id", row.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Stats counts the company's outbox rows by status
func (s *OutboxService) Stats(ctx context.Context, tenantID uuid.UUID) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx, tenantID)
	if err != nil {
		s.logger.Error("count outbox rows", zap.Stringer("tenant_id", tenantID), zap.Error(err))
		return nil, internalError("failed to count outbox events", err)
	}

	stats := &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *OutboxService) load(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	row, err := s.repo.FindByID(ctx, tenantID, id)
	switch {
	case errors.Is(err, shared.ErrNotFound), err == nil && row == nil:
		return nil, shared.NewDomainError(shared.CodeNotFound, "Outbox entry not found").
			WithDetails(map[string]any{"id": id.String()})
	case err != nil:
		s.logger.Error("load outbox row", zap.Stringer("id", id), zap.Error(err))
		return nil, internalError("failed to load outbox entry", err)
	}
	return row, nil
}

func (s *OutboxService) wake() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}
