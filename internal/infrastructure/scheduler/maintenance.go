package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Purger deletes rows created before a cutoff
type Purger interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// RetentionPurge drops rows older than a retention window, e.g. completed
// idempotency records whose replay window has passed.
type RetentionPurge struct {
	name      string
	purger    Purger
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewRetentionPurge(name string, purger Purger, retention time.Duration, logger *zap.Logger) *RetentionPurge {
	return &RetentionPurge{
		name:      name,
		purger:    purger,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *RetentionPurge) Name() string { return p.name }

// Run is a no-op when the retention window is not positive
func (p *RetentionPurge) Run(ctx context.Context) error {
	if p.retention <= 0 {
		return nil
	}
	cutoff := p.now().Add(-p.retention)
	n, err := p.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	if n > 0 {
		p.logger.Info("purged expired rows",
			zap.String("task", p.name),
			zap.Int64("rows", n),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}
