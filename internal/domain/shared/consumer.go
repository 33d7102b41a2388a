package shared

import (
	"context"
	"time"
)

// ConsumedEventStore remembers which event ids a consumer has already
// handled. It guards event delivery, not commands: command replay is
// keyed by Idempotency-Key in the idempotency record table.
type ConsumedEventStore interface {
	// MarkProcessed claims eventID for ttl. It reports false when a live
	// claim already exists.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Release drops a claim so the next redelivery is handled.
	Release(ctx context.Context, eventID string) error
	Close() error
}

// DedupConfig controls consumer-side deduplication
type DedupConfig struct {
	Enabled bool
	// TTL bounds how long an event id is remembered; it should outlive the
	// broker's redelivery window.
	TTL time.Duration
}

// DefaultDedupConfig remembers event ids for a day
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{Enabled: true, TTL: 24 * time.Hour}
}
