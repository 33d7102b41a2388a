package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics holds the business instruments: command throughput and latency
// from the executor, and outbox dispatch results from the processor.
type LedgerMetrics struct {
	commandTotal    *Counter
	commandDuration *Histogram
	outboxDispatch  *Counter
}

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	commandTotal, err := NewCounter(meter,
		"ledger_command_total",
		"Commands run by the executor, by action and outcome",
		"{command}",
	)
	if err != nil {
		return nil, err
	}
	commandDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger_command_duration_seconds",
		Description: "Command latency including lock wait and commit",
		Unit:        "s",
		Boundaries:  CommandDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	outboxDispatch, err := NewCounter(meter,
		"ledger_outbox_dispatch_total",
		"Outbox entries handled by the dispatcher, by resulting status",
		"{entry}",
	)
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		commandTotal:    commandTotal,
		commandDuration: commandDuration,
		outboxDispatch:  outboxDispatch,
	}, nil
}

// RecordCommand records one executor run.
func (m *LedgerMetrics) RecordCommand(ctx context.Context, action, outcome string, duration time.Duration) {
	m.commandTotal.Inc(ctx, AttrAction.String(action), AttrOutcome.String(outcome))
	m.commandDuration.RecordDuration(ctx, duration, AttrAction.String(action), AttrOutcome.String(outcome))
}

// RecordDispatch records the result of one outbox dispatch pass.
func (m *LedgerMetrics) RecordDispatch(ctx context.Context, sent, failed, dead int) {
	for status, n := range map[string]int{"SENT": sent, "FAILED": failed, "DEAD": dead} {
		if n > 0 {
			m.outboxDispatch.Add(ctx, int64(n), AttrStatus.String(status))
		}
	}
}
