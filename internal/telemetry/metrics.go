package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts mutation and history activity. Counters are no-ops when
// telemetry is disabled, so services hold one unconditionally.
type Metrics struct {
	actions     metric.Int64Counter
	undos       metric.Int64Counter
	redos       metric.Int64Counter
	invalidated metric.Int64Counter
}

// NewMetrics creates the loom.* counters on the global meter provider.
func NewMetrics() *Metrics {
	meter := Meter("")
	m := &Metrics{}
	m.actions, _ = meter.Int64Counter("loom.actions.recorded",
		metric.WithDescription("Forward mutations recorded in the action history"))
	m.undos, _ = meter.Int64Counter("loom.history.undos",
		metric.WithDescription("Undo operations executed"))
	m.redos, _ = meter.Int64Counter("loom.history.redos",
		metric.WithDescription("Redo operations executed"))
	m.invalidated, _ = meter.Int64Counter("loom.history.redos_invalidated",
		metric.WithDescription("Pending redos invalidated by forward mutations"))
	return m
}

// RecordAction counts one recorded forward mutation by action type.
func (m *Metrics) RecordAction(ctx context.Context, actionType string) {
	if m == nil || m.actions == nil {
		return
	}
	m.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action_type", actionType)))
}

// RecordUndo counts one executed undo.
func (m *Metrics) RecordUndo(ctx context.Context) {
	if m == nil || m.undos == nil {
		return
	}
	m.undos.Add(ctx, 1)
}

// RecordRedo counts one executed redo.
func (m *Metrics) RecordRedo(ctx context.Context) {
	if m == nil || m.redos == nil {
		return
	}
	m.redos.Add(ctx, 1)
}

// RecordInvalidated counts redos destroyed by a forward mutation.
func (m *Metrics) RecordInvalidated(ctx context.Context, n int64) {
	if m == nil || m.invalidated == nil || n == 0 {
		return
	}
	m.invalidated.Add(ctx, n)
}
