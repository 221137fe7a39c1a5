package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/flowforge/flowforge/event"
)

// meterName is the instrumentation scope name for flowforge system-wide
// lifecycle counters.
const meterName = "github.com/flowforge/flowforge/observability"

// MetricsExtension records system-wide workflow lifecycle counters via
// the global OTel MeterProvider. Register it against an event.Bus to
// automatically track workflow completion, failure, and compensation
// rates.
type MetricsExtension struct {
	WorkflowStarted     metric.Int64Counter
	WorkflowCompleted   metric.Int64Counter
	WorkflowFailed      metric.Int64Counter
	CompensationStarted metric.Int64Counter
	CompensationDone    metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension using the
// provided Meter. Use this variant to inject a specific MeterProvider
// for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	started, _ := meter.Int64Counter("flowforge.workflow.started",
		metric.WithDescription("Total number of workflows started"))
	completed, _ := meter.Int64Counter("flowforge.workflow.completed",
		metric.WithDescription("Total number of workflows completed"))
	failed, _ := meter.Int64Counter("flowforge.workflow.failed",
		metric.WithDescription("Total number of workflows failed"))
	compStarted, _ := meter.Int64Counter("flowforge.compensation.started",
		metric.WithDescription("Total number of compensation chains started"))
	compDone, _ := meter.Int64Counter("flowforge.compensation.finished",
		metric.WithDescription("Total number of compensation chains finished"))

	return &MetricsExtension{
		WorkflowStarted:     started,
		WorkflowCompleted:   completed,
		WorkflowFailed:      failed,
		CompensationStarted: compStarted,
		CompensationDone:    compDone,
	}
}

// Subscribe wires this extension's counters to the topics that mark
// each transition. execute-step fires once per step, not once
// per workflow, so WorkflowStarted is not driven from the bus here;
// call RecordWorkflowStarted directly at the engine.StartWorkflow call
// site instead. It returns the first subscription error, if any.
func (m *MetricsExtension) Subscribe(bus event.Bus) error {
	subs := []struct {
		topic   string
		handler event.Handler
	}{
		{event.TopicWorkflowCompleted, m.onWorkflowCompleted},
		{event.TopicWorkflowFailed, m.onWorkflowFailed},
		{event.TopicCompensate, m.onCompensationStarted},
		{event.TopicCompensationFinished, m.onCompensationFinished},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.topic, s.handler); err != nil {
			return fmt.Errorf("observability: subscribe %s: %w", s.topic, err)
		}
	}
	return nil
}

// RecordWorkflowStarted increments the started counter. Call this from
// the engine.StartWorkflow call site, since execute-step alone cannot
// distinguish a workflow's first step from a later one.
func (m *MetricsExtension) RecordWorkflowStarted(ctx context.Context) {
	m.WorkflowStarted.Add(ctx, 1)
}

func (m *MetricsExtension) onWorkflowCompleted(ctx context.Context, _ event.Event) error {
	m.WorkflowCompleted.Add(ctx, 1)
	return nil
}

func (m *MetricsExtension) onWorkflowFailed(ctx context.Context, _ event.Event) error {
	m.WorkflowFailed.Add(ctx, 1)
	return nil
}

func (m *MetricsExtension) onCompensationStarted(ctx context.Context, _ event.Event) error {
	m.CompensationStarted.Add(ctx, 1)
	return nil
}

func (m *MetricsExtension) onCompensationFinished(ctx context.Context, _ event.Event) error {
	m.CompensationDone.Add(ctx, 1)
	return nil
}
