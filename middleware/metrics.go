package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/flowforge/flowforge/event"
)

// meterName is the instrumentation scope name for flowforge metrics.
const meterName = "github.com/flowforge/flowforge"

// Metrics returns middleware that records per-invocation execution
// metrics using the global OTel MeterProvider. If no MeterProvider is
// configured, noop instruments are used and this middleware becomes a
// pass-through.
//
// Instruments:
//   - flowforge.event.duration (Float64Histogram): execution time in
//     seconds, with attributes: topic, status ("ok" or "error")
//   - flowforge.event.invocations (Int64Counter): total invocations,
//     with attributes: topic, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, _ := meter.Float64Histogram(
		"flowforge.event.duration",
		metric.WithDescription("Duration of event handler execution in seconds"),
		metric.WithUnit("s"),
	)
	invocations, _ := meter.Int64Counter(
		"flowforge.event.invocations",
		metric.WithDescription("Total number of event handler invocations"),
		metric.WithUnit("{invocation}"),
	)

	return func(ctx context.Context, evt event.Event, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("topic", evt.Topic),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return err
	}
}
