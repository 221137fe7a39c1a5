// Package observability provides OpenTelemetry-based metrics for
// FlowForge. MetricsExtension subscribes to the workflow- and
// compensation-terminal topics of the event dispatch contract
// to record system-wide counters for workflows started, completed,
// failed, and compensated.
//
// For per-invocation tracing and metrics around individual event
// handlers, see the middleware package: middleware.Tracing() and
// middleware.Metrics().
package observability
