// Package handler adapts plain business-logic functions to the event
// bus contract. SubscribeStep and SubscribeCompensation wrap a
// StepFunc or CompensationFunc with the middleware chain (recover and
// logging, followed by any caller-supplied middleware) and guarantee exactly one terminal event is emitted
// per invocation — step-completed/step-failed for a step, or
// compensation-completed{success} for a compensation — so a panic or
// early return inside handler code never leaves the workflow silently
// stuck.
package handler
