// Package dlq provides the stuck-compensation ledger: a durable record
// of compensation handlers that reported success=false. The compensator keeps walking the
// pending queue regardless of a handler's outcome, so a failed rollback
// never blocks the workflow from reaching compensated — but the side
// effect it was meant to undo may still be live, and ultimate
// responsibility for persistently-failed compensations lies with
// operators. This package is how an operator finds those entries
// and retries them by hand.
//
// # Entry
//
// An [Entry] captures:
//   - WorkflowID / StepName: the failed rollback
//   - CompensationName: left empty by [Service], since the
//     compensation-completed payload does not carry it; [Service.Retry]
//     takes the name as an argument
//   - Error: the message reported by the compensation handler
//   - FailedAt: when the failure was recorded
//   - ResolvedAt: set once the entry is marked resolved (nil until then)
//
// # Service
//
// [Service] subscribes to flowforge.compensation-completed and pushes
// an Entry for every success=false report:
//
//	svc := dlq.NewService(store, bus)
//	svc.Subscribe(bus)
//
// # Retry
//
// [Service.Retry] re-dispatches the original compensation on its
// compensate.<name> topic so the handler gets another attempt;
// resolution is recorded separately once the operator confirms the
// retry succeeded.
package dlq
