// Package step defines the Step Execution entity and its step-scoped
// persistence contract.
//
// A Step Execution is keyed by (workflowId, stepName); at most one
// exists per pair, and once its status enters the terminal set
// {completed, failed, compensated, skipped} a later start, completion
// or failure report never demotes or overwrites it; MarkStepCompensated
// is the one operation that moves such a record, to compensated. This
// terminal-overwrite protection is the primary
// defense against replayed events after crash recovery.
package step
