// Package compensation defines the Compensation Record entity and its
// compensation-scoped persistence contract.
//
// A Compensation Record exists if and only if its step reached status
// completed and the step definition has a compensationName. The
// sequence of records for a workflow, ordered by registeredAt
// ascending, is a prefix of the workflow's step sequence restricted to
// compensable steps; the compensator walks them in the opposite order.
package compensation
