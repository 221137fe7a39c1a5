// Package workflow defines the Workflow Instance entity and its
// workflow-scoped persistence contract.
//
// A Workflow Instance is created once by the engine's StartWorkflow and
// is never deleted by the core; only the engine advances it, and only
// along this transition graph:
//
//	running → running           (advance)
//	running → waiting           (pause)
//	waiting → running           (resume)
//	running → completed         (last step completes)
//	running → failed            (step fails)
//	failed  → compensating      (compensator starts)
//	compensating → compensated  (compensator finishes)
//
// currentStep is null whenever status is terminal (completed or
// compensated). A failed workflow is not terminal and keeps the failed
// step as currentStep; it always moves on through compensating to
// compensated, even when nothing is left to compensate.
package workflow
