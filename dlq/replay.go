package dlq

import (
	"context"
	"fmt"

	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/store"
)

// Retry re-reads the failed step's context and output from st and
// re-dispatches compensationName on its compensate.<name> topic,
// giving the handler another attempt. It does not itself mark the
// entry resolved; a subsequent success=false report pushes a new
// Entry for the same workflow/step, while a success=true report is left for the operator
// (or an automated sweep) to reconcile with Resolve.
func (s *Service) Retry(ctx context.Context, st store.Store, entryID id.StuckCompensationID, compensationName string) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("dlq: retry %s: %w", entryID, err)
	}
	if entry.ResolvedAt != nil {
		return fmt.Errorf("dlq: retry %s: %w", entryID, errEntryResolved)
	}

	parsedID, err := id.ParseWorkflowID(entry.WorkflowID)
	if err != nil {
		return fmt.Errorf("dlq: retry %s: %w", entryID, err)
	}
	inst, err := st.GetWorkflow(ctx, parsedID)
	if err != nil {
		return fmt.Errorf("dlq: retry %s: workflow not found: %w", entryID, err)
	}
	exec, err := st.GetStep(ctx, entry.WorkflowID, entry.StepName)
	if err != nil {
		return fmt.Errorf("dlq: retry %s: original step not found: %w", entryID, err)
	}

	return s.bus.Emit(ctx, event.CompensationTopic(compensationName), compensator.CompensationDispatchPayload{
		WorkflowID:       entry.WorkflowID,
		OriginalStep:     entry.StepName,
		CompensationStep: compensationName,
		Context:          inst.Context,
		OriginalOutput:   exec.Output,
	})
}
