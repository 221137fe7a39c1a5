package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/event/memory"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/orchestrator"
	"github.com/flowforge/flowforge/registry"
	"github.com/flowforge/flowforge/step"
	storemem "github.com/flowforge/flowforge/store/memory"
	"github.com/flowforge/flowforge/workflow"
)

func twoStepDefinition() registry.Definition {
	return registry.Definition{
		Type: "order",
		Steps: []registry.StepDefinition{
			{Name: "validate", Topic: "step.validate"},
			{Name: "charge", Topic: "step.charge", CompensationName: "refundPayment"},
		},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

// TestOrchestrator_DrivesFullHappyPath exercises the wiring itself:
// with only step handlers registered directly on the bus (no `handler`
// package involved), StartWorkflow must flow all the way through
// execute-step, step-completed, and workflow-completed purely via the
// subscriptions New sets up.
func TestOrchestrator_DrivesFullHappyPath(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	if err := reg.Register(twoStepDefinition()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := storemem.New()
	bus := memory.New()
	t.Cleanup(func() { _ = bus.Close() })

	orc, err := orchestrator.New(reg, st, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A bare-bones step handler: completes "validate" immediately, and
	// completes "charge" immediately, without going through `handler`.
	if err := bus.Subscribe("step.validate", func(ctx context.Context, evt event.Event) error {
		p := evt.Data.(engine.ExecuteStepPayload)
		return bus.Emit(ctx, event.TopicStepCompleted, engine.StepCompletedPayload{
			WorkflowID: p.WorkflowID, StepName: p.StepName, Output: flowforge.Bag{"validated": true},
		})
	}); err != nil {
		t.Fatalf("subscribe validate: %v", err)
	}
	if err := bus.Subscribe("step.charge", func(ctx context.Context, evt event.Event) error {
		p := evt.Data.(engine.ExecuteStepPayload)
		return bus.Emit(ctx, event.TopicStepCompleted, engine.StepCompletedPayload{
			WorkflowID: p.WorkflowID, StepName: p.StepName, Output: flowforge.Bag{"charged": true},
		})
	}); err != nil {
		t.Fatalf("subscribe charge: %v", err)
	}

	inst, err := orc.Engine.StartWorkflow(context.Background(), "order", flowforge.Bag{}, id.Nil)
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		got, err := st.GetWorkflow(context.Background(), inst.ID)
		return err == nil && got.Status == workflow.StatusCompleted
	})

	comps, err := st.ListCompensations(context.Background(), inst.ID.String())
	if err != nil {
		t.Fatalf("list compensations: %v", err)
	}
	if len(comps) != 1 || comps[0].CompensationName != "refundPayment" {
		t.Fatalf("expected charge's compensation registered, got %+v", comps)
	}
}

// TestOrchestrator_DrivesCompensationChain exercises the compensate /
// execute-compensation / compensation-completed wiring end to end for a
// single-step rollback.
func TestOrchestrator_DrivesCompensationChain(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	if err := reg.Register(twoStepDefinition()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := storemem.New()
	bus := memory.New()
	t.Cleanup(func() { _ = bus.Close() })

	orc, err := orchestrator.New(reg, st, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := bus.Subscribe("step.validate", func(ctx context.Context, evt event.Event) error {
		p := evt.Data.(engine.ExecuteStepPayload)
		return bus.Emit(ctx, event.TopicStepCompleted, engine.StepCompletedPayload{
			WorkflowID: p.WorkflowID, StepName: p.StepName, Output: flowforge.Bag{"validated": true},
		})
	}); err != nil {
		t.Fatalf("subscribe validate: %v", err)
	}
	if err := bus.Subscribe("step.charge", func(ctx context.Context, evt event.Event) error {
		p := evt.Data.(engine.ExecuteStepPayload)
		return bus.Emit(ctx, event.TopicStepFailed, engine.StepFailedPayload{
			WorkflowID: p.WorkflowID, StepName: p.StepName,
		})
	}); err != nil {
		t.Fatalf("subscribe charge: %v", err)
	}
	if err := bus.Subscribe(event.CompensationTopic("refundPayment"), func(ctx context.Context, evt event.Event) error {
		p := evt.Data.(compensator.CompensationDispatchPayload)
		return bus.Emit(ctx, event.TopicCompensationDone, compensator.CompensationCompletedPayload{
			WorkflowID: p.WorkflowID, StepName: p.OriginalStep, Success: true,
		})
	}); err != nil {
		t.Fatalf("subscribe refundPayment: %v", err)
	}

	inst, err := orc.Engine.StartWorkflow(context.Background(), "order", flowforge.Bag{}, id.Nil)
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		got, err := st.GetWorkflow(context.Background(), inst.ID)
		return err == nil && got.Status == workflow.StatusCompensated
	})

	exec, err := st.GetStep(context.Background(), inst.ID.String(), "charge")
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if exec.Status != step.StatusCompensated {
		t.Fatalf("charge step status = %q, want compensated", exec.Status)
	}
}
