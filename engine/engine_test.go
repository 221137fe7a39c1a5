package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/event/memory"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/registry"
	"github.com/flowforge/flowforge/step"
	storemem "github.com/flowforge/flowforge/store/memory"
	"github.com/flowforge/flowforge/workflow"
)

func twoStepDefinition() registry.Definition {
	return registry.Definition{
		Type: "order",
		Steps: []registry.StepDefinition{
			{Name: "validate", Topic: "step.validate", CompensationName: ""},
			{Name: "charge", Topic: "step.charge", CompensationName: "refundPayment"},
		},
	}
}

type harness struct {
	eng   *engine.Engine
	store *storemem.Store
	bus   *memory.Bus
	reg   *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg := registry.New()
	if err := reg.Register(twoStepDefinition()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st := storemem.New()
	bus := memory.New()
	t.Cleanup(func() { _ = bus.Close() })
	eng := engine.New(reg, st, bus)
	return &harness{eng: eng, store: st, bus: bus, reg: reg}
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

func TestStartWorkflow_EmitsExecuteStepForFirstStep(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	var mu sync.Mutex
	var received *engine.ExecuteStepPayload
	if err := h.bus.Subscribe("step.validate", func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		p := evt.Data.(engine.ExecuteStepPayload)
		received = &p
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	inst, err := h.eng.StartWorkflow(ctx, "order", flowforge.Bag{"amount": 10}, id.Nil)
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}
	if inst.CurrentStep != "validate" || inst.Status != workflow.StatusRunning {
		t.Fatalf("unexpected instance: %+v", inst)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil
	})
	if received.StepName != "validate" {
		t.Errorf("StepName = %q, want validate", received.StepName)
	}
}

func TestStartWorkflow_IsIdempotentOnGivenID(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	first, err := h.eng.StartWorkflow(ctx, "order", flowforge.Bag{}, wfID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := h.eng.StartWorkflow(ctx, "order", flowforge.Bag{}, wfID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same instance, got %s and %s", first.ID, second.ID)
	}
}

func TestStartWorkflow_UnknownType(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.eng.StartWorkflow(context.Background(), "nonexistent", flowforge.Bag{}, id.Nil)
	if err != flowforge.ErrUnknownWorkflowType {
		t.Fatalf("got %v, want ErrUnknownWorkflowType", err)
	}
}

func TestHandleStepCompleted_AdvancesToNextStep(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := h.store.CreateWorkflow(ctx, wfID, "order", "validate", flowforge.Bag{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.store.RecordStepStart(ctx, wfID.String(), "validate", flowforge.Bag{}, 1); err != nil {
		t.Fatalf("record start: %v", err)
	}

	var mu sync.Mutex
	var executed *engine.ExecuteStepPayload
	if err := h.bus.Subscribe(event.TopicExecuteStep, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		p := evt.Data.(engine.ExecuteStepPayload)
		executed = &p
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.eng.HandleStepCompleted(ctx, wfID.String(), "validate", flowforge.Bag{"validated": true})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return executed != nil
	})
	if executed.StepName != "charge" {
		t.Errorf("StepName = %q, want charge", executed.StepName)
	}

	inst, err := h.store.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if inst.CurrentStep != "charge" || inst.Context["validated"] != true {
		t.Fatalf("unexpected instance after advance: %+v", inst)
	}
}

func TestHandleStepCompleted_LastStepCompletesWorkflow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := h.store.CreateWorkflow(ctx, wfID, "order", "charge", flowforge.Bag{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.store.RecordStepStart(ctx, wfID.String(), "charge", flowforge.Bag{}, 1); err != nil {
		t.Fatalf("record start: %v", err)
	}

	var mu sync.Mutex
	var done bool
	if err := h.bus.Subscribe(event.TopicWorkflowCompleted, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		done = true
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.eng.HandleStepCompleted(ctx, wfID.String(), "charge", flowforge.Bag{"charged": true})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	})

	inst, err := h.store.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if inst.Status != workflow.StatusCompleted || inst.CurrentStep != "" {
		t.Fatalf("unexpected instance: %+v", inst)
	}

	comps, err := h.store.ListCompensations(ctx, wfID.String())
	if err != nil {
		t.Fatalf("list compensations: %v", err)
	}
	if len(comps) != 1 || comps[0].CompensationName != "refundPayment" {
		t.Fatalf("expected charge's compensation registered, got %+v", comps)
	}
}

func TestHandleStepFailed_TransitionsToFailedAndEmitsCompensate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := h.store.CreateWorkflow(ctx, wfID, "order", "charge", flowforge.Bag{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.store.RecordStepStart(ctx, wfID.String(), "charge", flowforge.Bag{}, 1); err != nil {
		t.Fatalf("record start: %v", err)
	}

	var mu sync.Mutex
	var compensatePayload *engine.CompensatePayload
	if err := h.bus.Subscribe(event.TopicCompensate, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		p := evt.Data.(engine.CompensatePayload)
		compensatePayload = &p
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.eng.HandleStepFailed(ctx, wfID.String(), "charge", step.Error{Message: "card declined"})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return compensatePayload != nil
	})

	inst, err := h.store.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if inst.Status != workflow.StatusFailed || inst.FailedStep != "charge" || inst.Error != "card declined" {
		t.Fatalf("unexpected instance: %+v", inst)
	}
}

func TestHandleStepFailed_EmitsWorkflowFailed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := h.store.CreateWorkflow(ctx, wfID, "order", "charge", flowforge.Bag{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := h.store.RecordStepStart(ctx, wfID.String(), "charge", flowforge.Bag{}, 1); err != nil {
		t.Fatalf("record start: %v", err)
	}

	var mu sync.Mutex
	var failedPayload *engine.WorkflowFailedPayload
	if err := h.bus.Subscribe(event.TopicWorkflowFailed, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		p := evt.Data.(engine.WorkflowFailedPayload)
		failedPayload = &p
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.eng.HandleStepFailed(ctx, wfID.String(), "charge", step.Error{Message: "card declined"})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failedPayload != nil
	})

	mu.Lock()
	defer mu.Unlock()
	if failedPayload.WorkflowID != wfID.String() || failedPayload.FailedStep != "charge" || failedPayload.Error != "card declined" {
		t.Fatalf("unexpected payload: %+v", failedPayload)
	}
}

func TestResumeWorkflow_OnlyFromWaiting(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := h.store.CreateWorkflow(ctx, wfID, "order", "validate", flowforge.Bag{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Resume from running (not waiting) must be a no-op.
	h.eng.ResumeWorkflow(ctx, wfID, "go", nil)
	inst, err := h.store.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if inst.Status != workflow.StatusRunning {
		t.Fatalf("Status = %q, want unchanged running", inst.Status)
	}

	if err := h.eng.PauseWorkflow(ctx, wfID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	var mu sync.Mutex
	var resumed bool
	if err := h.bus.Subscribe(event.TopicExecuteStep, func(_ context.Context, evt event.Event) error {
		mu.Lock()
		resumed = true
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.eng.ResumeWorkflow(ctx, wfID, "go", flowforge.Bag{"approved": true})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return resumed
	})

	inst, err = h.store.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if inst.Status != workflow.StatusRunning || inst.Context["signal"] != "go" || inst.Context["approved"] != true {
		t.Fatalf("unexpected instance after resume: %+v", inst)
	}
}
