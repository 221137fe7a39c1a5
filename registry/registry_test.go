package registry_test

import (
	"errors"
	"testing"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/registry"
)

func orderDefinition() registry.Definition {
	return registry.Definition{
		Type: "order-fulfillment",
		Steps: []registry.StepDefinition{
			{Name: "ValidateOrder", Topic: "orders.validate"},
			{Name: "ChargePayment", Topic: "payments.charge", CompensationName: "RefundPayment"},
			{Name: "ReserveInventory", Topic: "inventory.reserve", CompensationName: "ReleaseInventory"},
			{Name: "CreateShipment", Topic: "shipments.create", CompensationName: "CancelShipment"},
			{Name: "NotifyUser", Topic: "notifications.send"},
			{Name: "Complete", Topic: "orders.complete"},
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	t.Parallel()
	r := registry.New()
	if err := r.Register(orderDefinition()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	def, ok := r.Get("order-fulfillment")
	if !ok {
		t.Fatal("expected type to be registered")
	}
	if len(def.Steps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(def.Steps))
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()
	r := registry.New()
	if err := r.Register(orderDefinition()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(orderDefinition())
	if !errors.Is(err, flowforge.ErrDuplicateWorkflowType) {
		t.Fatalf("expected ErrDuplicateWorkflowType, got %v", err)
	}
}

func TestRegisterCopiesSteps(t *testing.T) {
	t.Parallel()
	r := registry.New()
	def := orderDefinition()
	if err := r.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Mutating the caller's slice must not affect the stored definition.
	def.Steps[0].Name = "mutated"

	stored, _ := r.Get("order-fulfillment")
	if stored.Steps[0].Name != "ValidateOrder" {
		t.Fatalf("registry definition was not copied: got %q", stored.Steps[0].Name)
	}
}

func TestFirstNextLastStep(t *testing.T) {
	t.Parallel()
	r := registry.New()
	_ = r.Register(orderDefinition())

	first, ok := r.FirstStep("order-fulfillment")
	if !ok || first.Name != "ValidateOrder" {
		t.Fatalf("FirstStep = %+v, %v", first, ok)
	}

	next, ok := r.NextStep("order-fulfillment", "ChargePayment")
	if !ok || next.Name != "ReserveInventory" {
		t.Fatalf("NextStep = %+v, %v", next, ok)
	}

	if r.IsLastStep("order-fulfillment", "NotifyUser") {
		t.Error("NotifyUser should not be the last step")
	}
	if !r.IsLastStep("order-fulfillment", "Complete") {
		t.Error("Complete should be the last step")
	}

	_, ok = r.NextStep("order-fulfillment", "Complete")
	if ok {
		t.Error("NextStep after the last step should return false")
	}
}

func TestGetStepUnknown(t *testing.T) {
	t.Parallel()
	r := registry.New()
	_ = r.Register(orderDefinition())

	_, ok := r.GetStep("order-fulfillment", "DoesNotExist")
	if ok {
		t.Error("expected GetStep to return false for an unknown step")
	}

	_, ok = r.GetStep("unknown-type", "ValidateOrder")
	if ok {
		t.Error("expected GetStep to return false for an unknown type")
	}
}

func TestCompensableStepsUpTo(t *testing.T) {
	t.Parallel()
	r := registry.New()
	_ = r.Register(orderDefinition())

	steps := r.CompensableStepsUpTo("order-fulfillment", "CreateShipment")
	if len(steps) != 3 {
		t.Fatalf("expected 3 compensable steps, got %d", len(steps))
	}

	// Must be in reverse order: CreateShipment, ReserveInventory, ChargePayment.
	want := []string{"CancelShipment", "ReleaseInventory", "RefundPayment"}
	for i, s := range steps {
		if s.CompensationName != want[i] {
			t.Errorf("position %d: got %q, want %q", i, s.CompensationName, want[i])
		}
	}
}

func TestStepIndex(t *testing.T) {
	t.Parallel()
	r := registry.New()
	_ = r.Register(orderDefinition())

	idx, ok := r.StepIndex("order-fulfillment", "ReserveInventory")
	if !ok || idx != 2 {
		t.Fatalf("StepIndex = %d, %v; want 2, true", idx, ok)
	}
}
