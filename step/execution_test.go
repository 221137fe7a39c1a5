package step_test

import (
	"testing"

	"github.com/flowforge/flowforge/step"
)

func TestStepStatusTerminal(t *testing.T) {
	t.Parallel()
	terminal := []step.Status{
		step.StatusCompleted, step.StatusFailed,
		step.StatusSkipped, step.StatusCompensated,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}

	nonTerminal := []step.Status{step.StatusPending, step.StatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}
