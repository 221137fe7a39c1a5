// Package registry implements the process-wide, immutable-after-init
// catalog of workflow types and their ordered step definitions.
//
// A Registry is constructed explicitly at process start and passed to
// the engine and compensator constructors — there is no package-level
// global, which keeps recovery and tests hermetic.
package registry

import (
	"fmt"
	"sync"

	"github.com/flowforge/flowforge"
)

// StepDefinition describes one step of a workflow type: its name, the
// forward dispatch topic, and an optional compensation dispatch key.
// The absence of CompensationName means the step has no side effect to
// undo.
type StepDefinition struct {
	// Name is the step's unique identifier within its workflow type.
	Name string

	// Topic is the forward dispatch channel the engine emits on when
	// this step is due to run.
	Topic string

	// CompensationName is the dispatch key used to route rollback of
	// this step. Empty means the step is not compensable.
	CompensationName string
}

// Compensable reports whether this step has a registered compensation.
func (s StepDefinition) Compensable() bool { return s.CompensationName != "" }

// Definition is the static, immutable description of a workflow type:
// its unique type name and its ordered step sequence.
type Definition struct {
	// Type is the unique identifier for this workflow type.
	Type string

	// Steps is the ordered sequence of step definitions. Order defines
	// both forward execution order and (reversed) compensation order.
	Steps []StepDefinition
}

// Registry maps workflow type names to their immutable step sequence.
// It is safe for concurrent reads once initialization (all Register
// calls) has completed; Register itself must be serialized relative to
// concurrent reads during init.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Definition
}

// New creates an empty workflow registry.
func New() *Registry {
	return &Registry{types: make(map[string]Definition)}
}

// Register stores an immutable copy of def. It fails with
// ErrDuplicateWorkflowType if def.Type is already registered.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[def.Type]; exists {
		return fmt.Errorf("registry: register %q: %w", def.Type, flowforge.ErrDuplicateWorkflowType)
	}

	steps := make([]StepDefinition, len(def.Steps))
	copy(steps, def.Steps)
	def.Steps = steps

	r.types[def.Type] = def
	return nil
}

// Get returns the definition for a workflow type.
func (r *Registry) Get(workflowType string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[workflowType]
	return def, ok
}

// GetStep returns the step definition named name within workflowType.
func (r *Registry) GetStep(workflowType, name string) (StepDefinition, bool) {
	def, ok := r.Get(workflowType)
	if !ok {
		return StepDefinition{}, false
	}
	for _, s := range def.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// FirstStep returns the first step of workflowType.
func (r *Registry) FirstStep(workflowType string) (StepDefinition, bool) {
	def, ok := r.Get(workflowType)
	if !ok || len(def.Steps) == 0 {
		return StepDefinition{}, false
	}
	return def.Steps[0], true
}

// NextStep returns the step following name in workflowType's sequence.
// Returns false if name is the last step or unknown.
func (r *Registry) NextStep(workflowType, name string) (StepDefinition, bool) {
	def, ok := r.Get(workflowType)
	if !ok {
		return StepDefinition{}, false
	}
	for i, s := range def.Steps {
		if s.Name == name {
			if i+1 < len(def.Steps) {
				return def.Steps[i+1], true
			}
			return StepDefinition{}, false
		}
	}
	return StepDefinition{}, false
}

// IsLastStep reports whether name is the final step of workflowType.
func (r *Registry) IsLastStep(workflowType, name string) bool {
	def, ok := r.Get(workflowType)
	if !ok || len(def.Steps) == 0 {
		return false
	}
	return def.Steps[len(def.Steps)-1].Name == name
}

// StepIndex returns the position of name within workflowType's step
// sequence, used to break ties when ordering compensations registered
// in the same instant.
func (r *Registry) StepIndex(workflowType, name string) (int, bool) {
	def, ok := r.Get(workflowType)
	if !ok {
		return 0, false
	}
	for i, s := range def.Steps {
		if s.Name == name {
			return i, true
		}
	}
	return 0, false
}

// CompensableStepsUpTo returns, in reverse order, the prefix of steps up
// to and including name whose definitions have a CompensationName. This
// is provided for reasoning/debugging; the compensator itself walks the
// persisted Compensation Records instead, since those reflect what was
// actually executed rather than what was merely defined.
func (r *Registry) CompensableStepsUpTo(workflowType, name string) []StepDefinition {
	def, ok := r.Get(workflowType)
	if !ok {
		return nil
	}

	cut := -1
	for i, s := range def.Steps {
		if s.Name == name {
			cut = i
			break
		}
	}
	if cut < 0 {
		return nil
	}

	var out []StepDefinition
	for i := cut; i >= 0; i-- {
		if def.Steps[i].Compensable() {
			out = append(out, def.Steps[i])
		}
	}
	return out
}

// Names returns all registered workflow type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
