// Package flowforge provides a durable workflow orchestrator implementing
// the Saga pattern. It drives a linear sequence of named steps against
// external side-effecting services, records every state transition into
// a crash-safe store, and, on any step failure, executes registered
// compensations in reverse order to unwind prior side effects.
//
// FlowForge is designed as a library, not a service. Import it, configure
// a store and an event bus, register workflow types, and wire step
// handlers to the bus.
//
// # Quick Start
//
//	reg := registry.New()
//	reg.Register(orderWorkflowDefinition)
//
//	orc, err := orchestrator.New(reg, st, bus, orchestrator.WithLogger(logger))
//	// register step/compensation handlers on bus (see package handler),
//	// then drive workflows through orc.Engine.StartWorkflow.
//
// # Architecture
//
// FlowForge follows a composable store pattern where each subsystem
// (workflow, step, compensation) defines its own store interface.
// A single backend implements all of them; store/memory and
// store/postgres both do.
//
// Package orchestrator is the composition root: it owns the Engine and
// Compensator and subscribes the reserved internal topics onto them. It
// lives in its own package, above engine and compensator, because both
// of those already import this package for Bag and the sentinel errors.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers. The prefix is checked when an ID is parsed, not at
// compile time.
package flowforge
