// Package compensator implements the reverse path (C4): unwinding a
// failed workflow's completed steps one compensation at a time through
// the event bus. Like engine, it holds no in-process state between
// events — the current head of the pending-compensation queue is
// always re-read from the store, never cached across calls.
package compensator
