// Package engine implements the workflow engine (C3): a pure function
// of persisted state plus the incoming event, driving forward progress
// through the event bus. It never holds in-process state between
// events — every operation reads what it needs from the store, applies
// the transition, persists it, and emits the next event.
package engine
