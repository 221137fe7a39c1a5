package flowforge

import "context"

// Context is the execution context passed to every engine, compensator,
// and step-handler operation. It is a plain alias for context.Context;
// FlowForge does not define a custom context type, so the stdlib
// cancellation and deadline semantics apply everywhere.
type Context = context.Context
