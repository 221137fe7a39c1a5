package flowforge

import "github.com/flowforge/flowforge/id"

// ID is the primary identifier type for all FlowForge entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
