package event

import (
	"time"

	"github.com/flowforge/flowforge/id"
)

// Event is one message published on the bus.
// Data is the handler payload, typically {workflowId, stepName, context}
// or {workflowId, stepName, output/error/success}.
type Event struct {
	ID        id.EventID `json:"id"`
	Topic     string     `json:"topic"`
	Data      any        `json:"data"`
	CreatedAt time.Time  `json:"createdAt"`
}
