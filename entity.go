package flowforge

import "time"

// Entity holds the creation/update timestamps shared by every persisted
// record (workflow instances, step executions, compensation records).
type Entity struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEntity returns an Entity stamped with the current time for both
// CreatedAt and UpdatedAt.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch returns a copy of e with UpdatedAt bumped to now.
func (e Entity) Touch() Entity {
	e.UpdatedAt = time.Now().UTC()
	return e
}
