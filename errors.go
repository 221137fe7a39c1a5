package flowforge

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("flowforge: no store configured")
	ErrStoreClosed     = errors.New("flowforge: store closed")
	ErrMigrationFailed = errors.New("flowforge: migration failed")

	// Registration errors (synchronous from StartWorkflow).
	ErrUnknownWorkflowType     = errors.New("flowforge: unknown workflow type")
	ErrDuplicateWorkflowType   = errors.New("flowforge: duplicate workflow type")
	ErrEmptyWorkflowDefinition = errors.New("flowforge: workflow definition has no steps")
	ErrUnknownStep             = errors.New("flowforge: unknown step")

	// Not found errors.
	ErrWorkflowNotFound     = errors.New("flowforge: workflow not found")
	ErrStepNotFound         = errors.New("flowforge: step execution not found")
	ErrCompensationNotFound = errors.New("flowforge: compensation record not found")

	// Conflict errors.
	ErrWorkflowAlreadyExists = errors.New("flowforge: workflow already exists")

	// State errors. Persistence guards return the unchanged record rather
	// than erroring for most violations; this sentinel is used
	// only where there is no sensible "unchanged record" to return.
	ErrInvalidTransition = errors.New("flowforge: invalid state transition")
)
