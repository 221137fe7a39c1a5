package event

// Reserved topic families. Engine and compensator internal
// topics are fixed strings; step and compensation dispatch topics are
// derived from the workflow definition.
const (
	TopicExecuteStep       = "flowforge.execute-step"
	TopicStepCompleted     = "flowforge.step-completed"
	TopicStepFailed        = "flowforge.step-failed"
	TopicCompensate        = "flowforge.compensate"
	TopicWorkflowCompleted = "flowforge.workflow-completed"
	TopicWorkflowFailed    = "flowforge.workflow-failed"

	TopicExecuteCompensation  = "flowforge.execute-compensation"
	TopicCompensationDone     = "flowforge.compensation-completed"
	TopicCompensationFinished = "flowforge.compensation-finished"
)

// CompensationTopic returns the dispatch topic for a compensation
// handler keyed by compensationName.
func CompensationTopic(compensationName string) string {
	return "compensate." + compensationName
}
