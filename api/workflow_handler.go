package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/workflow"
)

// StartWorkflowRequest is the body of POST /workflows/start.
type StartWorkflowRequest struct {
	Type  string        `json:"type" binding:"required"`
	Input flowforge.Bag `json:"input"`
}

// StartWorkflowResponse is the body returned by POST /workflows/start.
type StartWorkflowResponse struct {
	WorkflowID string          `json:"workflowId"`
	Type       string          `json:"type"`
	Status     workflow.Status `json:"status"`
	Message    string          `json:"message"`
}

func (a *API) startWorkflow(c *gin.Context) {
	var req StartWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := a.eng.StartWorkflow(c.Request.Context(), req.Type, req.Input, id.Nil)
	if err != nil {
		if errors.Is(err, flowforge.ErrUnknownWorkflowType) || errors.Is(err, flowforge.ErrEmptyWorkflowDefinition) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, StartWorkflowResponse{
		WorkflowID: inst.ID.String(),
		Type:       inst.Type,
		Status:     inst.Status,
		Message:    "workflow started",
	})
}

// WorkflowSummary is the compact per-instance shape returned by GET /workflows.
type WorkflowSummary struct {
	WorkflowID  string          `json:"workflowId"`
	Type        string          `json:"type"`
	Status      workflow.Status `json:"status"`
	CurrentStep string          `json:"currentStep,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListWorkflowsResponse is the body returned by GET /workflows.
type ListWorkflowsResponse struct {
	Workflows []WorkflowSummary `json:"workflows"`
	Count     int               `json:"count"`
}

func (a *API) listWorkflows(c *gin.Context) {
	opts := workflow.ListOpts{}
	if status := c.Query("status"); status != "" {
		opts.Status = workflow.Status(status)
	}

	instances, err := a.store.ListWorkflows(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries := make([]WorkflowSummary, 0, len(instances))
	for _, inst := range instances {
		summaries = append(summaries, WorkflowSummary{
			WorkflowID:  inst.ID.String(),
			Type:        inst.Type,
			Status:      inst.Status,
			CurrentStep: inst.CurrentStep,
			CreatedAt:   inst.CreatedAt,
			UpdatedAt:   inst.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, ListWorkflowsResponse{Workflows: summaries, Count: len(summaries)})
}

// GetWorkflowResponse is the body returned by GET /workflows/:id.
type GetWorkflowResponse struct {
	Workflow      *workflow.Instance     `json:"workflow"`
	Steps         []*step.Execution      `json:"steps"`
	Compensations []*compensation.Record `json:"compensations"`
}

func (a *API) getWorkflow(c *gin.Context) {
	workflowID, err := id.ParseWorkflowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	history, err := a.store.GetWorkflowHistory(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, flowforge.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, GetWorkflowResponse{
		Workflow:      history.Workflow,
		Steps:         history.Steps,
		Compensations: history.Compensations,
	})
}

// SignalWorkflowRequest is the body of POST /workflows/:id/signal.
type SignalWorkflowRequest struct {
	Signal  string        `json:"signal" binding:"required"`
	Payload flowforge.Bag `json:"payload"`
}

func (a *API) signalWorkflow(c *gin.Context) {
	workflowID, err := id.ParseWorkflowID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	var req SignalWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := a.store.GetWorkflow(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, flowforge.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if inst.Status != workflow.StatusWaiting {
		c.JSON(http.StatusConflict, gin.H{"error": "workflow is not waiting for a signal"})
		return
	}

	a.eng.ResumeWorkflow(c.Request.Context(), workflowID, req.Signal, req.Payload)
	c.JSON(http.StatusAccepted, gin.H{"workflowId": workflowID.String(), "message": "signal accepted"})
}
