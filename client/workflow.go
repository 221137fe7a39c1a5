package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/workflow"
)

// StartResult is the body of a successful POST /workflows/start response.
type StartResult struct {
	WorkflowID string          `json:"workflowId"`
	Type       string          `json:"type"`
	Status     workflow.Status `json:"status"`
	Message    string          `json:"message"`
}

// StartWorkflow starts a new workflow of the given registered type with
// the supplied input context, via POST /workflows/start.
func (c *Client) StartWorkflow(ctx context.Context, workflowType string, input flowforge.Bag) (*StartResult, error) {
	req := struct {
		Type  string        `json:"type"`
		Input flowforge.Bag `json:"input"`
	}{Type: workflowType, Input: input}

	var res StartResult
	if err := c.do(ctx, http.MethodPost, "/workflows/start", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Summary is the compact per-instance shape returned by GET /workflows.
type Summary struct {
	WorkflowID  string          `json:"workflowId"`
	Type        string          `json:"type"`
	Status      workflow.Status `json:"status"`
	CurrentStep string          `json:"currentStep,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ListResult is the body of a GET /workflows response.
type ListResult struct {
	Workflows []Summary `json:"workflows"`
	Count     int       `json:"count"`
}

// ListWorkflows lists workflow instances, optionally filtered by status,
// via GET /workflows. Pass an empty string for status to list all.
func (c *Client) ListWorkflows(ctx context.Context, status string) (*ListResult, error) {
	path := "/workflows" + encodeQuery(map[string]string{"status": status})

	var res ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// HistoryResult is the body of a GET /workflows/:id response.
type HistoryResult struct {
	Workflow      *workflow.Instance     `json:"workflow"`
	Steps         []*step.Execution      `json:"steps"`
	Compensations []*compensation.Record `json:"compensations"`
}

// GetWorkflow fetches one workflow instance's full history, via
// GET /workflows/:id.
func (c *Client) GetWorkflow(ctx context.Context, workflowID string) (*HistoryResult, error) {
	var res HistoryResult
	if err := c.do(ctx, http.MethodGet, "/workflows/"+workflowID, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SignalWorkflow resumes a waiting workflow instance with the given
// signal name and payload, via POST /workflows/:id/signal.
func (c *Client) SignalWorkflow(ctx context.Context, workflowID, signal string, payload flowforge.Bag) error {
	req := struct {
		Signal  string        `json:"signal"`
		Payload flowforge.Bag `json:"payload"`
	}{Signal: signal, Payload: payload}

	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/workflows/%s/signal", workflowID), req, nil); err != nil {
		return err
	}
	return nil
}
