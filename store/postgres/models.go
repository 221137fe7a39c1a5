package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/workflow"
)

// ── Workflow instance model ──────────────────────────────────────

type workflowModel struct {
	bun.BaseModel `bun:"table:flowforge_workflows"`

	ID          string    `bun:"id,pk"`
	Type        string    `bun:"type,notnull"`
	Status      string    `bun:"status,notnull"`
	CurrentStep string    `bun:"current_step"`
	Context     []byte    `bun:"context,type:jsonb,notnull"`
	FailedStep  string    `bun:"failed_step"`
	Error       string    `bun:"error"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func toWorkflowModel(inst *workflow.Instance) (*workflowModel, error) {
	ctx, err := json.Marshal(inst.Context)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	return &workflowModel{
		ID:          inst.ID.String(),
		Type:        inst.Type,
		Status:      string(inst.Status),
		CurrentStep: inst.CurrentStep,
		Context:     ctx,
		FailedStep:  inst.FailedStep,
		Error:       inst.Error,
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
	}, nil
}

func fromWorkflowModel(m *workflowModel) (*workflow.Instance, error) {
	parsedID, err := id.ParseWorkflowID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse workflow id %q: %w", m.ID, err)
	}
	var ctx flowforge.Bag
	if len(m.Context) > 0 {
		if err := json.Unmarshal(m.Context, &ctx); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	return &workflow.Instance{
		Entity:      flowforge.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          parsedID,
		Type:        m.Type,
		Status:      workflow.Status(m.Status),
		CurrentStep: m.CurrentStep,
		Context:     ctx,
		FailedStep:  m.FailedStep,
		Error:       m.Error,
	}, nil
}

// ── Step execution model ─────────────────────────────────────────

type stepModel struct {
	bun.BaseModel `bun:"table:flowforge_steps"`

	WorkflowID  string     `bun:"workflow_id,pk"`
	StepName    string     `bun:"step_name,pk"`
	Status      string     `bun:"status,notnull"`
	Input       []byte     `bun:"input,type:jsonb"`
	Output      []byte     `bun:"output,type:jsonb"`
	ErrorMsg    string     `bun:"error_message"`
	ErrorCode   string     `bun:"error_code"`
	ErrorStack  string     `bun:"error_stack"`
	StartedAt   time.Time  `bun:"started_at,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at"`
	Attempt     int        `bun:"attempt,notnull,default:1"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toStepModel(e *step.Execution) (*stepModel, error) {
	input, err := json.Marshal(e.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	var output []byte
	if e.Output != nil {
		output, err = json.Marshal(e.Output)
		if err != nil {
			return nil, fmt.Errorf("marshal output: %w", err)
		}
	}
	m := &stepModel{
		WorkflowID:  e.WorkflowID,
		StepName:    e.StepName,
		Status:      string(e.Status),
		Input:       input,
		Output:      output,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Attempt:     e.Attempt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Error != nil {
		m.ErrorMsg = e.Error.Message
		m.ErrorCode = e.Error.Code
		m.ErrorStack = e.Error.Stack
	}
	return m, nil
}

func fromStepModel(m *stepModel) (*step.Execution, error) {
	var input, output flowforge.Bag
	if len(m.Input) > 0 {
		if err := json.Unmarshal(m.Input, &input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if len(m.Output) > 0 {
		if err := json.Unmarshal(m.Output, &output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	e := &step.Execution{
		Entity:      flowforge.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		WorkflowID:  m.WorkflowID,
		StepName:    m.StepName,
		Status:      step.Status(m.Status),
		Input:       input,
		Output:      output,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		Attempt:     m.Attempt,
	}
	if m.ErrorMsg != "" {
		e.Error = &step.Error{Message: m.ErrorMsg, Code: m.ErrorCode, Stack: m.ErrorStack}
	}
	return e, nil
}

// ── Compensation record model ────────────────────────────────────

type compensationModel struct {
	bun.BaseModel `bun:"table:flowforge_compensations"`

	WorkflowID       string     `bun:"workflow_id,pk"`
	StepName         string     `bun:"step_name,pk"`
	CompensationName string     `bun:"compensation_name,notnull"`
	RegisteredAt     time.Time  `bun:"registered_at,notnull,default:current_timestamp"`
	StepIndex        int        `bun:"step_index,notnull,default:0"`
	Executed         bool       `bun:"executed,notnull,default:false"`
	ExecutedAt       *time.Time `bun:"executed_at"`
	Result           string     `bun:"result"`
	Error            string     `bun:"error"`
}

func toCompensationModel(r *compensation.Record) *compensationModel {
	return &compensationModel{
		WorkflowID:       r.WorkflowID,
		StepName:         r.StepName,
		CompensationName: r.CompensationName,
		RegisteredAt:     r.RegisteredAt,
		StepIndex:        r.StepIndex,
		Executed:         r.Executed,
		ExecutedAt:       r.ExecutedAt,
		Result:           string(r.Result),
		Error:            r.Error,
	}
}

func fromCompensationModel(m *compensationModel) *compensation.Record {
	return &compensation.Record{
		WorkflowID:       m.WorkflowID,
		StepName:         m.StepName,
		CompensationName: m.CompensationName,
		RegisteredAt:     m.RegisteredAt,
		StepIndex:        m.StepIndex,
		Executed:         m.Executed,
		ExecutedAt:       m.ExecutedAt,
		Result:           compensation.Result(m.Result),
		Error:            m.Error,
	}
}
