package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/api"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event/memory"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/registry"
	storemem "github.com/flowforge/flowforge/store/memory"
	"github.com/flowforge/flowforge/workflow"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	_ = reg.Register(registry.Definition{
		Type: "order-fulfillment",
		Steps: []registry.StepDefinition{
			{Name: "ValidateOrder", Topic: "orders.validate"},
			{Name: "ChargePayment", Topic: "payments.charge", CompensationName: "RefundPayment"},
		},
	})
	return reg
}

func newTestAPI(t *testing.T) (*api.API, *storemem.Store) {
	t.Helper()
	st := storemem.New()
	bus := memory.New()
	t.Cleanup(func() { _ = bus.Close() })
	eng := engine.New(testRegistry(), st, bus)
	return api.New(eng, st), st
}

func TestStartWorkflow_ReturnsCreatedWithID(t *testing.T) {
	t.Parallel()
	a, _ := newTestAPI(t)
	router := a.Handler()

	body, _ := json.Marshal(api.StartWorkflowRequest{Type: "order-fulfillment", Input: flowforge.Bag{"orderId": "o_1"}})
	req := httptest.NewRequest(http.MethodPost, "/workflows/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp api.StartWorkflowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.WorkflowID == "" || resp.Status != workflow.StatusRunning {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStartWorkflow_UnknownTypeReturnsBadRequest(t *testing.T) {
	t.Parallel()
	a, _ := newTestAPI(t)
	router := a.Handler()

	body, _ := json.Marshal(api.StartWorkflowRequest{Type: "does-not-exist"})
	req := httptest.NewRequest(http.MethodPost, "/workflows/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestListWorkflows_ReturnsCountAndSummaries(t *testing.T) {
	t.Parallel()
	a, st := newTestAPI(t)
	router := a.Handler()

	if _, err := st.CreateWorkflow(context.Background(), id.NewWorkflowID(), "order-fulfillment", "ValidateOrder", nil); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp api.ListWorkflowsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || len(resp.Workflows) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetWorkflow_NotFoundReturns404(t *testing.T) {
	t.Parallel()
	a, _ := newTestAPI(t)
	router := a.Handler()

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+id.NewWorkflowID().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetWorkflow_ReturnsHistory(t *testing.T) {
	t.Parallel()
	a, st := newTestAPI(t)
	router := a.Handler()

	wfID := id.NewWorkflowID()
	if _, err := st.CreateWorkflow(context.Background(), wfID, "order-fulfillment", "ValidateOrder", flowforge.Bag{"orderId": "o_2"}); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+wfID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp api.GetWorkflowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Workflow == nil || resp.Workflow.ID.String() != wfID.String() {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSignalWorkflow_RequiresWaitingStatus(t *testing.T) {
	t.Parallel()
	a, st := newTestAPI(t)
	router := a.Handler()

	wfID := id.NewWorkflowID()
	if _, err := st.CreateWorkflow(context.Background(), wfID, "order-fulfillment", "ValidateOrder", nil); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}

	body, _ := json.Marshal(api.SignalWorkflowRequest{Signal: "approved"})
	req := httptest.NewRequest(http.MethodPost, "/workflows/"+wfID.String()+"/signal", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSignalWorkflow_AcceptsWhenWaiting(t *testing.T) {
	t.Parallel()
	a, st := newTestAPI(t)
	router := a.Handler()

	wfID := id.NewWorkflowID()
	if _, err := st.CreateWorkflow(context.Background(), wfID, "order-fulfillment", "ValidateOrder", nil); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if _, err := st.UpdateWorkflowStatus(context.Background(), wfID, workflow.StatusWaiting, workflow.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateWorkflowStatus: %v", err)
	}

	body, _ := json.Marshal(api.SignalWorkflowRequest{Signal: "approved"})
	req := httptest.NewRequest(http.MethodPost, "/workflows/"+wfID.String()+"/signal", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
