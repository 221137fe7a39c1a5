//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/store/postgres"
	"github.com/flowforge/flowforge/workflow"
)

// setupTestStore creates a Postgres container and returns a migrated Store.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("flowforge_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	s := postgres.New(connStr, postgres.WithLogger(slog.Default()))
	t.Cleanup(func() { _ = s.Close() })

	if migErr := s.Migrate(ctx); migErr != nil {
		t.Fatalf("migrate: %v", migErr)
	}
	return s
}

func TestStore_PingAndMigrateIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestStore_CreateAndGetWorkflow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	wfID := id.NewWorkflowID()

	if _, err := s.CreateWorkflow(ctx, wfID, "order", "validate", flowforge.Bag{"amount": 42}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateWorkflow(ctx, wfID, "order", "validate", flowforge.Bag{}); !errors.Is(err, flowforge.ErrWorkflowAlreadyExists) {
		t.Fatalf("expected ErrWorkflowAlreadyExists, got %v", err)
	}

	got, err := s.GetWorkflow(ctx, wfID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != workflow.StatusRunning || got.CurrentStep != "validate" {
		t.Fatalf("unexpected instance: %+v", got)
	}
}

func TestStore_StepTerminalOverwriteProtected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, _, err := s.RecordStepStart(ctx, "wf_pg_1", "charge", flowforge.Bag{}, 1); err != nil {
		t.Fatalf("record start: %v", err)
	}
	if _, err := s.RecordStepComplete(ctx, "wf_pg_1", "charge", flowforge.Bag{"ok": true}); err != nil {
		t.Fatalf("record complete: %v", err)
	}
	after, err := s.RecordStepFailure(ctx, "wf_pg_1", "charge", step.Error{Message: "too late"})
	if err != nil {
		t.Fatalf("record failure (replay): %v", err)
	}
	if after.Status != step.StatusCompleted {
		t.Fatalf("Status = %q, want unchanged completed", after.Status)
	}
}

func TestStore_PendingCompensationsOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.RegisterCompensation(ctx, "wf_pg_2", "charge", "refundPayment", 1); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.RegisterCompensation(ctx, "wf_pg_2", "reserve", "releaseInventory", 2); err != nil {
		t.Fatalf("register: %v", err)
	}

	pending, err := s.GetPendingCompensations(ctx, "wf_pg_2")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 2 || pending[0].StepName != "reserve" {
		t.Fatalf("unexpected order: %+v", pending)
	}

	if _, err := s.MarkCompensationExecuted(ctx, "wf_pg_2", "reserve", compensation.ResultSuccess, ""); err != nil {
		t.Fatalf("mark executed: %v", err)
	}
	pending, err = s.GetPendingCompensations(ctx, "wf_pg_2")
	if err != nil {
		t.Fatalf("get pending after execute: %v", err)
	}
	if len(pending) != 1 || pending[0].StepName != "charge" {
		t.Fatalf("unexpected remaining pending: %+v", pending)
	}
}
