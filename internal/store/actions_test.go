package store

import (
	"errors"
	"testing"
	"time"
)

func TestPendingActionStatusMonotonic(t *testing.T) {
	st := newTestStore(t)

	action, err := st.CreatePendingAction(CreateActionInput{
		ActionType: "create_task",
		Payload:    map[string]any{"title": "Call Jane"},
		Reasoning:  "Jane asked for a call",
	})
	if err != nil {
		t.Fatalf("create pending action: %v", err)
	}
	if action.Status != StatusPending {
		t.Fatalf("new action status = %q", action.Status)
	}

	if err := st.ResolvePendingAction(action.ID, StatusApproved, time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// A resolved action cannot transition again.
	err = st.ResolvePendingAction(action.ID, StatusRejected, time.Now())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on re-resolve, got %v", err)
	}

	got, err := st.GetPendingAction(action.ID)
	if err != nil {
		t.Fatalf("get action: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("status reverted to %q", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Fatal("resolved_at not set")
	}
}

func TestListPendingActionsExcludesResolved(t *testing.T) {
	st := newTestStore(t)

	first, err := st.CreatePendingAction(CreateActionInput{ActionType: "log_note"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreatePendingAction(CreateActionInput{ActionType: "create_task"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := st.ResolvePendingAction(first.ID, StatusRejected, time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	pending, err := st.ListPendingActions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ActionType != "create_task" {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	count, err := st.CountPendingActions()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestResolveUnknownActionNotFound(t *testing.T) {
	st := newTestStore(t)

	err := st.ResolvePendingAction(42, StatusApproved, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
