package approval

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/store"
)

var testStages = []string{"lead", "qualified", "proposal", "negotiation", "closed_won", "closed_lost"}

func newTestWorkflow(t *testing.T) (*Workflow, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewWorkflow(st, actions.NewRegistry(st, actions.NoMailer{}, testStages)), st
}

// proposeAction seeds a pending action with a linked memory row, the way
// the propose_action tool does.
func proposeAction(t *testing.T, st *store.Store, actionType string, payload map[string]any) *store.PendingAction {
	t.Helper()
	mem, err := st.RecordMemory(store.MemoryInput{
		AgentName:  "deal-manager",
		RunID:      "run-1",
		ActionType: actionType,
		Payload:    payload,
		Reasoning:  "test proposal",
	})
	if err != nil {
		t.Fatalf("record memory: %v", err)
	}
	action, err := st.CreatePendingAction(store.CreateActionInput{
		ActionType: actionType,
		Payload:    payload,
		Reasoning:  "test proposal",
		AgentName:  "deal-manager",
		RunID:      "run-1",
		MemoryID:   &mem.ID,
	})
	if err != nil {
		t.Fatalf("create pending action: %v", err)
	}
	return action
}

func TestApproveExecutesAndResolves(t *testing.T) {
	w, st := newTestWorkflow(t)
	deal, err := st.CreateDeal("Acme expansion", nil, 5000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	action := proposeAction(t, st, "update_priority", map[string]any{
		"deal_id": float64(deal.ID), "priority": "high",
	})

	result, err := w.Approve(action.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !strings.Contains(result, "priority to high") {
		t.Fatalf("unexpected result: %q", result)
	}

	got, err := st.GetPendingAction(action.ID)
	if err != nil {
		t.Fatalf("get action: %v", err)
	}
	if got.Status != store.StatusApproved || got.ResolvedAt == nil {
		t.Fatalf("action not resolved: %+v", got)
	}

	updated, err := st.GetDeal(deal.ID)
	if err != nil {
		t.Fatalf("get deal: %v", err)
	}
	if updated.Priority != "high" {
		t.Fatalf("deal priority = %q, want high", updated.Priority)
	}

	memories, err := st.RecallMemory(store.MemoryFilter{AgentName: "deal-manager"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(memories) != 1 || memories[0].Outcome != store.StatusApproved {
		t.Fatalf("memory outcome not mirrored: %+v", memories)
	}
}

func TestApproveResolvedActionConflicts(t *testing.T) {
	w, st := newTestWorkflow(t)
	action := proposeAction(t, st, "log_note", map[string]any{"body": "hello"})

	if _, err := w.Approve(action.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, err := w.Approve(action.ID)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestApproveUnknownActionType(t *testing.T) {
	w, st := newTestWorkflow(t)
	action := proposeAction(t, st, "teleport", map[string]any{})

	result, err := w.Approve(action.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result != "Unknown action type: teleport" {
		t.Fatalf("result = %q", result)
	}
	got, _ := st.GetPendingAction(action.ID)
	if got.Status != store.StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestApproveExecutionFailureLeavesPending(t *testing.T) {
	w, st := newTestWorkflow(t)
	deal, err := st.CreateDeal("Acme expansion", nil, 5000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	action := proposeAction(t, st, "update_stage", map[string]any{
		"deal_id": float64(deal.ID), "stage": "won_big",
	})

	if _, err := w.Approve(action.ID); err == nil {
		t.Fatal("expected execution error for invalid stage")
	}
	got, _ := st.GetPendingAction(action.ID)
	if got.Status != store.StatusPending {
		t.Fatalf("status = %s, want pending after failed execute", got.Status)
	}
}

// Approval does not re-run Validate before Execute, so a payload that
// would fail validation still executes when Execute itself accepts it.
func TestApproveSkipsPayloadValidation(t *testing.T) {
	w, st := newTestWorkflow(t)
	deal, err := st.CreateDeal("Acme expansion", nil, 5000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	// "urgent" fails the update_priority Validate enum, but Execute does
	// not check it.
	action := proposeAction(t, st, "update_priority", map[string]any{
		"deal_id": float64(deal.ID), "priority": "urgent",
	})

	if _, err := w.Approve(action.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	updated, _ := st.GetDeal(deal.ID)
	if updated.Priority != "urgent" {
		t.Fatalf("priority = %q, want urgent", updated.Priority)
	}
}

func TestRejectRecordsFeedback(t *testing.T) {
	w, st := newTestWorkflow(t)
	action := proposeAction(t, st, "log_note", map[string]any{"body": "wrong note"})

	if err := w.Reject(action.ID, "not relevant to this contact"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := st.GetPendingAction(action.ID)
	if got.Status != store.StatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}

	memories, err := st.RecallMemory(store.MemoryFilter{Outcome: store.StatusRejected})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(memories) != 1 || memories[0].HumanFeedback != "not relevant to this contact" {
		t.Fatalf("feedback not recorded: %+v", memories)
	}
}

func TestApproveAllDrainsQueue(t *testing.T) {
	w, st := newTestWorkflow(t)
	proposeAction(t, st, "create_task", map[string]any{"title": "Call Acme"})
	proposeAction(t, st, "create_task", map[string]any{"title": "Send proposal"})

	results, err := w.ApproveAll()
	if err != nil {
		t.Fatalf("approve all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	pending, err := w.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("%d actions still pending", len(pending))
	}
	tasks, err := st.ListTasks()
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
}
