package actions

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pipeline-crm/pipeline/internal/store"
)

var testStages = []string{"lead", "qualified", "proposal", "negotiation", "closed_won", "closed_lost"}

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewRegistry(st, NoMailer{}, testStages), st
}

func mustHandler(t *testing.T, r *Registry, actionType string) *Handler {
	t.Helper()
	h, ok := r.Get(actionType)
	if !ok {
		t.Fatalf("handler %q not registered", actionType)
	}
	return h
}

func TestTypesSorted(t *testing.T) {
	r, _ := newTestRegistry(t)
	types := r.Types()
	if !slices.IsSorted(types) {
		t.Fatalf("types not sorted: %v", types)
	}
	for _, want := range []string{"send_email", "update_stage", "create_task", "log_note", "create_edge", "complete_task", "update_warmth", "update_priority"} {
		if !slices.Contains(types, want) {
			t.Errorf("missing builtin %q", want)
		}
	}
}

func TestSendEmailWithoutMailerKeepsDraft(t *testing.T) {
	r, st := newTestRegistry(t)
	contact, err := st.CreateContact("Dana Reyes", "dana@acme.test", "CTO", "Acme")
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}

	h := mustHandler(t, r, "send_email")
	result, err := h.Execute(map[string]any{
		"to":         "dana@acme.test",
		"subject":    "Checking in",
		"body":       "Hi Dana",
		"contact_id": float64(contact.ID),
	})
	if err != nil {
		t.Fatalf("send failure must not fail the action: %v", err)
	}
	if !strings.Contains(result, "Email sending failed (logged as draft)") {
		t.Fatalf("result = %q", result)
	}

	interactions, err := st.ListInteractions(contact.ID, 10)
	if err != nil {
		t.Fatalf("list interactions: %v", err)
	}
	if len(interactions) != 1 || interactions[0].Type != "note" {
		t.Fatalf("draft note not recorded: %+v", interactions)
	}
	if !strings.Contains(interactions[0].Body, "Checking in") {
		t.Fatalf("draft body missing subject: %q", interactions[0].Body)
	}
}

func TestSendEmailValidateRequiresRecipient(t *testing.T) {
	r, _ := newTestRegistry(t)
	h := mustHandler(t, r, "send_email")
	if err := h.Validate(map[string]any{"subject": "no recipient"}); err == nil {
		t.Fatal("missing 'to' accepted")
	}
	if err := h.Validate(map[string]any{"to": "dana@acme.test"}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}

func TestUpdateStage(t *testing.T) {
	r, st := newTestRegistry(t)
	deal, err := st.CreateDeal("Acme expansion", nil, 5000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}

	h := mustHandler(t, r, "update_stage")
	if _, err := h.Execute(map[string]any{"deal_id": float64(deal.ID), "stage": "won_big"}); err == nil {
		t.Fatal("stage outside the configured set accepted")
	}

	result, err := h.Execute(map[string]any{"deal_id": float64(deal.ID), "stage": "proposal"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result, "proposal") {
		t.Fatalf("result = %q", result)
	}
	got, _ := st.GetDeal(deal.ID)
	if got.Stage != "proposal" {
		t.Fatalf("stage = %q", got.Stage)
	}
}

func TestWarmthAndPriorityValidateEnums(t *testing.T) {
	r, _ := newTestRegistry(t)

	warmth := mustHandler(t, r, "update_warmth")
	if err := warmth.Validate(map[string]any{"contact_id": float64(1), "warmth": "boiling"}); err == nil {
		t.Error("invalid warmth accepted")
	}
	if err := warmth.Validate(map[string]any{"contact_id": float64(1), "warmth": "hot"}); err != nil {
		t.Errorf("valid warmth rejected: %v", err)
	}

	priority := mustHandler(t, r, "update_priority")
	if err := priority.Validate(map[string]any{"deal_id": float64(1), "priority": "urgent"}); err == nil {
		t.Error("invalid priority accepted")
	}
	if err := priority.Validate(map[string]any{"deal_id": float64(1), "priority": "low"}); err != nil {
		t.Errorf("valid priority rejected: %v", err)
	}
}

func TestCompleteTask(t *testing.T) {
	r, st := newTestRegistry(t)
	task, err := st.CreateTask("Call Dana", nil, nil, "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	h := mustHandler(t, r, "complete_task")
	if _, err := h.Execute(map[string]any{"task_id": float64(task.ID)}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// ListTasks only returns open tasks.
	tasks, _ := st.ListTasks()
	for _, got := range tasks {
		if got.ID == task.ID {
			t.Fatal("completed task still listed as open")
		}
	}

	if _, err := h.Execute(map[string]any{"task_id": float64(9999)}); err == nil {
		t.Fatal("completing an unknown task should fail")
	}
}

func TestCreateEdge(t *testing.T) {
	r, st := newTestRegistry(t)
	a, _ := st.CreateContact("Dana Reyes", "dana@acme.test", "CTO", "Acme")
	b, _ := st.CreateContact("Sam Ortiz", "sam@acme.test", "VP Eng", "Acme")

	h := mustHandler(t, r, "create_edge")
	if err := h.Validate(map[string]any{"from_id": float64(a.ID), "to_id": float64(b.ID)}); err == nil {
		t.Fatal("missing entity types accepted")
	}
	result, err := h.Execute(map[string]any{
		"from_type": "contact", "from_id": float64(a.ID),
		"to_type": "contact", "to_id": float64(b.ID),
		"relation": "colleague",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result, "Created edge") {
		t.Fatalf("result = %q", result)
	}
}

func TestGetIDNumericForms(t *testing.T) {
	for _, v := range []any{float64(7), int64(7), int(7)} {
		id := getID(map[string]any{"deal_id": v}, "deal_id")
		if id == nil || *id != 7 {
			t.Errorf("getID(%T) = %v", v, id)
		}
	}
	if getID(map[string]any{"deal_id": "7"}, "deal_id") != nil {
		t.Error("string id accepted")
	}
	if getID(map[string]any{}, "deal_id") != nil {
		t.Error("missing key produced id")
	}
}
