package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "nope", nil); err == nil {
		t.Fatal("unknown tool executed")
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]any{
		"query": "acme",
		"days":  float64(7),
		"id":    float64(42),
	}
	if got := GetString(params, "query", ""); got != "acme" {
		t.Errorf("GetString = %q", got)
	}
	if got := GetString(params, "missing", "fallback"); got != "fallback" {
		t.Errorf("GetString default = %q", got)
	}
	if got := GetInt(params, "days", 14); got != 7 {
		t.Errorf("GetInt = %d", got)
	}
	if got := GetInt(params, "missing", 14); got != 14 {
		t.Errorf("GetInt default = %d", got)
	}
	if id, ok := GetID(params, "id"); !ok || id != 42 {
		t.Errorf("GetID = %d, %v", id, ok)
	}
	if _, ok := GetID(params, "missing"); ok {
		t.Error("GetID found missing key")
	}
}

func TestSearchContactsTool(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.CreateContact("Dana Reyes", "dana@acme.test", "CTO", "Acme"); err != nil {
		t.Fatalf("create contact: %v", err)
	}

	tool := NewSearchContactsTool(st)
	out, err := tool.Execute(context.Background(), map[string]any{"query": "acme"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Dana Reyes") {
		t.Fatalf("out = %q", out)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"query": "nobody"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "No contacts found." {
		t.Fatalf("empty result = %q", out)
	}
}

func TestProposeActionTool(t *testing.T) {
	st := newTestStore(t)
	registry := actions.NewRegistry(st, actions.NoMailer{}, nil)
	tool := NewProposeActionTool(st, registry, "follow-up", "run-1")

	out, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "create_task",
		"payload":     map[string]any{"title": "Call Dana", "contact_id": float64(3)},
		"reasoning":   "Stale for three weeks",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out, "Action proposed (id: ") {
		t.Fatalf("out = %q", out)
	}

	pending, err := st.ListPendingActions()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].MemoryID == nil {
		t.Fatalf("pending = %+v", pending)
	}

	// The linked memory row carries the payload's entity ids.
	memories, err := st.RecallMemory(store.MemoryFilter{AgentName: "follow-up"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(memories) != 1 || memories[0].ContactID == nil || *memories[0].ContactID != 3 {
		t.Fatalf("memories = %+v", memories)
	}
}

func TestProposeActionToolAcceptsStringPayload(t *testing.T) {
	st := newTestStore(t)
	registry := actions.NewRegistry(st, actions.NoMailer{}, nil)
	tool := NewProposeActionTool(st, registry, "follow-up", "run-1")

	out, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "create_task",
		"payload":     `{"title": "Call Dana", "contact_id": 3}`,
		"reasoning":   "Stale for three weeks",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out, "Action proposed (id: ") {
		t.Fatalf("out = %q", out)
	}

	pending, err := st.ListPendingActions()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Payload["title"] != "Call Dana" {
		t.Fatalf("string payload not parsed: %+v", pending)
	}

	if _, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "create_task",
		"payload":     "not json",
		"reasoning":   "x",
	}); err == nil {
		t.Fatal("malformed string payload accepted")
	}
}

func TestProposeActionToolRejectsBadInput(t *testing.T) {
	st := newTestStore(t)
	registry := actions.NewRegistry(st, actions.NoMailer{}, nil)
	tool := NewProposeActionTool(st, registry, "follow-up", "run-1")

	if _, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "teleport", "payload": map[string]any{}, "reasoning": "x",
	}); err == nil {
		t.Fatal("unknown action type accepted")
	}

	// Validation runs at proposal time; a bad payload never reaches the
	// queue.
	if _, err := tool.Execute(context.Background(), map[string]any{
		"action_type": "create_task", "payload": map[string]any{}, "reasoning": "x",
	}); err == nil {
		t.Fatal("payload missing title accepted")
	}
	pending, _ := st.ListPendingActions()
	if len(pending) != 0 {
		t.Fatalf("rejected proposals queued: %+v", pending)
	}
}

func TestRecallMemoryTool(t *testing.T) {
	st := newTestStore(t)
	mem, err := st.RecordMemory(store.MemoryInput{
		AgentName: "follow-up", RunID: "run-1", ActionType: "send_email",
		Payload: map[string]any{"to": "dana@acme.test"}, Reasoning: "stale",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := st.UpdateMemoryOutcome(mem.ID, store.StatusRejected, "wrong contact"); err != nil {
		t.Fatalf("update outcome: %v", err)
	}

	tool := NewRecallMemoryTool(st, "follow-up")
	out, err := tool.Execute(context.Background(), map[string]any{"outcome": "rejected"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "wrong contact") {
		t.Fatalf("out = %q", out)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"outcome": "approved"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "No relevant memories." {
		t.Fatalf("empty result = %q", out)
	}
}

func TestRecallMemoryToolCrossAgent(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.RecordMemory(store.MemoryInput{
		AgentName: "digest", RunID: "run-1", ActionType: "log_note",
		Payload: map[string]any{"body": "weekly summary"}, Reasoning: "routine",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	// An agent can recall another agent's history by naming it.
	tool := NewRecallMemoryTool(st, "follow-up")
	out, err := tool.Execute(context.Background(), map[string]any{"agent_name": "digest"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "weekly summary") {
		t.Fatalf("cross-agent recall failed: %q", out)
	}

	// Without the parameter, recall stays scoped to the caller.
	out, err = tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out != "No relevant memories." {
		t.Fatalf("default scope leaked: %q", out)
	}
}
