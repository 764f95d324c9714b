package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/agents"
	"github.com/pipeline-crm/pipeline/internal/audit"
	"github.com/pipeline-crm/pipeline/internal/integrations"
	"github.com/pipeline-crm/pipeline/internal/provider"
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

// scriptedProvider replays canned responses and records every request.
type scriptedProvider struct {
	responses []*provider.ChatResponse
	requests  []*provider.ChatRequest
}

func (p *scriptedProvider) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.requests) > len(p.responses) {
		return &provider.ChatResponse{Content: "done"}, nil
	}
	return p.responses[len(p.requests)-1], nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func newRunnerWith(t *testing.T, st *store.Store, prov provider.LLMProvider, servers []*integrations.Client) *Runner {
	t.Helper()
	registry := actions.NewRegistry(st, actions.NoMailer{}, []string{"lead", "proposal"})
	return NewRunner(st, prov, registry, audit.NewLogger(st), servers, Config{Model: "test-model"})
}

var testDef = agents.Definition{Name: "follow-up", Prompt: "You follow up on stale contacts."}

func TestRunFinishesWithoutToolCalls(t *testing.T) {
	st := newTestStore(t)
	prov := &scriptedProvider{responses: []*provider.ChatResponse{
		{Content: "Nothing needs attention."},
	}}
	runner := newRunnerWith(t, st, prov, nil)

	var seen string
	runner.OnText = func(s string) { seen = s }

	res, err := runner.Run(context.Background(), testDef, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Output != "Nothing needs attention." || seen != res.Output {
		t.Fatalf("output = %q, OnText = %q", res.Output, seen)
	}
	if res.RunID == "" || res.ActionsProposed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	// The kickoff prompt is supplied when the caller gives none.
	req := prov.requests[0]
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !strings.HasPrefix(req.Messages[1].Content, "Run your directive now.") {
		t.Fatalf("kickoff = %q", req.Messages[1].Content)
	}
}

func TestRunExecutesToolCallsAndCountsProposals(t *testing.T) {
	st := newTestStore(t)
	prov := &scriptedProvider{responses: []*provider.ChatResponse{
		{ToolCalls: []provider.ToolCall{{
			ID:   "call-1",
			Name: "propose_action",
			Arguments: map[string]any{
				"action_type": "create_task",
				"payload":     map[string]any{"title": "Call Dana"},
				"reasoning":   "No open task for this deal",
			},
		}}},
		{Content: "Proposed one task."},
	}}
	runner := newRunnerWith(t, st, prov, nil)

	res, err := runner.Run(context.Background(), testDef, "Review the pipeline.")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ActionsProposed != 1 {
		t.Fatalf("actions proposed = %d", res.ActionsProposed)
	}

	pending, err := st.ListPendingActions()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ActionType != "create_task" {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].RunID != res.RunID || pending[0].AgentName != "follow-up" {
		t.Fatalf("proposal not attributed to run: %+v", pending[0])
	}

	// The second request carries the tool result back to the model.
	second := prov.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call-1" {
		t.Fatalf("tool message = %+v", last)
	}
	if !strings.HasPrefix(last.Content, "Action proposed (id: ") {
		t.Fatalf("tool result = %q", last.Content)
	}

	// Tool calls land in the audit log.
	entries, err := audit.NewLogger(st).Query(store.AuditFilter{Command: "tool:propose_action"})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "follow-up" {
		t.Fatalf("audit entries = %+v", entries)
	}
}

func TestRunToolErrorFedBackAsText(t *testing.T) {
	st := newTestStore(t)
	prov := &scriptedProvider{responses: []*provider.ChatResponse{
		{ToolCalls: []provider.ToolCall{{
			ID:   "call-1",
			Name: "propose_action",
			Arguments: map[string]any{
				"action_type": "teleport",
				"payload":     map[string]any{},
				"reasoning":   "testing",
			},
		}}},
		{Content: "That tool is not available."},
	}}
	runner := newRunnerWith(t, st, prov, nil)

	res, err := runner.Run(context.Background(), testDef, "go")
	if err != nil {
		t.Fatalf("tool failure must not abort the run: %v", err)
	}
	if res.ActionsProposed != 0 {
		t.Fatalf("failed proposal counted: %+v", res)
	}

	second := prov.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.HasPrefix(last.Content, "Error: ") {
		t.Fatalf("tool error not surfaced: %q", last.Content)
	}
}

func TestRunFallsBackToProviderDefaultModel(t *testing.T) {
	st := newTestStore(t)
	prov := &scriptedProvider{responses: []*provider.ChatResponse{
		{Content: "done"},
	}}
	registry := actions.NewRegistry(st, actions.NoMailer{}, nil)
	runner := NewRunner(st, prov, registry, nil, nil, Config{})

	if _, err := runner.Run(context.Background(), testDef, "go"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := prov.requests[0].Model; got != "test-model" {
		t.Fatalf("model = %q, want provider default", got)
	}
}

func TestRunIterationLimit(t *testing.T) {
	st := newTestStore(t)
	loop := &provider.ChatResponse{ToolCalls: []provider.ToolCall{{
		ID: "call-1", Name: "get_dashboard", Arguments: map[string]any{},
	}}}
	prov := &scriptedProvider{responses: []*provider.ChatResponse{loop, loop, loop}}
	registry := actions.NewRegistry(st, actions.NoMailer{}, nil)
	runner := NewRunner(st, prov, registry, nil, nil, Config{MaxIterations: 3})

	res, err := runner.Run(context.Background(), testDef, "go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(prov.requests) != 3 {
		t.Fatalf("made %d LLM calls, want 3", len(prov.requests))
	}
	if !strings.Contains(res.Output, "iteration limit") {
		t.Fatalf("output = %q", res.Output)
	}
}

func TestRemoteToolsMergedLocalWins(t *testing.T) {
	st := newTestStore(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/tools":
			json.NewEncoder(w).Encode(map[string]any{"tools": []map[string]any{
				{"name": "search_contacts", "description": "shadowed"},
				{"name": "enrich_company", "description": "Look up company data"},
			}})
		case "/v1/tools/call":
			json.NewEncoder(w).Encode(map[string]string{"result": "Acme Corp, 50 employees"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	prov := &scriptedProvider{responses: []*provider.ChatResponse{
		{ToolCalls: []provider.ToolCall{{
			ID: "call-1", Name: "enrich_company", Arguments: map[string]any{"name": "Acme"},
		}}},
		{Content: "Enriched."},
	}}
	client := integrations.NewClient("enrichment", server.URL, "")
	runner := newRunnerWith(t, st, prov, []*integrations.Client{client})

	if _, err := runner.Run(context.Background(), testDef, "go"); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Both local and remote tools were advertised to the model, with the
	// local search_contacts winning the name collision.
	names := map[string]string{}
	for _, def := range prov.requests[0].Tools {
		names[def.Function.Name] = def.Function.Description
	}
	if _, ok := names["enrich_company"]; !ok {
		t.Fatal("remote tool not advertised")
	}
	if names["search_contacts"] == "shadowed" {
		t.Fatal("remote tool replaced a local one")
	}

	// The remote result was fed back to the model.
	second := prov.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Content != "Acme Corp, 50 employees" {
		t.Fatalf("remote result = %q", last.Content)
	}
}

func TestRunResultSummary(t *testing.T) {
	res := &RunResult{RunID: "0123456789abcdef", ActionsProposed: 2, Output: "First line.\nSecond line."}
	got := res.Summary()
	if !strings.Contains(got, "01234567") || !strings.Contains(got, "2 action(s)") || strings.Contains(got, "Second line") {
		t.Fatalf("summary = %q", got)
	}
}
