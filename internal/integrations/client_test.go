package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newToolServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantToken != "" && r.Header.Get("Authorization") != "Bearer "+wantToken {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/tools":
			json.NewEncoder(w).Encode(map[string]any{"tools": []map[string]any{
				{"name": "enrich_company", "description": "Look up company data", "parameters": map[string]any{"type": "object"}},
			}})
		case "/v1/tools/call":
			var call struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			}
			if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if call.Name == "broken_tool" {
				json.NewEncoder(w).Encode(map[string]string{"error": "upstream timeout"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"result": "Acme Corp, 50 employees"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListTools(t *testing.T) {
	server := newToolServer(t, "secret")
	client := NewClient("enrichment", server.URL, "secret")

	defs, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "enrich_company" {
		t.Fatalf("defs = %+v", defs)
	}
}

func TestListToolsRejectsBadToken(t *testing.T) {
	server := newToolServer(t, "secret")
	client := NewClient("enrichment", server.URL, "wrong")

	if _, err := client.ListTools(context.Background()); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestCallTool(t *testing.T) {
	server := newToolServer(t, "")
	client := NewClient("enrichment", server.URL, "")

	result, err := client.CallTool(context.Background(), "enrich_company", map[string]any{"name": "Acme"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result != "Acme Corp, 50 employees" {
		t.Fatalf("result = %q", result)
	}
}

func TestCallToolServerSideError(t *testing.T) {
	server := newToolServer(t, "")
	client := NewClient("enrichment", server.URL, "")

	if _, err := client.CallTool(context.Background(), "broken_tool", nil); err == nil {
		t.Fatal("server-reported error not propagated")
	}
}

func TestRemoteToolDefaultsParameters(t *testing.T) {
	tool := NewRemoteTool(NewClient("x", "http://localhost", ""), RemoteToolDef{Name: "bare"})
	params := tool.Parameters()
	if params["type"] != "object" {
		t.Fatalf("params = %v", params)
	}
}
