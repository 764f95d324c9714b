// Package agent runs CRM agents through a conversational tool-calling
// loop against an LLM provider.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/agents"
	"github.com/pipeline-crm/pipeline/internal/audit"
	"github.com/pipeline-crm/pipeline/internal/integrations"
	"github.com/pipeline-crm/pipeline/internal/provider"
	"github.com/pipeline-crm/pipeline/internal/store"
	"github.com/pipeline-crm/pipeline/internal/tools"
)

const defaultMaxIterations = 10

// Runner executes agent definitions. Every dependency is injected; the
// runner holds no global state.
type Runner struct {
	store    *store.Store
	provider provider.LLMProvider
	registry *actions.Registry
	audit    *audit.Logger
	servers  []*integrations.Client

	model         string
	maxIterations int

	// OnText receives the agent's final text, when set.
	OnText func(string)
}

// Config carries the runner's tunables.
type Config struct {
	Model         string
	MaxIterations int
}

func NewRunner(st *store.Store, prov provider.LLMProvider, registry *actions.Registry, auditLog *audit.Logger, servers []*integrations.Client, cfg Config) *Runner {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	return &Runner{
		store:         st,
		provider:      prov,
		registry:      registry,
		audit:         auditLog,
		servers:       servers,
		model:         cfg.Model,
		maxIterations: maxIter,
	}
}

// RunResult summarizes one agent run.
type RunResult struct {
	RunID           string
	Output          string
	ActionsProposed int
}

// Run executes one agent: builds its tool registry, seeds the
// conversation with the agent's prompt, and loops until the model stops
// calling tools or the iteration cap is reached. An empty userPrompt
// gets the standard kickoff.
func (r *Runner) Run(ctx context.Context, def agents.Definition, userPrompt string) (*RunResult, error) {
	runID := uuid.NewString()
	registry := r.buildRegistry(ctx, def.Name, runID)
	toolDefs := buildToolDefinitions(registry)

	if userPrompt == "" {
		userPrompt = "Run your directive now. Today is " + time.Now().Format("Monday, January 2, 2006") + "."
	}
	messages := []provider.Message{
		{Role: "system", Content: def.Prompt},
		{Role: "user", Content: userPrompt},
	}

	model := r.model
	if model == "" {
		model = r.provider.DefaultModel()
	}

	result := &RunResult{RunID: runID}

	for i := 0; i < r.maxIterations; i++ {
		resp, err := r.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       model,
			MaxTokens:   4096,
			Temperature: 0.7,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			result.Output = resp.Content
			if r.OnText != nil && resp.Content != "" {
				r.OnText(resp.Content)
			}
			return result, nil
		}

		messages = append(messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			toolStart := time.Now()
			out, err := registry.Execute(ctx, tc.Name, tc.Arguments)
			toolDuration := time.Since(toolStart)
			if err != nil {
				out = fmt.Sprintf("Error: %v", err)
			} else if tc.Name == "propose_action" {
				result.ActionsProposed++
			}

			if r.audit != nil {
				entry := store.AuditInput{
					Actor:      def.Name,
					Command:    "tool:" + tc.Name,
					Args:       "run=" + runID,
					Result:     truncate(out, 1024),
					DurationMs: toolDuration.Milliseconds(),
				}
				if err != nil {
					entry.Error = err.Error()
				}
				r.audit.Record(entry)
			}
			slog.Debug("tool call", "agent", def.Name, "tool", tc.Name, "duration_ms", toolDuration.Milliseconds(), "error", err)

			messages = append(messages, provider.Message{
				Role:       "tool",
				Content:    out,
				ToolCallID: tc.ID,
			})
		}
	}

	result.Output = "Agent reached the iteration limit before finishing."
	return result, nil
}

// buildRegistry assembles the agent's toolset: the local CRM tools plus
// any tools advertised by configured servers. Local tools win on name
// collisions.
func (r *Runner) buildRegistry(ctx context.Context, agentName, runID string) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchContactsTool(r.store))
	registry.Register(tools.NewStaleContactsTool(r.store))
	registry.Register(tools.NewContactHistoryTool(r.store))
	registry.Register(tools.NewListDealsTool(r.store))
	registry.Register(tools.NewListTasksTool(r.store))
	registry.Register(tools.NewUpdateContactTool(r.store))
	registry.Register(tools.NewDashboardTool(r.store))
	registry.Register(tools.NewProposeActionTool(r.store, r.registry, agentName, runID))
	registry.Register(tools.NewRecallMemoryTool(r.store, agentName))

	for _, server := range r.servers {
		defs, err := server.ListTools(ctx)
		if err != nil {
			slog.Warn("tool server unavailable", "server", server.Name(), "error", err)
			continue
		}
		for _, def := range defs {
			if _, exists := registry.Get(def.Name); exists {
				slog.Debug("remote tool shadowed by local tool", "server", server.Name(), "tool", def.Name)
				continue
			}
			registry.Register(integrations.NewRemoteTool(server, def))
		}
	}
	return registry
}

func buildToolDefinitions(registry *tools.Registry) []provider.ToolDefinition {
	toolList := registry.List()
	defs := make([]provider.ToolDefinition, len(toolList))
	for i, tool := range toolList {
		defs[i] = provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		}
	}
	return defs
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Summary renders a short human-readable line for a finished run.
func (res *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d action(s) proposed", res.RunID[:8], res.ActionsProposed)
	if res.Output != "" {
		line := res.Output
		if idx := strings.IndexByte(line, '\n'); idx > 0 {
			line = line[:idx]
		}
		fmt.Fprintf(&b, " - %s", line)
	}
	return b.String()
}
