package tools

import (
	"context"
	"fmt"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// RecallMemoryTool surfaces past proposals and their human outcomes so
// agents learn from what the operator approved and rejected before.
type RecallMemoryTool struct {
	store     *store.Store
	agentName string
}

func NewRecallMemoryTool(st *store.Store, agentName string) *RecallMemoryTool {
	return &RecallMemoryTool{store: st, agentName: agentName}
}

func (t *RecallMemoryTool) Name() string { return "recall_memory" }

func (t *RecallMemoryTool) Description() string {
	return "Recall your past proposals and whether the user approved or rejected them. " +
		"Check this before proposing actions you may have proposed before."
}

func (t *RecallMemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_name": map[string]any{
				"type":        "string",
				"description": "Whose memories to recall (defaults to your own)",
			},
			"contact_id": map[string]any{
				"type":        "integer",
				"description": "Only memories touching this contact",
			},
			"deal_id": map[string]any{
				"type":        "integer",
				"description": "Only memories touching this deal",
			},
			"outcome": map[string]any{
				"type":        "string",
				"description": "Filter by outcome: pending, approved, or rejected",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum entries to return (default 20)",
			},
		},
	}
}

func (t *RecallMemoryTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	filter := store.MemoryFilter{
		AgentName: GetString(params, "agent_name", t.agentName),
		Outcome:   GetString(params, "outcome", ""),
		Limit:     GetInt(params, "limit", 20),
	}
	filter.ContactID = payloadID(params, "contact_id")
	filter.DealID = payloadID(params, "deal_id")

	memories, err := t.store.RecallMemory(filter)
	if err != nil {
		return "", fmt.Errorf("recall memory: %w", err)
	}
	if len(memories) == 0 {
		return "No relevant memories.", nil
	}
	return toJSON(memories)
}
