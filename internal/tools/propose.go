package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/store"
)

// ProposeActionTool queues an action for human approval. Validation runs
// here, at proposal time; nothing is executed until an operator approves.
type ProposeActionTool struct {
	store     *store.Store
	registry  *actions.Registry
	agentName string
	runID     string
}

func NewProposeActionTool(st *store.Store, registry *actions.Registry, agentName, runID string) *ProposeActionTool {
	return &ProposeActionTool{store: st, registry: registry, agentName: agentName, runID: runID}
}

func (t *ProposeActionTool) Name() string { return "propose_action" }

func (t *ProposeActionTool) Description() string {
	return "Propose an action for human approval. Nothing happens until the user approves it. " +
		"Always include clear reasoning for why this action should be taken."
}

func (t *ProposeActionTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action_type": map[string]any{
				"type":        "string",
				"description": "One of: " + joinTypes(t.registry.Types()),
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Parameters for the action, as a JSON object (a JSON-encoded string is also accepted)",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Why this action should be taken",
			},
		},
		"required": []string{"action_type", "payload", "reasoning"},
	}
}

func (t *ProposeActionTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	actionType := GetString(params, "action_type", "")
	reasoning := GetString(params, "reasoning", "")

	// Models send the payload either as a JSON object or as a JSON
	// string; accept both.
	payload, _ := params["payload"].(map[string]any)
	if payload == nil {
		if raw := GetString(params, "payload", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				return "", fmt.Errorf("payload is not a JSON object: %w", err)
			}
		}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	handler, ok := t.registry.Get(actionType)
	if !ok {
		return "", fmt.Errorf("unknown action type %q, must be one of: %s", actionType, joinTypes(t.registry.Types()))
	}
	if err := handler.Validate(payload); err != nil {
		return "", fmt.Errorf("invalid %s payload: %w", actionType, err)
	}

	mem, err := t.store.RecordMemory(store.MemoryInput{
		AgentName:  t.agentName,
		RunID:      t.runID,
		ContactID:  payloadID(payload, "contact_id"),
		DealID:     payloadID(payload, "deal_id"),
		ActionType: actionType,
		Payload:    payload,
		Reasoning:  reasoning,
	})
	if err != nil {
		return "", fmt.Errorf("record memory: %w", err)
	}

	action, err := t.store.CreatePendingAction(store.CreateActionInput{
		ActionType: actionType,
		Payload:    payload,
		Reasoning:  reasoning,
		AgentName:  t.agentName,
		RunID:      t.runID,
		MemoryID:   &mem.ID,
	})
	if err != nil {
		return "", fmt.Errorf("create pending action: %w", err)
	}
	return fmt.Sprintf("Action proposed (id: %d)", action.ID), nil
}

func payloadID(payload map[string]any, key string) *int64 {
	if id, ok := GetID(payload, key); ok {
		return &id
	}
	return nil
}

func joinTypes(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
