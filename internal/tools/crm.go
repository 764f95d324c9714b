package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// SearchContactsTool finds contacts by name, org, or email substring.
type SearchContactsTool struct {
	store *store.Store
}

func NewSearchContactsTool(st *store.Store) *SearchContactsTool {
	return &SearchContactsTool{store: st}
}

func (t *SearchContactsTool) Name() string { return "search_contacts" }

func (t *SearchContactsTool) Description() string {
	return "Search contacts by name, organization, or email. Optionally filter by warmth level (cold, warm, hot)."
}

func (t *SearchContactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Substring to match against name, organization, or email",
			},
			"warmth": map[string]any{
				"type":        "string",
				"description": "Optional warmth filter: cold, warm, or hot",
			},
		},
	}
}

func (t *SearchContactsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := GetString(params, "query", "")
	warmth := GetString(params, "warmth", "")
	contacts, err := t.store.SearchContacts(query, warmth)
	if err != nil {
		return "", fmt.Errorf("search contacts: %w", err)
	}
	if len(contacts) == 0 {
		return "No contacts found.", nil
	}
	return toJSON(contacts)
}

// StaleContactsTool lists contacts with no activity for a given number of days.
type StaleContactsTool struct {
	store *store.Store
}

func NewStaleContactsTool(st *store.Store) *StaleContactsTool {
	return &StaleContactsTool{store: st}
}

func (t *StaleContactsTool) Name() string { return "get_stale_contacts" }

func (t *StaleContactsTool) Description() string {
	return "List contacts that have had no recorded activity for a number of days (default 14)."
}

func (t *StaleContactsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{
				"type":        "integer",
				"description": "Staleness threshold in days",
			},
		},
	}
}

func (t *StaleContactsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	days := GetInt(params, "days", 14)
	contacts, err := t.store.StaleContacts(days)
	if err != nil {
		return "", fmt.Errorf("stale contacts: %w", err)
	}
	if len(contacts) == 0 {
		return "No stale contacts.", nil
	}
	return toJSON(contacts)
}

// ContactHistoryTool returns one contact with its recent interactions.
type ContactHistoryTool struct {
	store *store.Store
}

func NewContactHistoryTool(st *store.Store) *ContactHistoryTool {
	return &ContactHistoryTool{store: st}
}

func (t *ContactHistoryTool) Name() string { return "get_contact_with_history" }

func (t *ContactHistoryTool) Description() string {
	return "Get a contact's full record along with their recent interaction history."
}

func (t *ContactHistoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contact_id": map[string]any{
				"type":        "integer",
				"description": "The contact's id",
			},
		},
		"required": []string{"contact_id"},
	}
}

func (t *ContactHistoryTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := GetID(params, "contact_id")
	if !ok {
		return "", fmt.Errorf("contact_id is required")
	}
	contact, err := t.store.GetContact(id)
	if err != nil {
		return "", fmt.Errorf("get contact %d: %w", id, err)
	}
	interactions, err := t.store.ListInteractions(id, 20)
	if err != nil {
		return "", fmt.Errorf("list interactions: %w", err)
	}
	return toJSON(map[string]any{
		"contact":      contact,
		"interactions": interactions,
	})
}

// ListDealsTool lists deals, optionally filtered by stage or priority.
type ListDealsTool struct {
	store *store.Store
}

func NewListDealsTool(st *store.Store) *ListDealsTool {
	return &ListDealsTool{store: st}
}

func (t *ListDealsTool) Name() string { return "list_deals" }

func (t *ListDealsTool) Description() string {
	return "List deals in the pipeline. Optionally filter by stage or priority (low, medium, high)."
}

func (t *ListDealsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stage": map[string]any{
				"type":        "string",
				"description": "Optional stage filter",
			},
			"priority": map[string]any{
				"type":        "string",
				"description": "Optional priority filter: low, medium, or high",
			},
		},
	}
}

func (t *ListDealsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	stage := GetString(params, "stage", "")
	priority := GetString(params, "priority", "")
	deals, err := t.store.ListDeals(stage, priority)
	if err != nil {
		return "", fmt.Errorf("list deals: %w", err)
	}
	if len(deals) == 0 {
		return "No deals found.", nil
	}
	return toJSON(deals)
}

// ListTasksTool lists open tasks, optionally only overdue ones.
type ListTasksTool struct {
	store *store.Store
}

func NewListTasksTool(st *store.Store) *ListTasksTool {
	return &ListTasksTool{store: st}
}

func (t *ListTasksTool) Name() string { return "list_tasks" }

func (t *ListTasksTool) Description() string {
	return "List open tasks. Set overdue_only to true to see only tasks past their due date."
}

func (t *ListTasksTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"overdue_only": map[string]any{
				"type":        "boolean",
				"description": "Only return tasks past their due date",
			},
		},
	}
}

func (t *ListTasksTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	overdueOnly, _ := params["overdue_only"].(bool)
	var (
		tasks []store.Task
		err   error
	)
	if overdueOnly {
		tasks, err = t.store.OverdueTasks()
	} else {
		tasks, err = t.store.ListTasks()
	}
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return "No tasks found.", nil
	}
	return toJSON(tasks)
}

// UpdateContactTool applies direct field updates to a contact. Unlike
// proposed actions, these edits take effect immediately.
type UpdateContactTool struct {
	store *store.Store
}

func NewUpdateContactTool(st *store.Store) *UpdateContactTool {
	return &UpdateContactTool{store: st}
}

func (t *UpdateContactTool) Name() string { return "update_contact" }

func (t *UpdateContactTool) Description() string {
	return "Update a contact's role, organization, or warmth. Changes apply immediately without approval."
}

func (t *UpdateContactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contact_id": map[string]any{
				"type":        "integer",
				"description": "The contact's id",
			},
			"role":   map[string]any{"type": "string"},
			"org":    map[string]any{"type": "string"},
			"warmth": map[string]any{"type": "string"},
		},
		"required": []string{"contact_id"},
	}
}

func (t *UpdateContactTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	id, ok := GetID(params, "contact_id")
	if !ok {
		return "", fmt.Errorf("contact_id is required")
	}
	role := GetString(params, "role", "")
	org := GetString(params, "org", "")
	warmth := GetString(params, "warmth", "")
	if err := t.store.UpdateContact(id, role, warmth, org); err != nil {
		return "", fmt.Errorf("update contact %d: %w", id, err)
	}
	return fmt.Sprintf("Contact %d updated.", id), nil
}

// DashboardTool summarizes pipeline state.
type DashboardTool struct {
	store *store.Store
}

func NewDashboardTool(st *store.Store) *DashboardTool {
	return &DashboardTool{store: st}
}

func (t *DashboardTool) Name() string { return "get_dashboard" }

func (t *DashboardTool) Description() string {
	return "Get a pipeline summary: deals by stage, overdue tasks, stale contacts, and pending approvals."
}

func (t *DashboardTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *DashboardTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	dash, err := t.store.GetDashboard(14)
	if err != nil {
		return "", fmt.Errorf("dashboard: %w", err)
	}
	return toJSON(dash)
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
