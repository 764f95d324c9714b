// Package approval drives pending actions to a human decision: approved
// actions execute through the action registry, rejections record feedback,
// and either outcome is written back to the linked agent memory row.
package approval

import (
	"fmt"
	"time"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/store"
)

// Workflow resolves pending actions. The registry instance is injected;
// the workflow never reaches for global state.
type Workflow struct {
	store    *store.Store
	registry *actions.Registry
}

func NewWorkflow(st *store.Store, registry *actions.Registry) *Workflow {
	return &Workflow{store: st, registry: registry}
}

// ListPending returns every action awaiting a decision.
func (w *Workflow) ListPending() ([]store.PendingAction, error) {
	return w.store.ListPendingActions()
}

// Approve executes the action's handler, then transitions the action to
// approved and mirrors the outcome onto the linked memory row. A handler
// error propagates and leaves the action pending, so the operator can
// retry or reject.
//
// Handlers carry a Validate, but approval does not invoke it before
// Execute. That matches long-observed behavior; see DESIGN.md.
func (w *Workflow) Approve(id int64) (string, error) {
	action, err := w.store.GetPendingAction(id)
	if err != nil {
		return "", err
	}
	if action.Status != store.StatusPending {
		return "", fmt.Errorf("action %d is already %s: %w", id, action.Status, store.ErrConflict)
	}

	result := ""
	if handler, ok := w.registry.Get(action.ActionType); ok {
		result, err = handler.Execute(action.Payload)
		if err != nil {
			return "", fmt.Errorf("execute %s: %w", action.ActionType, err)
		}
	} else {
		result = fmt.Sprintf("Unknown action type: %s", action.ActionType)
	}

	if err := w.store.ResolvePendingAction(id, store.StatusApproved, time.Now()); err != nil {
		return result, err
	}
	if action.MemoryID != nil {
		// The memory row may be missing; the approval itself stands.
		_ = w.store.UpdateMemoryOutcome(*action.MemoryID, store.StatusApproved, "")
	}
	return result, nil
}

// Reject transitions the action to rejected and records the operator's
// reason as human feedback on the linked memory row.
func (w *Workflow) Reject(id int64, reason string) error {
	action, err := w.store.GetPendingAction(id)
	if err != nil {
		return err
	}
	if err := w.store.ResolvePendingAction(id, store.StatusRejected, time.Now()); err != nil {
		return err
	}
	if action.MemoryID != nil {
		_ = w.store.UpdateMemoryOutcome(*action.MemoryID, store.StatusRejected, reason)
	}
	return nil
}

// ApproveAll approves every currently pending action, accumulating
// per-id results. Each approval is independent: a failure stops the
// sweep but does not roll back earlier approvals.
func (w *Workflow) ApproveAll() ([]string, error) {
	pending, err := w.store.ListPendingActions()
	if err != nil {
		return nil, err
	}
	results := make([]string, 0, len(pending))
	for _, action := range pending {
		result, err := w.Approve(action.ID)
		if err != nil {
			return results, fmt.Errorf("action %d: %w", action.ID, err)
		}
		results = append(results, fmt.Sprintf("#%d: %s", action.ID, result))
	}
	return results, nil
}
