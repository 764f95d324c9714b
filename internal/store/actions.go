package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateActionInput carries the fields of a new pending action. AgentName,
// RunID and MemoryID are empty when a human proposes directly.
type CreateActionInput struct {
	ActionType string
	Payload    map[string]any
	Reasoning  string
	AgentName  string
	RunID      string
	MemoryID   *int64
}

// CreatePendingAction inserts a proposal in the pending state.
func (s *Store) CreatePendingAction(in CreateActionInput) (*PendingAction, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO pending_actions (action_type, payload, reasoning, status, agent_name, run_id, memory_id, created_at)
		 VALUES (?, ?, ?, 'pending', ?, ?, ?, ?)`,
		in.ActionType, marshalPayload(in.Payload), nullStr(in.Reasoning),
		nullStr(in.AgentName), nullStr(in.RunID), nullInt(in.MemoryID), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create pending action: %w", err)
	}
	id, _ := res.LastInsertId()
	return &PendingAction{
		ID:         id,
		ActionType: in.ActionType,
		Payload:    in.Payload,
		Reasoning:  in.Reasoning,
		Status:     StatusPending,
		AgentName:  in.AgentName,
		RunID:      in.RunID,
		MemoryID:   in.MemoryID,
		CreatedAt:  parseTime(ts),
	}, nil
}

// GetPendingAction returns an action by id regardless of status.
func (s *Store) GetPendingAction(id int64) (*PendingAction, error) {
	row := s.db.QueryRow(
		`SELECT id, action_type, payload, COALESCE(reasoning,''), status, resolved_at,
		        COALESCE(agent_name,''), COALESCE(run_id,''), memory_id, created_at
		 FROM pending_actions WHERE id = ?`,
		id,
	)
	a, err := scanPendingAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action %d: %w", id, ErrNotFound)
	}
	return a, err
}

// ListPendingActions returns every action still awaiting a decision.
func (s *Store) ListPendingActions() ([]PendingAction, error) {
	rows, err := s.db.Query(
		`SELECT id, action_type, payload, COALESCE(reasoning,''), status, resolved_at,
		        COALESCE(agent_name,''), COALESCE(run_id,''), memory_id, created_at
		 FROM pending_actions WHERE status = 'pending' ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []PendingAction
	for rows.Next() {
		a, err := scanPendingAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// CountPendingActions returns the number of actions in the pending state.
func (s *Store) CountPendingActions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_actions WHERE status = 'pending'`).Scan(&n)
	return n, err
}

// ResolvePendingAction transitions pending → approved|rejected. The guard
// on status in the WHERE clause keeps the transition monotonic even under
// concurrent resolvers.
func (s *Store) ResolvePendingAction(id int64, status string, resolvedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE pending_actions SET status = ?, resolved_at = ? WHERE id = ? AND status = 'pending'`,
		status, formatTime(resolvedAt), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := s.GetPendingAction(id)
		if err != nil {
			return err
		}
		return fmt.Errorf("action %d is already %s: %w", id, a.Status, ErrConflict)
	}
	return nil
}

func scanPendingAction(row rowScanner) (*PendingAction, error) {
	var (
		a        PendingAction
		payload  string
		resolved sql.NullString
		memoryID sql.NullInt64
		created  string
	)
	if err := row.Scan(&a.ID, &a.ActionType, &payload, &a.Reasoning, &a.Status, &resolved, &a.AgentName, &a.RunID, &memoryID, &created); err != nil {
		return nil, err
	}
	a.Payload = unmarshalPayload(payload)
	a.ResolvedAt = parseTimePtr(resolved)
	a.MemoryID = intPtr(memoryID)
	a.CreatedAt = parseTime(created)
	return &a, nil
}
