package store

import (
	"database/sql"
	"fmt"
)

// MemoryInput carries a new agent memory row.
type MemoryInput struct {
	AgentName  string
	RunID      string
	ContactID  *int64
	DealID     *int64
	ActionType string
	Payload    map[string]any
	Reasoning  string
}

// MemoryFilter narrows a recall query. Zero values mean "any".
type MemoryFilter struct {
	AgentName string
	ContactID *int64
	DealID    *int64
	Outcome   string
	Limit     int
}

// RecordMemory appends a memory row with a pending outcome.
func (s *Store) RecordMemory(in MemoryInput) (*AgentMemory, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO agent_memory (agent_name, run_id, contact_id, deal_id, action_type, payload, reasoning, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		in.AgentName, in.RunID, nullInt(in.ContactID), nullInt(in.DealID),
		in.ActionType, marshalPayload(in.Payload), nullStr(in.Reasoning), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("record memory: %w", err)
	}
	id, _ := res.LastInsertId()
	return &AgentMemory{
		ID:         id,
		AgentName:  in.AgentName,
		RunID:      in.RunID,
		ContactID:  in.ContactID,
		DealID:     in.DealID,
		ActionType: in.ActionType,
		Payload:    in.Payload,
		Reasoning:  in.Reasoning,
		Outcome:    StatusPending,
		CreatedAt:  parseTime(ts),
	}, nil
}

// RecallMemory returns memory rows matching the filter, newest first.
func (s *Store) RecallMemory(f MemoryFilter) ([]AgentMemory, error) {
	query := `SELECT id, agent_name, run_id, contact_id, deal_id, action_type, payload,
	                 COALESCE(reasoning,''), outcome, COALESCE(human_feedback,''), created_at
	          FROM agent_memory WHERE 1=1`
	args := []any{}
	if f.AgentName != "" {
		query += " AND agent_name = ?"
		args = append(args, f.AgentName)
	}
	if f.ContactID != nil {
		query += " AND contact_id = ?"
		args = append(args, *f.ContactID)
	}
	if f.DealID != nil {
		query += " AND deal_id = ?"
		args = append(args, *f.DealID)
	}
	if f.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, f.Outcome)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []AgentMemory
	for rows.Next() {
		var (
			m         AgentMemory
			contactID sql.NullInt64
			dealID    sql.NullInt64
			payload   string
			created   string
		)
		if err := rows.Scan(&m.ID, &m.AgentName, &m.RunID, &contactID, &dealID, &m.ActionType, &payload, &m.Reasoning, &m.Outcome, &m.HumanFeedback, &created); err != nil {
			return nil, err
		}
		m.ContactID = intPtr(contactID)
		m.DealID = intPtr(dealID)
		m.Payload = unmarshalPayload(payload)
		m.CreatedAt = parseTime(created)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// UpdateMemoryOutcome writes the human decision back onto a memory row.
func (s *Store) UpdateMemoryOutcome(id int64, outcome, humanFeedback string) error {
	res, err := s.db.Exec(
		`UPDATE agent_memory SET outcome = ?, human_feedback = ? WHERE id = ?`,
		outcome, nullStr(humanFeedback), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory %d: %w", id, ErrNotFound)
	}
	return nil
}
