package store

import (
	"database/sql"
	"fmt"
)

// EmitEvent appends a new unprocessed event to the event log.
func (s *Store) EmitEvent(eventType, entityType string, entityID int64, payload map[string]any) (*Event, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO events (event_type, entity_type, entity_id, payload, processed, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		eventType, entityType, entityID, marshalPayload(payload), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("emit event: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Event{
		ID:         id,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		CreatedAt:  parseTime(ts),
	}, nil
}

// UnprocessedEvents returns every event whose processed flag is still false,
// oldest first.
func (s *Store) UnprocessedEvents() ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, event_type, entity_type, entity_id, payload, processed, created_at
		 FROM events WHERE processed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// MarkEventProcessed flips the processed flag. The flag only ever moves
// false to true.
func (s *Store) MarkEventProcessed(id int64) error {
	res, err := s.db.Exec(`UPDATE events SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return nil
}

// HasUnprocessedEvent reports whether an unhandled event already exists for
// the (event_type, entity_id) pair. The scanner's dedup key.
func (s *Store) HasUnprocessedEvent(eventType string, entityID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE event_type = ? AND entity_id = ? AND processed = 0`,
		eventType, entityID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			e       Event
			payload string
			created string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.EntityType, &e.EntityID, &payload, &e.Processed, &created); err != nil {
			return nil, err
		}
		e.Payload = unmarshalPayload(payload)
		e.CreatedAt = parseTime(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AddHook subscribes an agent to an event type. Duplicate pairs are
// allowed; insert is unconditional.
func (s *Store) AddHook(eventType, agentName string) (*EventHook, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO event_hooks (event_type, agent_name, enabled, created_at) VALUES (?, ?, 1, ?)`,
		eventType, agentName, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("add hook: %w", err)
	}
	id, _ := res.LastInsertId()
	return &EventHook{ID: id, EventType: eventType, AgentName: agentName, Enabled: true, CreatedAt: parseTime(ts)}, nil
}

// RemoveHook deletes the hook for the exact (event_type, agent_name) pair.
func (s *Store) RemoveHook(eventType, agentName string) error {
	res, err := s.db.Exec(
		`DELETE FROM event_hooks WHERE event_type = ? AND agent_name = ?`,
		eventType, agentName,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no hook for event %q and agent %q: %w", eventType, agentName, ErrNotFound)
	}
	return nil
}

// ListHooks returns every hook, enabled or not.
func (s *Store) ListHooks() ([]EventHook, error) {
	rows, err := s.db.Query(
		`SELECT id, event_type, agent_name, enabled, created_at FROM event_hooks ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHooks(rows)
}

// HooksFor returns the enabled hooks registered for an event type.
func (s *Store) HooksFor(eventType string) ([]EventHook, error) {
	rows, err := s.db.Query(
		`SELECT id, event_type, agent_name, enabled, created_at
		 FROM event_hooks WHERE event_type = ? AND enabled = 1 ORDER BY id`,
		eventType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHooks(rows)
}

func scanHooks(rows *sql.Rows) ([]EventHook, error) {
	var hooks []EventHook
	for rows.Next() {
		var (
			h       EventHook
			created string
		)
		if err := rows.Scan(&h.ID, &h.EventType, &h.AgentName, &h.Enabled, &created); err != nil {
			return nil, err
		}
		h.CreatedAt = parseTime(created)
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}
