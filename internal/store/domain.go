package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// The domain operations below are the narrow slice of CRM data access the
// automation layer needs: what the scanner polls, what the local toolset
// reads, and what approved actions mutate. Full entity management is a
// separate surface.

// CreateContact inserts a contact. Used by tests and import tooling.
func (s *Store) CreateContact(name, email, role, org string) (*Contact, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO contacts (name, email, role, org, warmth, created_at, updated_at) VALUES (?, ?, ?, ?, 'cold', ?, ?)`,
		name, nullStr(email), nullStr(role), nullStr(org), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Contact{ID: id, Name: name, Email: email, Role: role, Org: org, Warmth: "cold", CreatedAt: parseTime(ts), UpdatedAt: parseTime(ts)}, nil
}

// GetContact returns a contact by id.
func (s *Store) GetContact(id int64) (*Contact, error) {
	row := s.db.QueryRow(
		`SELECT id, name, COALESCE(email,''), COALESCE(role,''), COALESCE(org,''), warmth, created_at, updated_at
		 FROM contacts WHERE id = ?`,
		id,
	)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return c, err
}

// SearchContacts matches name or email substrings, optionally filtered by
// warmth.
func (s *Store) SearchContacts(query, warmth string) ([]Contact, error) {
	q := `SELECT id, name, COALESCE(email,''), COALESCE(role,''), COALESCE(org,''), warmth, created_at, updated_at
	      FROM contacts WHERE 1=1`
	args := []any{}
	if query != "" {
		q += " AND (name LIKE ? COLLATE NOCASE OR email LIKE ? COLLATE NOCASE)"
		pat := "%" + query + "%"
		args = append(args, pat, pat)
	}
	if warmth != "" {
		q += " AND warmth = ?"
		args = append(args, warmth)
	}
	q += " ORDER BY name"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContacts(rows)
}

// StaleContacts returns contacts whose updated_at is at least days old.
func (s *Store) StaleContacts(days int) ([]Contact, error) {
	cutoff := formatTime(time.Now().AddDate(0, 0, -days))
	rows, err := s.db.Query(
		`SELECT id, name, COALESCE(email,''), COALESCE(role,''), COALESCE(org,''), warmth, created_at, updated_at
		 FROM contacts WHERE updated_at <= ? ORDER BY updated_at`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContacts(rows)
}

// UpdateContact applies the non-empty fields to a contact and bumps
// updated_at.
func (s *Store) UpdateContact(id int64, role, warmth, org string) error {
	sets := []string{"updated_at = ?"}
	args := []any{now()}
	if role != "" {
		sets = append(sets, "role = ?")
		args = append(args, role)
	}
	if warmth != "" {
		sets = append(sets, "warmth = ?")
		args = append(args, warmth)
	}
	if org != "" {
		sets = append(sets, "org = ?")
		args = append(args, org)
	}
	args = append(args, id)
	res, err := s.db.Exec(`UPDATE contacts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return nil
}

// TouchContact bumps a contact's updated_at so it no longer reads stale.
func (s *Store) TouchContact(id int64) error {
	_, err := s.db.Exec(`UPDATE contacts SET updated_at = ? WHERE id = ?`, now(), id)
	return err
}

// SetContactWarmth validates nothing; enum checking belongs to the action
// handler's Validate.
func (s *Store) SetContactWarmth(id int64, warmth string) error {
	res, err := s.db.Exec(`UPDATE contacts SET warmth = ?, updated_at = ? WHERE id = ?`, warmth, now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanContact(row rowScanner) (*Contact, error) {
	var (
		c                Contact
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.Org, &c.Warmth, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

func scanContacts(rows *sql.Rows) ([]Contact, error) {
	var contacts []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// CreateDeal inserts a deal in the lead stage.
func (s *Store) CreateDeal(title string, contactID *int64, value int64) (*Deal, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO deals (title, contact_id, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		title, nullInt(contactID), value, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Deal{ID: id, Title: title, ContactID: contactID, Value: value, Currency: "USD", Stage: "lead", Priority: "medium", CreatedAt: parseTime(ts), UpdatedAt: parseTime(ts)}, nil
}

// GetDeal returns a deal by id.
func (s *Store) GetDeal(id int64) (*Deal, error) {
	row := s.db.QueryRow(
		`SELECT id, title, contact_id, value, currency, stage, priority, created_at, updated_at FROM deals WHERE id = ?`,
		id,
	)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deal %d: %w", id, ErrNotFound)
	}
	return d, err
}

// ListDeals filters by stage and priority; empty strings mean any.
func (s *Store) ListDeals(stage, priority string) ([]Deal, error) {
	q := `SELECT id, title, contact_id, value, currency, stage, priority, created_at, updated_at FROM deals WHERE 1=1`
	args := []any{}
	if stage != "" {
		q += " AND stage = ?"
		args = append(args, stage)
	}
	if priority != "" {
		q += " AND priority = ?"
		args = append(args, priority)
	}
	q += " ORDER BY id"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

// SetDealStage moves a deal to a new stage.
func (s *Store) SetDealStage(id int64, stage string) error {
	res, err := s.db.Exec(`UPDATE deals SET stage = ?, updated_at = ? WHERE id = ?`, stage, now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deal %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetDealPriority sets a deal's priority.
func (s *Store) SetDealPriority(id int64, priority string) error {
	res, err := s.db.Exec(`UPDATE deals SET priority = ?, updated_at = ? WHERE id = ?`, priority, now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deal %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanDeal(row rowScanner) (*Deal, error) {
	var (
		d                Deal
		contactID        sql.NullInt64
		created, updated string
	)
	if err := row.Scan(&d.ID, &d.Title, &contactID, &d.Value, &d.Currency, &d.Stage, &d.Priority, &created, &updated); err != nil {
		return nil, err
	}
	d.ContactID = intPtr(contactID)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

// CreateTask inserts an open task.
func (s *Store) CreateTask(title string, contactID, dealID *int64, due string) (*Task, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO tasks (title, contact_id, deal_id, due, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		title, nullInt(contactID), nullInt(dealID), nullStr(due), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Task{ID: id, Title: title, ContactID: contactID, DealID: dealID, Due: due, CreatedAt: parseTime(ts), UpdatedAt: parseTime(ts)}, nil
}

// CompleteTask marks a task done.
func (s *Store) CompleteTask(id int64) error {
	ts := now()
	res, err := s.db.Exec(
		`UPDATE tasks SET completed = 1, completed_at = ?, updated_at = ? WHERE id = ?`,
		ts, ts, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListTasks returns open tasks; completed ones are excluded.
func (s *Store) ListTasks() ([]Task, error) {
	rows, err := s.db.Query(
		`SELECT id, title, contact_id, deal_id, COALESCE(due,''), completed, completed_at, created_at, updated_at
		 FROM tasks WHERE completed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// OverdueTasks returns open tasks whose due date is in the past.
func (s *Store) OverdueTasks() ([]Task, error) {
	today := time.Now().UTC().Format("2006-01-02")
	rows, err := s.db.Query(
		`SELECT id, title, contact_id, deal_id, COALESCE(due,''), completed, completed_at, created_at, updated_at
		 FROM tasks WHERE completed = 0 AND due IS NOT NULL AND due != '' AND due < ? ORDER BY due`,
		today,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var (
			t                 Task
			contactID, dealID sql.NullInt64
			completedAt       sql.NullString
			created, updated  string
		)
		if err := rows.Scan(&t.ID, &t.Title, &contactID, &dealID, &t.Due, &t.Completed, &completedAt, &created, &updated); err != nil {
			return nil, err
		}
		t.ContactID = intPtr(contactID)
		t.DealID = intPtr(dealID)
		t.CompletedAt = parseTimePtr(completedAt)
		t.CreatedAt = parseTime(created)
		t.UpdatedAt = parseTime(updated)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// InteractionInput carries a new interaction row.
type InteractionInput struct {
	ContactID *int64
	DealID    *int64
	Type      string
	Direction string
	Subject   string
	Body      string
	MessageID string
}

// InsertInteraction logs a touchpoint.
func (s *Store) InsertInteraction(in InteractionInput) (*Interaction, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO interactions (contact_id, deal_id, type, direction, subject, body, message_id, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(in.ContactID), nullInt(in.DealID), in.Type, nullStr(in.Direction),
		nullStr(in.Subject), nullStr(in.Body), nullStr(in.MessageID), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert interaction: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Interaction{
		ID: id, ContactID: in.ContactID, DealID: in.DealID, Type: in.Type,
		Direction: in.Direction, Subject: in.Subject, Body: in.Body,
		MessageID: in.MessageID, OccurredAt: parseTime(ts), CreatedAt: parseTime(ts),
	}, nil
}

// ListInteractions returns a contact's interactions, newest first.
func (s *Store) ListInteractions(contactID int64, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, contact_id, deal_id, type, COALESCE(direction,''), COALESCE(subject,''), COALESCE(body,''),
		        COALESCE(message_id,''), occurred_at, created_at
		 FROM interactions WHERE contact_id = ? ORDER BY id DESC LIMIT ?`,
		contactID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []Interaction
	for rows.Next() {
		var (
			i                 Interaction
			contact, deal     sql.NullInt64
			occurred, created string
		)
		if err := rows.Scan(&i.ID, &contact, &deal, &i.Type, &i.Direction, &i.Subject, &i.Body, &i.MessageID, &occurred, &created); err != nil {
			return nil, err
		}
		i.ContactID = intPtr(contact)
		i.DealID = intPtr(deal)
		i.OccurredAt = parseTime(occurred)
		i.CreatedAt = parseTime(created)
		interactions = append(interactions, i)
	}
	return interactions, rows.Err()
}

// CreateEdge links two entities in the relationship graph.
func (s *Store) CreateEdge(fromType string, fromID int64, toType string, toID int64, relation string) (*Edge, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO edges (from_type, from_id, to_type, to_id, relation, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		fromType, fromID, toType, toID, relation, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create edge: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Edge{ID: id, FromType: fromType, FromID: fromID, ToType: toType, ToID: toID, Relation: relation, CreatedAt: parseTime(ts)}, nil
}

// Dashboard summarizes pipeline health for the get_dashboard tool.
type Dashboard struct {
	DealsByStage   map[string]int `json:"deals_by_stage"`
	OverdueTasks   int            `json:"overdue_tasks"`
	StaleContacts  int            `json:"stale_contacts"`
	PendingActions int            `json:"pending_actions"`
}

// GetDashboard builds the summary counts.
func (s *Store) GetDashboard(staleDays int) (*Dashboard, error) {
	d := &Dashboard{DealsByStage: map[string]int{}}

	rows, err := s.db.Query(`SELECT stage, COUNT(*) FROM deals GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			rows.Close()
			return nil, err
		}
		d.DealsByStage[stage] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	overdue, err := s.OverdueTasks()
	if err != nil {
		return nil, err
	}
	d.OverdueTasks = len(overdue)

	stale, err := s.StaleContacts(staleDays)
	if err != nil {
		return nil, err
	}
	d.StaleContacts = len(stale)

	pending, err := s.CountPendingActions()
	if err != nil {
		return nil, err
	}
	d.PendingActions = pending
	return d, nil
}
