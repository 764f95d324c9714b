package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddSchedule creates a schedule for an agent. Each agent name may carry
// at most one schedule.
func (s *Store) AddSchedule(agentName, interval string) (*Schedule, error) {
	var existing int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM schedules WHERE agent_name = ?`, agentName).Scan(&existing); err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("schedule for %q already exists: %w", agentName, ErrConflict)
	}
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO schedules (agent_name, interval, enabled, created_at) VALUES (?, ?, 1, ?)`,
		agentName, interval, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("add schedule: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Schedule{ID: id, AgentName: agentName, Interval: interval, Enabled: true, CreatedAt: parseTime(ts)}, nil
}

// RemoveSchedule deletes the schedule for an agent.
func (s *Store) RemoveSchedule(agentName string) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE agent_name = ?`, agentName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no schedule for %q: %w", agentName, ErrNotFound)
	}
	return nil
}

// GetSchedule returns the schedule for an agent name.
func (s *Store) GetSchedule(agentName string) (*Schedule, error) {
	row := s.db.QueryRow(
		`SELECT id, agent_name, interval, enabled, last_run_at, created_at FROM schedules WHERE agent_name = ?`,
		agentName,
	)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no schedule for %q: %w", agentName, ErrNotFound)
	}
	return sched, err
}

// ListSchedules returns every schedule.
func (s *Store) ListSchedules() ([]Schedule, error) {
	rows, err := s.db.Query(
		`SELECT id, agent_name, interval, enabled, last_run_at, created_at FROM schedules ORDER BY agent_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		var (
			sc      Schedule
			lastRun sql.NullString
			created string
		)
		if err := rows.Scan(&sc.ID, &sc.AgentName, &sc.Interval, &sc.Enabled, &lastRun, &created); err != nil {
			return nil, err
		}
		sc.LastRunAt = parseTimePtr(lastRun)
		sc.CreatedAt = parseTime(created)
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var (
		sc      Schedule
		lastRun sql.NullString
		created string
	)
	if err := row.Scan(&sc.ID, &sc.AgentName, &sc.Interval, &sc.Enabled, &lastRun, &created); err != nil {
		return nil, err
	}
	sc.LastRunAt = parseTimePtr(lastRun)
	sc.CreatedAt = parseTime(created)
	return &sc, nil
}

// TouchSchedule advances last_run_at. Called after every attempted run,
// successful or not, so a failing agent cannot retry-storm.
func (s *Store) TouchSchedule(id int64, t time.Time) error {
	_, err := s.db.Exec(`UPDATE schedules SET last_run_at = ? WHERE id = ?`, formatTime(t), id)
	return err
}

// CreateScheduleLog opens a run log row in the running state.
func (s *Store) CreateScheduleLog(scheduleID int64, agentName string, started time.Time) (*ScheduleLog, error) {
	ts := now()
	res, err := s.db.Exec(
		`INSERT INTO schedule_logs (schedule_id, agent_name, started_at, status, created_at) VALUES (?, ?, ?, 'running', ?)`,
		scheduleID, agentName, formatTime(started), ts,
	)
	if err != nil {
		return nil, fmt.Errorf("create schedule log: %w", err)
	}
	id, _ := res.LastInsertId()
	return &ScheduleLog{
		ID:         id,
		ScheduleID: scheduleID,
		AgentName:  agentName,
		StartedAt:  started,
		Status:     RunStatusRunning,
		CreatedAt:  parseTime(ts),
	}, nil
}

// FinishScheduleLog closes a run log row as completed or failed.
func (s *Store) FinishScheduleLog(id int64, status, output string, actionsProposed int, finished time.Time) error {
	_, err := s.db.Exec(
		`UPDATE schedule_logs SET status = ?, output = ?, actions_proposed = ?, finished_at = ? WHERE id = ?`,
		status, output, actionsProposed, formatTime(finished), id,
	)
	return err
}

// ScheduleLogs returns the most recent run logs, newest first.
func (s *Store) ScheduleLogs(limit int) ([]ScheduleLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, schedule_id, agent_name, started_at, finished_at, status, COALESCE(output,''), actions_proposed, created_at
		 FROM schedule_logs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ScheduleLog
	for rows.Next() {
		var (
			l        ScheduleLog
			started  string
			finished sql.NullString
			created  string
		)
		if err := rows.Scan(&l.ID, &l.ScheduleID, &l.AgentName, &started, &finished, &l.Status, &l.Output, &l.ActionsProposed, &created); err != nil {
			return nil, err
		}
		l.StartedAt = parseTime(started)
		l.FinishedAt = parseTimePtr(finished)
		l.CreatedAt = parseTime(created)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
