package store

// AuditInput carries a new audit log row.
type AuditInput struct {
	Actor      string
	Command    string
	Args       string
	Result     string
	Error      string
	DurationMs int64
}

// InsertAuditEntry appends one row to the audit log. Pruning past the cap
// is the audit logger's job.
func (s *Store) InsertAuditEntry(in AuditInput) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (actor, command, args, result, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Actor, in.Command, nullStr(in.Args), nullStr(in.Result), nullStr(in.Error), in.DurationMs, now(),
	)
	return err
}

// CountAuditEntries returns the current audit log size.
func (s *Store) CountAuditEntries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&n)
	return n, err
}

// PruneAuditLog deletes the oldest rows beyond max.
func (s *Store) PruneAuditLog(max int) error {
	_, err := s.db.Exec(
		`DELETE FROM audit_log WHERE id NOT IN (SELECT id FROM audit_log ORDER BY id DESC LIMIT ?)`,
		max,
	)
	return err
}

// AuditFilter narrows an audit query by substring match.
type AuditFilter struct {
	Actor   string
	Command string
	Last    int
}

// QueryAuditLog returns the most recent entries matching the filter,
// newest first.
func (s *Store) QueryAuditLog(f AuditFilter) ([]AuditEntry, error) {
	query := `SELECT id, actor, command, COALESCE(args,''), COALESCE(result,''), COALESCE(error,''),
	                 COALESCE(duration_ms,0), created_at
	          FROM audit_log WHERE 1=1`
	args := []any{}
	if f.Actor != "" {
		query += " AND actor LIKE ?"
		args = append(args, "%"+f.Actor+"%")
	}
	if f.Command != "" {
		query += " AND command LIKE ?"
		args = append(args, "%"+f.Command+"%")
	}
	limit := f.Last
	if limit <= 0 {
		limit = 20
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e       AuditEntry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Command, &e.Args, &e.Result, &e.Error, &e.DurationMs, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
