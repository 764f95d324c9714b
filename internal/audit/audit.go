// Package audit records a capped best-effort trail of commands and tool
// calls. Audit writes never fail a caller's operation.
package audit

import (
	"log/slog"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// MaxEntries is the retention cap; the oldest rows beyond it are pruned
// after each write.
const MaxEntries = 500

type Logger struct {
	store *store.Store
}

func NewLogger(st *store.Store) *Logger {
	return &Logger{store: st}
}

// Record writes one audit entry and prunes past the cap. Failures are
// logged and swallowed.
func (l *Logger) Record(entry store.AuditInput) {
	if err := l.store.InsertAuditEntry(entry); err != nil {
		slog.Debug("audit write failed", "error", err)
		return
	}
	if err := l.store.PruneAuditLog(MaxEntries); err != nil {
		slog.Debug("audit prune failed", "error", err)
	}
}

// Query returns matching entries, newest first.
func (l *Logger) Query(filter store.AuditFilter) ([]store.AuditEntry, error) {
	return l.store.QueryAuditLog(filter)
}
