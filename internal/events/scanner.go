// Package events turns elapsed time and domain changes into agent
// triggers: a scanner that detects stale/overdue conditions and a
// processor that routes unprocessed events through the hook registry.
package events

import (
	"fmt"
	"log/slog"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// DefaultStaleDays is how long a contact may go untouched before the
// scanner emits a contact_stale event.
const DefaultStaleDays = 14

const (
	EventContactStale = "contact_stale"
	EventTaskOverdue  = "task_overdue"
)

// Scanner inspects the domain store for time-based conditions and emits
// deduplicated events.
type Scanner struct {
	store     *store.Store
	staleDays int
}

// NewScanner creates a scanner with the given contact staleness
// threshold; zero or negative means the default.
func NewScanner(st *store.Store, staleDays int) *Scanner {
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	return &Scanner{store: st, staleDays: staleDays}
}

// Scan emits one event per qualifying entity and returns how many were
// emitted. An entity with an unprocessed event of the same type already
// on the log is skipped, so back-to-back scans are idempotent.
func (s *Scanner) Scan() (int, error) {
	emitted := 0

	stale, err := s.store.StaleContacts(s.staleDays)
	if err != nil {
		return emitted, fmt.Errorf("scan stale contacts: %w", err)
	}
	for _, contact := range stale {
		exists, err := s.store.HasUnprocessedEvent(EventContactStale, contact.ID)
		if err != nil {
			return emitted, err
		}
		if exists {
			continue
		}
		_, err = s.store.EmitEvent(EventContactStale, "contact", contact.ID, map[string]any{
			"name":         contact.Name,
			"last_updated": contact.UpdatedAt,
		})
		if err != nil {
			return emitted, err
		}
		emitted++
	}

	overdue, err := s.store.OverdueTasks()
	if err != nil {
		return emitted, fmt.Errorf("scan overdue tasks: %w", err)
	}
	for _, task := range overdue {
		exists, err := s.store.HasUnprocessedEvent(EventTaskOverdue, task.ID)
		if err != nil {
			return emitted, err
		}
		if exists {
			continue
		}
		_, err = s.store.EmitEvent(EventTaskOverdue, "task", task.ID, map[string]any{
			"title": task.Title,
			"due":   task.Due,
		})
		if err != nil {
			return emitted, err
		}
		emitted++
	}

	slog.Debug("time-based scan complete", "emitted", emitted)
	return emitted, nil
}
