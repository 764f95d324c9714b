package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pipeline.db")
	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func seedContact(t *testing.T, st *Store, name string) *Contact {
	t.Helper()
	c, err := st.CreateContact(name, name+"@example.com", "founder", "Acme")
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	return c
}

func seedDeal(t *testing.T, st *Store, title string) *Deal {
	t.Helper()
	d, err := st.CreateDeal(title, nil, 1000)
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	return d
}

func TestOpenAppliesSchema(t *testing.T) {
	st := newTestStore(t)

	// All automation tables answer queries after open.
	if _, err := st.UnprocessedEvents(); err != nil {
		t.Fatalf("events table missing: %v", err)
	}
	if _, err := st.ListSchedules(); err != nil {
		t.Fatalf("schedules table missing: %v", err)
	}
	if _, err := st.ListPendingActions(); err != nil {
		t.Fatalf("pending_actions table missing: %v", err)
	}
	if _, err := st.CountAuditEntries(); err != nil {
		t.Fatalf("audit_log table missing: %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	got := parseTime(formatTime(now))
	if !got.Equal(now) {
		t.Fatalf("time round trip: got %v want %v", got, now)
	}
}
