package events

import (
	"testing"
)

func TestProcessTriggersHookAndMarksProcessed(t *testing.T) {
	st := newTestStore(t)

	ev, err := st.EmitEvent(EventContactStale, "contact", 7, nil)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := st.AddHook(EventContactStale, "follow-up"); err != nil {
		t.Fatalf("add hook: %v", err)
	}

	triggers, err := NewProcessor(st).Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("got %d triggers, want 1", len(triggers))
	}
	trig := triggers[0]
	if trig.EventID != ev.ID || trig.EventType != EventContactStale || trig.AgentName != "follow-up" || trig.Status != "triggered" {
		t.Fatalf("unexpected trigger: %+v", trig)
	}

	unprocessed, err := st.UnprocessedEvents()
	if err != nil {
		t.Fatalf("unprocessed: %v", err)
	}
	if len(unprocessed) != 0 {
		t.Fatal("event not marked processed")
	}
}

func TestProcessConsumesHooklessEvents(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.EmitEvent("deal_closed", "deal", 1, nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	triggers, err := NewProcessor(st).Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(triggers) != 0 {
		t.Fatalf("hookless event produced triggers: %+v", triggers)
	}

	// Consumed, not retried.
	unprocessed, _ := st.UnprocessedEvents()
	if len(unprocessed) != 0 {
		t.Fatal("hookless event must still be marked processed")
	}
}

func TestProcessMultipleHooksOneEvent(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.EmitEvent(EventTaskOverdue, "task", 3, nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	for _, agent := range []string{"follow-up", "digest"} {
		if _, err := st.AddHook(EventTaskOverdue, agent); err != nil {
			t.Fatalf("add hook %s: %v", agent, err)
		}
	}

	triggers, err := NewProcessor(st).Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(triggers) != 2 {
		t.Fatalf("got %d triggers, want one per hook", len(triggers))
	}

	// Processed exactly once despite two hooks.
	unprocessed, _ := st.UnprocessedEvents()
	if len(unprocessed) != 0 {
		t.Fatal("event not marked processed")
	}
}

func TestDedupeByAgentKeepsFirstTrigger(t *testing.T) {
	triggers := []TriggerResult{
		{EventID: 1, EventType: "contact_stale", AgentName: "follow-up", Status: "triggered"},
		{EventID: 2, EventType: "task_overdue", AgentName: "digest", Status: "triggered"},
		{EventID: 3, EventType: "task_overdue", AgentName: "follow-up", Status: "triggered"},
	}

	deduped := DedupeByAgent(triggers)
	if len(deduped) != 2 {
		t.Fatalf("got %d, want 2", len(deduped))
	}
	if deduped[0].EventID != 1 || deduped[1].EventID != 2 {
		t.Fatalf("dedupe reordered or dropped wrong entries: %+v", deduped)
	}
}
