package events

import (
	"fmt"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// TriggerResult names an agent that should run because an event fired.
type TriggerResult struct {
	EventID   int64  `json:"eventId"`
	EventType string `json:"eventType"`
	AgentName string `json:"agentName"`
	Status    string `json:"status"`
}

// Processor drains the unprocessed event queue and resolves hooks.
type Processor struct {
	store *store.Store
}

func NewProcessor(st *store.Store) *Processor {
	return &Processor{store: st}
}

// Process resolves hooks for every unprocessed event and returns one
// trigger per matched hook. Events with no hooks are consumed, not
// retried. Each event is marked processed exactly once, after all of its
// hooks have been resolved. Deduplication of triggers by agent name is
// the caller's job.
func (p *Processor) Process() ([]TriggerResult, error) {
	events, err := p.store.UnprocessedEvents()
	if err != nil {
		return nil, fmt.Errorf("load unprocessed events: %w", err)
	}

	var results []TriggerResult
	for _, event := range events {
		hooks, err := p.store.HooksFor(event.EventType)
		if err != nil {
			return results, err
		}

		for _, hook := range hooks {
			results = append(results, TriggerResult{
				EventID:   event.ID,
				EventType: event.EventType,
				AgentName: hook.AgentName,
				Status:    "triggered",
			})
		}

		if err := p.store.MarkEventProcessed(event.ID); err != nil {
			return results, err
		}
	}
	return results, nil
}

// DedupeByAgent collapses triggers so each agent appears once, keeping
// first-trigger order.
func DedupeByAgent(triggers []TriggerResult) []TriggerResult {
	seen := make(map[string]bool, len(triggers))
	out := make([]TriggerResult, 0, len(triggers))
	for _, t := range triggers {
		if seen[t.AgentName] {
			continue
		}
		seen[t.AgentName] = true
		out = append(out, t)
	}
	return out
}
