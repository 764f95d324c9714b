// Package schedule tracks per-agent run cadences and drives the due
// ones through the agent runner. A file lock serializes overlapping
// passes (cron firing while a manual run is active).
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipeline-crm/pipeline/internal/agent"
	"github.com/pipeline-crm/pipeline/internal/agents"
	"github.com/pipeline-crm/pipeline/internal/approval"
	"github.com/pipeline-crm/pipeline/internal/store"
)

// Interval durations. A "weekdays" schedule runs daily but is skipped
// on Saturday and Sunday.
var intervals = map[string]time.Duration{
	"hourly":   time.Hour,
	"daily":    24 * time.Hour,
	"weekdays": 24 * time.Hour,
	"weekly":   7 * 24 * time.Hour,
}

// Intervals lists the recognized schedule cadences.
func Intervals() []string {
	return []string{"hourly", "daily", "weekdays", "weekly"}
}

// ValidInterval reports whether name is a recognized schedule interval.
func ValidInterval(name string) bool {
	_, ok := intervals[name]
	return ok
}

// IsDue reports whether a schedule should run at now. A schedule that
// has never run is always due; one outside its interval, disabled, or
// hitting a weekend on a weekdays cadence is not.
func IsDue(s store.Schedule, now time.Time) bool {
	if !s.Enabled {
		return false
	}
	interval, ok := intervals[s.Interval]
	if !ok {
		return false
	}
	if s.Interval == "weekdays" {
		wd := now.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if s.LastRunAt == nil {
		return true
	}
	return now.Sub(*s.LastRunAt) >= interval
}

// Notifier delivers a run summary out of band.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler runs due schedules sequentially with per-agent failure
// isolation.
type Scheduler struct {
	store    *store.Store
	runner   *agent.Runner
	workflow *approval.Workflow
	notifier Notifier

	lockPath    string
	autoApprove bool
}

type Options struct {
	LockPath    string
	AutoApprove bool
	Notifier    Notifier
}

func NewScheduler(st *store.Store, runner *agent.Runner, workflow *approval.Workflow, opts Options) *Scheduler {
	return &Scheduler{
		store:       st,
		runner:      runner,
		workflow:    workflow,
		notifier:    opts.Notifier,
		lockPath:    opts.LockPath,
		autoApprove: opts.AutoApprove,
	}
}

// RunResult records the outcome of one scheduled agent execution.
type RunResult struct {
	AgentName       string `json:"agentName"`
	RunID           string `json:"runId,omitempty"`
	Status          string `json:"status"`
	ActionsProposed int    `json:"actionsProposed"`
	Output          string `json:"output,omitempty"`
}

// RunDue executes every due schedule in sequence. When forcedAgent is
// set, the due check is bypassed and only that agent's schedule runs;
// it is NotFound to force an agent with no schedule. A failed run is
// recorded and the pass continues; last_run_at advances either way so
// a crashing agent does not re-fire on every tick.
func (s *Scheduler) RunDue(ctx context.Context, forcedAgent string) ([]RunResult, error) {
	if s.lockPath != "" {
		lock := NewFileLock(s.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire scheduler lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("another scheduler pass is already running")
		}
		defer lock.Unlock()
	}

	var due []store.Schedule
	if forcedAgent != "" {
		sched, err := s.store.GetSchedule(forcedAgent)
		if err != nil {
			return nil, err
		}
		due = []store.Schedule{*sched}
	} else {
		schedules, err := s.store.ListSchedules()
		if err != nil {
			return nil, fmt.Errorf("list schedules: %w", err)
		}
		now := time.Now()
		for _, sched := range schedules {
			if IsDue(sched, now) {
				due = append(due, sched)
			}
		}
	}

	var results []RunResult
	for _, sched := range due {
		def, ok := agents.Get(sched.AgentName)
		if !ok {
			slog.Warn("scheduled agent not found", "agent", sched.AgentName)
			continue
		}
		results = append(results, s.runOne(ctx, sched, def))
	}

	s.notify(ctx, results)
	return results, nil
}

func (s *Scheduler) runOne(ctx context.Context, sched store.Schedule, def agents.Definition) RunResult {
	res := RunResult{AgentName: sched.AgentName}

	logEntry, err := s.store.CreateScheduleLog(sched.ID, sched.AgentName, time.Now())
	if err != nil {
		slog.Warn("schedule log create failed", "agent", sched.AgentName, "error", err)
	}

	runOut, err := s.runner.Run(ctx, def, fmt.Sprintf("Run scheduled %s agent.", sched.AgentName))
	if err != nil {
		res.Status = store.RunStatusFailed
		res.Output = err.Error()
		if logEntry != nil {
			_ = s.store.FinishScheduleLog(logEntry.ID, store.RunStatusFailed, err.Error(), 0, time.Now())
		}
		if terr := s.store.TouchSchedule(sched.ID, time.Now()); terr != nil {
			slog.Warn("schedule touch failed", "agent", sched.AgentName, "error", terr)
		}
		slog.Error("scheduled run failed", "agent", sched.AgentName, "error", err)
		return res
	}

	pending, err := s.store.CountPendingActions()
	if err != nil {
		slog.Warn("pending count failed", "error", err)
	}

	if s.autoApprove && pending > 0 {
		if _, err := s.workflow.ApproveAll(); err != nil {
			slog.Warn("auto-approve stopped early", "error", err)
		}
	}

	if err := s.store.TouchSchedule(sched.ID, time.Now()); err != nil {
		slog.Warn("schedule touch failed", "agent", sched.AgentName, "error", err)
	}

	res.Status = store.RunStatusCompleted
	res.RunID = runOut.RunID
	res.ActionsProposed = pending
	res.Output = runOut.Output
	if logEntry != nil {
		_ = s.store.FinishScheduleLog(logEntry.ID, store.RunStatusCompleted, runOut.Output, pending, time.Now())
	}
	return res
}

func (s *Scheduler) notify(ctx context.Context, results []RunResult) {
	if s.notifier == nil || len(results) == 0 {
		return
	}
	text := fmt.Sprintf("Pipeline scheduler: %d agent(s) ran.", len(results))
	for _, res := range results {
		if res.Status == store.RunStatusFailed {
			text += fmt.Sprintf("\n- %s failed: %s", res.AgentName, res.Output)
		} else {
			text += fmt.Sprintf("\n- %s: %d action(s) awaiting approval", res.AgentName, res.ActionsProposed)
		}
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		slog.Warn("notification failed", "error", err)
	}
}
