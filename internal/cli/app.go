package cli

import (
	"fmt"
	"path/filepath"

	"github.com/pipeline-crm/pipeline/internal/actions"
	"github.com/pipeline-crm/pipeline/internal/agent"
	"github.com/pipeline-crm/pipeline/internal/approval"
	"github.com/pipeline-crm/pipeline/internal/audit"
	"github.com/pipeline-crm/pipeline/internal/config"
	"github.com/pipeline-crm/pipeline/internal/integrations"
	"github.com/pipeline-crm/pipeline/internal/notify"
	"github.com/pipeline-crm/pipeline/internal/provider"
	"github.com/pipeline-crm/pipeline/internal/schedule"
	"github.com/pipeline-crm/pipeline/internal/store"
)

// app bundles the collaborators a command needs. Everything hangs off
// one store handle, opened here and closed by the command.
type app struct {
	cfg      *config.Config
	store    *store.Store
	registry *actions.Registry
	workflow *approval.Workflow
	audit    *audit.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.Pipeline.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	registry := actions.NewRegistry(st, actions.NoMailer{}, cfg.Pipeline.Stages)
	return &app{
		cfg:      cfg,
		store:    st,
		registry: registry,
		workflow: approval.NewWorkflow(st, registry),
		audit:    audit.NewLogger(st),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// runner builds the agent runner with the configured provider and any
// enabled tool servers.
func (a *app) runner() *agent.Runner {
	prov := provider.NewOpenAIProvider(
		a.cfg.Providers.OpenAI.APIKey,
		a.cfg.Providers.OpenAI.APIBase,
		a.cfg.Agent.Model,
	)
	var servers []*integrations.Client
	for _, s := range a.cfg.Integrations.Servers {
		if !s.Enabled {
			continue
		}
		servers = append(servers, integrations.NewClient(s.Name, s.URL, s.Token))
	}
	runner := agent.NewRunner(a.store, prov, a.registry, a.audit, servers, agent.Config{
		Model:         a.cfg.Agent.Model,
		MaxIterations: a.cfg.Agent.MaxIterations,
	})
	if verbose {
		runner.OnText = func(text string) {
			fmt.Println(text)
		}
	}
	return runner
}

// scheduler builds the full scheduler pass for hook run / schedule run.
func (a *app) scheduler() *schedule.Scheduler {
	var notifier schedule.Notifier
	if a.cfg.Notify.SlackToken != "" && a.cfg.Notify.SlackChannel != "" {
		notifier = notify.NewSlackNotifier(a.cfg.Notify.SlackToken, a.cfg.Notify.SlackChannel)
	}
	return schedule.NewScheduler(a.store, a.runner(), a.workflow, schedule.Options{
		LockPath:    filepath.Join(config.Dir(), "scheduler.lock"),
		AutoApprove: a.cfg.Agent.AutoApprove,
		Notifier:    notifier,
	})
}
