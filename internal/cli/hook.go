package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/agents"
	"github.com/pipeline-crm/pipeline/internal/events"
	"github.com/pipeline-crm/pipeline/internal/store"
)

var (
	hookCmd = &cobra.Command{
		Use:   "hook",
		Short: "Wire agents to pipeline events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	hookAddCmd = &cobra.Command{
		Use:   "add <event> <agent>",
		Short: "Trigger an agent when an event fires",
		Args:  cobra.ExactArgs(2),
		RunE:  runHookAdd,
	}

	hookListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered hooks",
		RunE:  runHookList,
	}

	hookRemoveCmd = &cobra.Command{
		Use:   "remove <event> <agent>",
		Short: "Remove a hook",
		Args:  cobra.ExactArgs(2),
		RunE:  runHookRemove,
	}

	hookRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Process unprocessed events and fire their hooks",
		RunE:  runHookRun,
	}
)

func init() {
	hookRunCmd.Flags().Bool("scan", true, "Scan for time-based events before processing")
	hookRunCmd.Flags().Bool("json", false, "Output trigger results as JSON without running agents")
	hookCmd.AddCommand(hookAddCmd, hookListCmd, hookRemoveCmd, hookRunCmd)
	rootCmd.AddCommand(hookCmd)
}

func runHookAdd(cmd *cobra.Command, args []string) error {
	eventType, agentName := args[0], args[1]
	if _, ok := agents.Get(agentName); !ok {
		return fmt.Errorf("unknown agent %q, see 'pipeline agent list'", agentName)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.AddHook(eventType, agentName); err != nil {
		return err
	}
	cmd.Printf("Hook added: %s -> %s\n", color.YellowString(eventType), color.CyanString(agentName))
	return nil
}

func runHookList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	hooks, err := a.store.ListHooks()
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		cmd.Println("No hooks registered.")
		return nil
	}
	for _, h := range hooks {
		state := color.GreenString("enabled")
		if !h.Enabled {
			state = color.RedString("disabled")
		}
		cmd.Printf("  %s -> %s (%s)\n", color.YellowString(h.EventType), color.CyanString(h.AgentName), state)
	}
	return nil
}

func runHookRemove(cmd *cobra.Command, args []string) error {
	eventType, agentName := args[0], args[1]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.RemoveHook(eventType, agentName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no hook for %s -> %s", eventType, agentName)
		}
		return err
	}
	cmd.Printf("Hook removed: %s -> %s\n", eventType, agentName)
	return nil
}

func runHookRun(cmd *cobra.Command, args []string) error {
	doScan, _ := cmd.Flags().GetBool("scan")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if doScan {
		found, err := events.NewScanner(a.store, a.cfg.Pipeline.StaleDays).Scan()
		if err != nil {
			return fmt.Errorf("scan events: %w", err)
		}
		if found > 0 && verbose {
			cmd.Printf("Scanned: %d new event(s)\n", found)
		}
	}

	triggers, err := events.NewProcessor(a.store).Process()
	if err != nil {
		return fmt.Errorf("process events: %w", err)
	}
	if len(triggers) == 0 {
		cmd.Println("No events to process.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(triggers)
	}

	// Run each triggered agent once, isolating failures.
	runner := a.runner()
	for _, t := range events.DedupeByAgent(triggers) {
		def, ok := agents.Get(t.AgentName)
		if !ok {
			cmd.Printf("Agent %q not found - skipping\n", t.AgentName)
			continue
		}
		cmd.Printf("Triggering %s (event: %s)...\n", color.CyanString(t.AgentName), color.YellowString(t.EventType))

		prompt := fmt.Sprintf("Triggered by event: %s. Review and act as appropriate.", t.EventType)
		res, err := runner.Run(cmd.Context(), def, prompt)
		if err != nil {
			cmd.Printf("  %s: failed - %v\n", t.AgentName, err)
			continue
		}
		cmd.Printf("  %s: %s\n", t.AgentName, res.Summary())
	}
	return nil
}
