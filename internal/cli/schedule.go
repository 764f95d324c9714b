package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/agents"
	"github.com/pipeline-crm/pipeline/internal/events"
	"github.com/pipeline-crm/pipeline/internal/schedule"
	"github.com/pipeline-crm/pipeline/internal/store"
)

var (
	scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Run agents on a fixed cadence",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	scheduleAddCmd = &cobra.Command{
		Use:   "add <agent>",
		Short: "Schedule an agent",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleAdd,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List scheduled agents",
		RunE:  runScheduleList,
	}

	scheduleRemoveCmd = &cobra.Command{
		Use:   "remove <agent>",
		Short: "Remove an agent's schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRemove,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run all due scheduled agents (designed for crontab)",
		RunE:  runScheduleRun,
	}

	scheduleLogsCmd = &cobra.Command{
		Use:   "logs",
		Short: "Show recent scheduled run logs",
		RunE:  runScheduleLogs,
	}
)

func init() {
	scheduleAddCmd.Flags().String("every", "", "Interval: "+strings.Join(schedule.Intervals(), ", "))
	scheduleAddCmd.MarkFlagRequired("every")
	scheduleRunCmd.Flags().String("agent", "", "Force-run a specific agent regardless of schedule timing")
	scheduleRunCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	scheduleRunCmd.Flags().Bool("hooks", true, "Also process event hooks after running schedules")
	scheduleLogsCmd.Flags().Int("last", 20, "Number of log entries to show")
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleRemoveCmd, scheduleRunCmd, scheduleLogsCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	agentName := args[0]
	interval, _ := cmd.Flags().GetString("every")

	if _, ok := agents.Get(agentName); !ok {
		return fmt.Errorf("unknown agent %q, see 'pipeline agent list'", agentName)
	}
	if !schedule.ValidInterval(interval) {
		return fmt.Errorf("invalid interval %q, must be one of: %s", interval, strings.Join(schedule.Intervals(), ", "))
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.AddSchedule(agentName, interval); err != nil {
		return err
	}
	cmd.Printf("Scheduled %s to run %s.\n", color.CyanString(agentName), interval)
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	schedules, err := a.store.ListSchedules()
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		cmd.Println("No scheduled agents. Use 'pipeline schedule add' to add one.")
		return nil
	}
	cmd.Println("Scheduled Agents:")
	for _, s := range schedules {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		lastRun := "never"
		if s.LastRunAt != nil {
			lastRun = s.LastRunAt.Format("2006-01-02 15:04")
		}
		cmd.Printf("  %s  %s  (%s)  last run: %s\n", color.CyanString(s.AgentName), s.Interval, state, lastRun)
	}
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.RemoveSchedule(args[0]); err != nil {
		return err
	}
	cmd.Printf("Schedule removed for %s.\n", args[0])
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	forcedAgent, _ := cmd.Flags().GetString("agent")
	asJSON, _ := cmd.Flags().GetBool("json")
	withHooks, _ := cmd.Flags().GetBool("hooks")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.scheduler().RunDue(cmd.Context(), forcedAgent)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		cmd.Println("No agents due to run.")
	} else {
		for _, r := range results {
			icon := color.GreenString("OK")
			if r.Status == store.RunStatusFailed {
				icon = color.RedString("FAIL")
			}
			cmd.Printf("[%s] %s: %d action(s) proposed\n", icon, r.AgentName, r.ActionsProposed)
			if verbose && r.Output != "" {
				cmd.Println(r.Output)
			}
		}
	}

	// Process event hooks if enabled. Triggers are reported, not run;
	// 'pipeline hook run' owns hook-triggered executions.
	if withHooks {
		if _, err := events.NewScanner(a.store, a.cfg.Pipeline.StaleDays).Scan(); err != nil {
			return fmt.Errorf("scan events: %w", err)
		}
		triggers, err := events.NewProcessor(a.store).Process()
		if err != nil {
			return fmt.Errorf("process events: %w", err)
		}
		if verbose {
			for _, t := range triggers {
				cmd.Printf("[HOOK] %s -> %s (%s)\n", t.EventType, t.AgentName, t.Status)
			}
		}
	}
	return nil
}

func runScheduleLogs(cmd *cobra.Command, args []string) error {
	last, _ := cmd.Flags().GetInt("last")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logs, err := a.store.ScheduleLogs(last)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		cmd.Println("No scheduled runs recorded.")
		return nil
	}
	for _, l := range logs {
		finished := "-"
		if l.FinishedAt != nil {
			finished = l.FinishedAt.Format("2006-01-02 15:04")
		}
		cmd.Printf("#%d %s %s started=%s finished=%s proposed=%d\n",
			l.ID, l.AgentName, l.Status, l.StartedAt.Format("2006-01-02 15:04"), finished, l.ActionsProposed)
	}
	return nil
}
