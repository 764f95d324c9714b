package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log of CLI and agent actions",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().IntP("last", "l", 20, "Number of entries to show")
	auditCmd.Flags().StringP("actor", "a", "", "Filter by actor (e.g. human, follow-up)")
	auditCmd.Flags().StringP("command", "c", "", "Filter by command name (substring match)")
	auditCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	last, _ := cmd.Flags().GetInt("last")
	actor, _ := cmd.Flags().GetString("actor")
	command, _ := cmd.Flags().GetString("command")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.audit.Query(store.AuditFilter{
		Actor:   actor,
		Command: command,
		Last:    last,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Println("No audit log entries found.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		line := fmt.Sprintf("#%d %s %s", e.ID, e.Actor, e.Command)
		if e.DurationMs > 0 {
			line += fmt.Sprintf(" (%dms)", e.DurationMs)
		}
		if e.Error != "" {
			line += " error: " + e.Error
		}
		cmd.Printf("%s  %s\n", line, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("\nShowing %d entr%s\n", len(entries), plural(len(entries), "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
