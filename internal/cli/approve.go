package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/store"
)

var approveCmd = &cobra.Command{
	Use:   "approve [id...]",
	Short: "Review and approve agent-proposed actions",
	RunE:  runApprove,
}

func init() {
	approveCmd.Flags().Bool("list", false, "List pending actions without acting")
	approveCmd.Flags().Bool("all", false, "Approve all pending actions")
	approveCmd.Flags().Int64("reject", 0, "Reject a specific action by ID")
	approveCmd.Flags().String("reason", "", "Feedback recorded with a rejection")
	approveCmd.Flags().Bool("json", false, "Output pending actions as JSON")
	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	listOnly, _ := cmd.Flags().GetBool("list")
	approveAll, _ := cmd.Flags().GetBool("all")
	rejectID, _ := cmd.Flags().GetInt64("reject")
	reason, _ := cmd.Flags().GetString("reason")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if rejectID != 0 {
		if err := a.workflow.Reject(rejectID, reason); err != nil {
			return err
		}
		cmd.Printf("Rejected action #%d\n", rejectID)
		return nil
	}

	// Explicit ids approve directly.
	if len(args) > 0 {
		for _, arg := range args {
			var id int64
			if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
				return fmt.Errorf("invalid action id %q", arg)
			}
			result, err := a.workflow.Approve(id)
			if err != nil {
				return err
			}
			cmd.Printf("Approved #%d: %s\n", id, result)
		}
		return nil
	}

	pending, err := a.workflow.ListPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending actions.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pending)
	}

	if approveAll {
		results, err := a.workflow.ApproveAll()
		for _, r := range results {
			cmd.Printf("Approved %s\n", r)
		}
		return err
	}

	for _, action := range pending {
		printPendingAction(cmd, action)
		cmd.Println()
	}
	if !listOnly {
		cmd.Println("Use 'approve <id>' or '--all' to approve, '--reject <id> --reason ...' to reject.")
	}
	return nil
}

func printPendingAction(cmd *cobra.Command, action store.PendingAction) {
	cmd.Printf("#%d [%s]\n", action.ID, color.YellowString(action.ActionType))
	reasoning := action.Reasoning
	if reasoning == "" {
		reasoning = "(none)"
	}
	cmd.Printf("  Reasoning: %s\n", reasoning)
	if len(action.Payload) > 0 {
		payload, _ := json.Marshal(action.Payload)
		cmd.Printf("  Payload: %s\n", payload)
	}
}
