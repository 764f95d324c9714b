package cli

import (
	"encoding/json"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/store"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect agent memory (past proposals and outcomes)",
	RunE:  runMemory,
}

func init() {
	memoryCmd.Flags().String("agent", "", "Filter by agent name")
	memoryCmd.Flags().Int64("contact", 0, "Filter by contact ID")
	memoryCmd.Flags().Int64("deal", 0, "Filter by deal ID")
	memoryCmd.Flags().String("outcome", "", "Filter by outcome (pending/approved/rejected)")
	memoryCmd.Flags().Int("limit", 20, "Max memories to show")
	memoryCmd.Flags().Bool("json", false, "Output machine-readable JSON")
	rootCmd.AddCommand(memoryCmd)
}

func runMemory(cmd *cobra.Command, args []string) error {
	agentName, _ := cmd.Flags().GetString("agent")
	contactID, _ := cmd.Flags().GetInt64("contact")
	dealID, _ := cmd.Flags().GetInt64("deal")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	filter := store.MemoryFilter{
		AgentName: agentName,
		Outcome:   outcome,
		Limit:     limit,
	}
	if contactID != 0 {
		filter.ContactID = &contactID
	}
	if dealID != 0 {
		filter.DealID = &dealID
	}

	memories, err := a.store.RecallMemory(filter)
	if err != nil {
		return err
	}
	if len(memories) == 0 {
		cmd.Println("No agent memories found.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(memories)
	}

	for _, mem := range memories {
		icon := ".."
		switch mem.Outcome {
		case store.StatusApproved:
			icon = color.GreenString("OK")
		case store.StatusRejected:
			icon = color.RedString("NO")
		}
		cmd.Printf("[%s] #%d %s - %s\n", icon, mem.ID, mem.AgentName, mem.ActionType)
		if mem.Reasoning != "" {
			cmd.Printf("  Reasoning: %s\n", mem.Reasoning)
		}
		if mem.HumanFeedback != "" {
			cmd.Printf("  Feedback: %s\n", mem.HumanFeedback)
		}
		cmd.Printf("  %s\n\n", mem.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
