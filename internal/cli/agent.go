package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/agents"
)

const chatSystemPrompt = `You are a CRM assistant for a developer-founder. You have access to a local CRM database through tools.

Your capabilities:
- Search contacts, deals, and tasks
- Analyze relationships and pipeline state
- Propose actions for the user to approve

When the user asks about their pipeline, contacts, or deals, use the available CRM tools to look up real data.
When suggesting actions (sending emails, updating records), use the propose_action tool so the user can review and approve.

Be concise and actionable. Format output for terminal readability.`

var (
	agentCmd = &cobra.Command{
		Use:   "agent",
		Short: "Run and inspect CRM agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	agentListCmd = &cobra.Command{
		Use:   "list",
		Short: "List available agents",
		RunE:  runAgentList,
	}

	agentRunCmd = &cobra.Command{
		Use:   "run <name>",
		Short: "Run a named agent once",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgentRun,
	}

	agentChatCmd = &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Ask the CRM assistant a one-off question",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgentChat,
	}
)

func init() {
	agentRunCmd.Flags().String("prompt", "", "Override the kickoff prompt")
	agentCmd.AddCommand(agentListCmd, agentRunCmd, agentChatCmd)
	rootCmd.AddCommand(agentCmd)
}

func runAgentList(cmd *cobra.Command, args []string) error {
	builtinNames := map[string]bool{}
	for _, def := range agents.Builtins() {
		builtinNames[def.Name] = true
	}
	for _, def := range agents.All() {
		kind := "builtin"
		if !builtinNames[def.Name] {
			kind = "custom"
		}
		cmd.Printf("  %s (%s)\n    %s\n", color.CyanString(def.Name), kind, def.Description)
	}
	return nil
}

func runAgentRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	prompt, _ := cmd.Flags().GetString("prompt")

	def, ok := agents.Get(name)
	if !ok {
		return fmt.Errorf("unknown agent %q, see 'pipeline agent list'", name)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner := a.runner()
	runner.OnText = func(text string) {
		cmd.Println(text)
	}

	result, err := runner.Run(cmd.Context(), def, prompt)
	if err != nil {
		return err
	}
	cmd.Printf("\n%s proposed %d action(s).\n", def.Name, result.ActionsProposed)
	if result.ActionsProposed > 0 {
		cmd.Println("Review them with 'pipeline approve'.")
	}
	return nil
}

func runAgentChat(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner := a.runner()
	runner.OnText = func(text string) {
		cmd.Println(text)
	}

	def := agents.Definition{
		Name:   "assistant",
		Prompt: chatSystemPrompt,
	}
	_, err = runner.Run(cmd.Context(), def, args[0])
	return err
}
