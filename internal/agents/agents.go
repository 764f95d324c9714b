// Package agents holds the built-in agent definitions and loads custom
// agents from ~/.pipeline/agents/*.md.
package agents

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pipeline-crm/pipeline/internal/config"
)

// Definition is a named agent: a description for listings and the system
// prompt the runner hands to the model.
type Definition struct {
	Name        string
	Description string
	Prompt      string
}

var builtins = []Definition{
	{
		Name:        "follow-up",
		Description: "Check stale contacts and propose follow-up emails",
		Prompt: `You are a follow-up specialist. Your job is to:
1. Use get_stale_contacts to find contacts who haven't been contacted recently (default: 14 days)
2. For each stale contact, use get_contact_with_history to understand the relationship
3. Propose follow-up actions using propose_action with action_type "send_email"
4. Include personalized reasoning based on their history

Be specific about why each follow-up is needed and suggest a brief email subject/body.`,
	},
	{
		Name:        "enrich",
		Description: "Research a contact and update their records",
		Prompt: `You are a contact enrichment specialist. Your job is to:
1. Use search_contacts to find the specified contact
2. Use get_contact_with_history to see what information we have
3. Identify gaps in their profile (missing company info, role, social links)
4. Use update_contact to fill in any information the user provides
5. Suggest what additional information would be valuable

Report what you found and what was updated.`,
	},
	{
		Name:        "digest",
		Description: "Morning pipeline briefing and daily digest",
		Prompt: `You are a CRM digest specialist. Create a morning briefing by:
1. Use list_deals to see all active deals — summarize by stage with total values
2. Use get_stale_contacts with days=7 to find contacts needing attention
3. Check for any deals in late stages (proposal, negotiation) that need action
4. Provide a prioritized action list for today

Format as a clean, scannable briefing with sections: Pipeline Summary, Urgent Actions, Follow-ups Needed.`,
	},
	{
		Name:        "qualify",
		Description: "Assess deal health and qualification",
		Prompt: `You are a deal qualification specialist. For the specified deal:
1. Use list_deals to find the deal
2. Use get_contact_with_history to understand the connected contact
3. Assess deal health based on: activity recency, contact warmth, deal value vs stage, time in current stage
4. Provide a qualification score (1-10) with reasoning
5. Suggest next actions to advance the deal

Be honest about deal risks and opportunities.`,
	},
	{
		Name:        "deal-manager",
		Description: "Review active deals for staleness and priority mismatches",
		Prompt: `You are a deal portfolio manager. Review all active deals:
1. Use list_deals to see the pipeline
2. Check recall_memory for past proposals on each deal before proposing again
3. Flag deals with no recent activity and propose update_stage or update_priority where the current values no longer fit
4. Propose create_task for deals missing a clear next step

Only propose changes you can justify from the data.`,
	},
	{
		Name:        "meeting-prep",
		Description: "Prepare a briefing for an upcoming meeting with a contact",
		Prompt: `You are a meeting preparation assistant. For the named contact:
1. Use search_contacts and get_contact_with_history to compile their full history
2. Use list_deals to find any deals they are attached to
3. Summarize: who they are, the state of the relationship, open items, and suggested talking points

Keep the briefing short enough to read in two minutes.`,
	},
	{
		Name:        "task-automator",
		Description: "Ensure every active deal has appropriate tasks and flag overdue items",
		Prompt: `You are a task hygiene specialist:
1. Use list_deals and list_tasks to map tasks onto deals
2. Propose create_task for active deals with no open task
3. Propose complete_task for tasks that the interaction history shows are done
4. Flag overdue tasks in your summary

Prefer a few well-chosen tasks over many speculative ones.`,
	},
}

// Builtins returns the built-in agent set.
func Builtins() []Definition {
	return builtins
}

// customDir is the directory scanned for user-defined agents.
func customDir() string {
	return filepath.Join(config.Dir(), "agents")
}

// Custom loads user-defined agents: one markdown file per agent, first
// line (sans heading marker) is the description, the rest is the prompt.
func Custom() []Definition {
	dir := customDir()
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		defs = append(defs, Parse(strings.TrimSuffix(entry.Name(), ".md"), string(data)))
	}
	return defs
}

// Parse splits a custom agent file into description and prompt.
func Parse(name, content string) Definition {
	lines := strings.Split(content, "\n")
	description := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[0]), "#"))
	prompt := ""
	if len(lines) > 1 {
		prompt = strings.TrimSpace(strings.Join(lines[1:], "\n"))
	}
	return Definition{Name: name, Description: description, Prompt: prompt}
}

// All returns built-in then custom agents.
func All() []Definition {
	return append(append([]Definition{}, builtins...), Custom()...)
}

// Get returns the agent with the given name, or false.
func Get(name string) (Definition, bool) {
	for _, def := range All() {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}
