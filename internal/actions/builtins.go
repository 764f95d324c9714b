package actions

import (
	"fmt"
	"slices"

	"github.com/pipeline-crm/pipeline/internal/store"
)

func registerBuiltins(r *Registry, st *store.Store, mailer Mailer, stages []string) {
	r.Register("send_email", &Handler{
		Label: "Send an email",
		Validate: func(payload map[string]any) error {
			if getString(payload, "to") == "" {
				return fmt.Errorf("missing 'to' field")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			to := getString(payload, "to")
			subject := getString(payload, "subject")
			if subject == "" {
				subject = "(no subject)"
			}
			body := getString(payload, "body")
			contactID := getID(payload, "contact_id")
			dealID := getID(payload, "deal_id")

			messageID, providerName, err := mailer.Send(to, subject, body)
			if err != nil {
				// Sending failures are recoverable: keep the draft as a
				// note so nothing the agent wrote is lost.
				_, _ = st.InsertInteraction(store.InteractionInput{
					ContactID: contactID,
					Type:      "note",
					Body:      fmt.Sprintf("[Email draft — sending failed] To: %s, Subject: %s\n\n%s\n\nError: %v", to, subject, body, err),
				})
				return fmt.Sprintf("Email sending failed (logged as draft): %v", err), nil
			}

			_, _ = st.InsertInteraction(store.InteractionInput{
				ContactID: contactID,
				DealID:    dealID,
				Type:      "email",
				Direction: "outbound",
				Subject:   subject,
				Body:      body,
				MessageID: messageID,
			})
			if contactID != nil {
				_ = st.TouchContact(*contactID)
			}
			return fmt.Sprintf("Email sent via %s (%s): to=%s, subject=%s", providerName, messageID, to, subject), nil
		},
	})

	r.Register("update_stage", &Handler{
		Label: "Update a deal's stage",
		Validate: func(payload map[string]any) error {
			if getID(payload, "deal_id") == nil || getString(payload, "stage") == "" {
				return fmt.Errorf("missing 'deal_id' or 'stage'")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			dealID := getID(payload, "deal_id")
			stage := getString(payload, "stage")
			if dealID == nil {
				return "", fmt.Errorf("missing 'deal_id'")
			}
			if !slices.Contains(stages, stage) {
				return "", fmt.Errorf("invalid stage %q: must be one of %v", stage, stages)
			}
			if err := st.SetDealStage(*dealID, stage); err != nil {
				return "", err
			}
			return fmt.Sprintf("Moved deal %d to stage %s", *dealID, stage), nil
		},
	})

	r.Register("create_task", &Handler{
		Label: "Create a new task",
		Validate: func(payload map[string]any) error {
			if getString(payload, "title") == "" {
				return fmt.Errorf("missing 'title'")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			task, err := st.CreateTask(
				getString(payload, "title"),
				getID(payload, "contact_id"),
				getID(payload, "deal_id"),
				getString(payload, "due"),
			)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Created task: %s (id: %d)", task.Title, task.ID), nil
		},
	})

	r.Register("log_note", &Handler{
		Label: "Log a note",
		Validate: func(payload map[string]any) error {
			if getString(payload, "body") == "" {
				return fmt.Errorf("missing 'body'")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			note, err := st.InsertInteraction(store.InteractionInput{
				ContactID: getID(payload, "contact_id"),
				DealID:    getID(payload, "deal_id"),
				Type:      "note",
				Body:      getString(payload, "body"),
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Logged note (id: %d)", note.ID), nil
		},
	})

	r.Register("create_edge", &Handler{
		Label: "Create a relationship edge",
		Validate: func(payload map[string]any) error {
			if getString(payload, "from_type") == "" || getString(payload, "to_type") == "" {
				return fmt.Errorf("missing 'from_type' or 'to_type'")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			fromID := getID(payload, "from_id")
			toID := getID(payload, "to_id")
			if fromID == nil || toID == nil {
				return "", fmt.Errorf("missing 'from_id' or 'to_id'")
			}
			edge, err := st.CreateEdge(
				getString(payload, "from_type"), *fromID,
				getString(payload, "to_type"), *toID,
				getString(payload, "relation"),
			)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Created edge (id: %d)", edge.ID), nil
		},
	})

	r.Register("complete_task", &Handler{
		Label: "Mark a task as completed",
		Validate: func(payload map[string]any) error {
			if getID(payload, "task_id") == nil {
				return fmt.Errorf("missing 'task_id'")
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			taskID := getID(payload, "task_id")
			if taskID == nil {
				return "", fmt.Errorf("missing 'task_id'")
			}
			if err := st.CompleteTask(*taskID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Completed task %d", *taskID), nil
		},
	})

	r.Register("update_warmth", &Handler{
		Label: "Update a contact's warmth",
		Validate: func(payload map[string]any) error {
			contactID := getID(payload, "contact_id")
			warmth := getString(payload, "warmth")
			if contactID == nil || warmth == "" {
				return fmt.Errorf("missing 'contact_id' or 'warmth'")
			}
			valid := []string{"cold", "warm", "hot"}
			if !slices.Contains(valid, warmth) {
				return fmt.Errorf("invalid warmth: must be one of %v", valid)
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			contactID := getID(payload, "contact_id")
			if contactID == nil {
				return "", fmt.Errorf("missing 'contact_id'")
			}
			warmth := getString(payload, "warmth")
			if err := st.SetContactWarmth(*contactID, warmth); err != nil {
				return "", err
			}
			return fmt.Sprintf("Updated contact %d warmth to %s", *contactID, warmth), nil
		},
	})

	r.Register("update_priority", &Handler{
		Label: "Update a deal's priority",
		Validate: func(payload map[string]any) error {
			dealID := getID(payload, "deal_id")
			priority := getString(payload, "priority")
			if dealID == nil || priority == "" {
				return fmt.Errorf("missing 'deal_id' or 'priority'")
			}
			valid := []string{"low", "medium", "high"}
			if !slices.Contains(valid, priority) {
				return fmt.Errorf("invalid priority: must be one of %v", valid)
			}
			return nil
		},
		Execute: func(payload map[string]any) (string, error) {
			dealID := getID(payload, "deal_id")
			if dealID == nil {
				return "", fmt.Errorf("missing 'deal_id'")
			}
			priority := getString(payload, "priority")
			if err := st.SetDealPriority(*dealID, priority); err != nil {
				return "", err
			}
			return fmt.Sprintf("Updated deal %d priority to %s", *dealID, priority), nil
		},
	})
}

func getString(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getID extracts an entity id. JSON numbers arrive as float64.
func getID(payload map[string]any, key string) *int64 {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		id := int64(n)
		return &id
	case int64:
		return &n
	case int:
		id := int64(n)
		return &id
	}
	return nil
}
