// Package actions maps action-type names to validate/execute handler
// pairs. The registry is an explicit instance built by the caller and
// passed into the approval workflow; there is no package-level state.
package actions

import (
	"fmt"
	"sort"

	"github.com/pipeline-crm/pipeline/internal/store"
)

// Handler is one executable action type. Validate checks payload shape
// and enum membership; Execute performs the mutation and returns a
// human-readable result.
type Handler struct {
	Label    string
	Validate func(payload map[string]any) error
	Execute  func(payload map[string]any) (string, error)
}

// Mailer sends outbound email. Send failures are recoverable: the
// send_email handler logs a draft instead of failing the approval.
type Mailer interface {
	// Send returns a provider message id and the provider name.
	Send(to, subject, body string) (id, provider string, err error)
}

// NoMailer is the default Mailer when no email provider is configured.
type NoMailer struct{}

func (NoMailer) Send(to, subject, body string) (string, string, error) {
	return "", "", fmt.Errorf("no email provider configured")
}

// Registry holds the registered action handlers.
type Registry struct {
	handlers map[string]*Handler
}

// NewRegistry builds a registry with the built-in handlers registered.
// stages is the orderable set of valid pipeline stages.
func NewRegistry(st *store.Store, mailer Mailer, stages []string) *Registry {
	if mailer == nil {
		mailer = NoMailer{}
	}
	r := &Registry{handlers: make(map[string]*Handler)}
	registerBuiltins(r, st, mailer, stages)
	return r
}

// Register adds a handler for an action type, replacing any previous one.
func (r *Registry) Register(actionType string, h *Handler) {
	r.handlers[actionType] = h
}

// Get returns the handler for an action type.
func (r *Registry) Get(actionType string) (*Handler, bool) {
	h, ok := r.handlers[actionType]
	return h, ok
}

// Types returns the registered action-type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
