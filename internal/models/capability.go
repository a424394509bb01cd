package models

import (
	"context"
	"sort"
	"time"
)

// Handler is the function bound to a capability at registration time.
// It receives the caller-supplied parameters and returns an arbitrary
// result value for presentation to the caller.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// ParameterSpec describes one parameter a capability accepts.
type ParameterSpec struct {
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Capability is a named, parameterized action an entity exposes for
// external invocation. The handler is captured as a typed closure at
// registration time; it is never serialized.
type Capability struct {
	// Name is the human-facing display label, e.g. "Set Value".
	Name string `json:"name"`
	// Action is the stable action identifier, e.g. "setValue".
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`

	Handler Handler `json:"-"`

	Parameters map[string]ParameterSpec `json:"parameters,omitempty"`

	RequiresConfirmation bool          `json:"requires_confirmation,omitempty"`
	Cooldown             time.Duration `json:"cooldown,omitempty"`
}

// RequiredParameters returns the names of all parameters declared required,
// in stable sorted order so validation failures are deterministic.
func (c *Capability) RequiredParameters() []string {
	var required []string
	for name := range c.Parameters {
		if c.Parameters[name].Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}
