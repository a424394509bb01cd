package models

import "time"

// Category classifies the kind of UI element an entity represents.
type Category string

const (
	CategoryNavigation    Category = "navigation"
	CategoryAction        Category = "action"
	CategoryDisplay       Category = "display"
	CategoryInput         Category = "input"
	CategoryContainer     Category = "container"
	CategoryFeedback      Category = "feedback"
	CategoryVisualization Category = "visualization"
)

// ValidCategories is the set of all valid entity categories.
var ValidCategories = []Category{
	CategoryNavigation,
	CategoryAction,
	CategoryDisplay,
	CategoryInput,
	CategoryContainer,
	CategoryFeedback,
	CategoryVisualization,
}

// IsValid returns true if the category is recognized.
func (c Category) IsValid() bool {
	for i := range ValidCategories {
		if c == ValidCategories[i] {
			return true
		}
	}
	return false
}

// State is the lifecycle state of a registered entity.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateDisabled State = "disabled"
	StateLoading  State = "loading"
	StateError    State = "error"
	StateHidden   State = "hidden"
)

// ValidStates is the set of all valid entity states.
var ValidStates = []State{
	StateIdle,
	StateActive,
	StateDisabled,
	StateLoading,
	StateError,
	StateHidden,
}

// IsValid returns true if the state is recognized.
func (s State) IsValid() bool {
	for i := range ValidStates {
		if s == ValidStates[i] {
			return true
		}
	}
	return false
}

// Importance ranks how much an entity matters to the user's current flow.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// ValidImportances is the set of all valid importance levels.
var ValidImportances = []Importance{
	ImportanceCritical,
	ImportanceHigh,
	ImportanceMedium,
	ImportanceLow,
}

// IsValid returns true if the importance level is recognized.
func (i Importance) IsValid() bool {
	for j := range ValidImportances {
		if i == ValidImportances[j] {
			return true
		}
	}
	return false
}

// Signature is the derived descriptor computed for an entity at registration.
// All score fields are normalized to [0,1].
type Signature struct {
	Hash               string  `json:"hash"`
	Waveform           string  `json:"waveform"`
	Frequency          float64 `json:"frequency"`
	Color              string  `json:"color"`
	InteractionWeight  float64 `json:"interaction_weight"`
	SemanticResonance  float64 `json:"semantic_resonance"`
	ConnectionStrength float64 `json:"connection_strength"`
	EvolutionPotential float64 `json:"evolution_potential"`
}

// Entity represents one live, registrable UI element and its metadata.
type Entity struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ComponentPath string   `json:"component_path"`
	ComponentType string   `json:"component_type"`
	Category      Category `json:"category"`
	State         State    `json:"state"`

	Signature Signature `json:"signature"`

	// ParentID tracks an optional parent entity. Ownership is not implied;
	// the parent only records this entity's id in its ChildIDs list.
	ParentID  string   `json:"parent_id,omitempty"`
	ChildIDs  []string `json:"child_ids,omitempty"`
	LinkedIDs []string `json:"linked_ids,omitempty"`

	Capabilities []Capability `json:"capabilities,omitempty"`

	RegisteredAt     time.Time `json:"registered_at"`
	LastInteraction  time.Time `json:"last_interaction,omitzero"` // zero = never
	InteractionCount int64     `json:"interaction_count"`

	Visible             bool       `json:"visible"`
	Importance          Importance `json:"importance"`
	ContextualRelevance float64    `json:"contextual_relevance"`
	UserAffinity        float64    `json:"user_affinity"`
	AccessLevel         string     `json:"access_level,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`
}

// CapabilityNames returns the display names of all declared capabilities.
func (e *Entity) CapabilityNames() []string {
	names := make([]string, 0, len(e.Capabilities))
	for i := range e.Capabilities {
		names = append(names, e.Capabilities[i].Name)
	}
	return names
}
