// Package perception is the read-only summarization and search layer over
// the registry: whole-UI snapshots, natural-language query translation,
// relevance scoring, and prose entity descriptions for an LLM caller.
package perception

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

// descCacheSize bounds the rendered-description cache.
const descCacheSize = 512

// hotspotLimit is how many top entities by interaction weight appear in a
// perception context.
const hotspotLimit = 5

// NotFoundDescription is returned by DescribeEntity for unknown ids.
const NotFoundDescription = "Entity not found."

// Perceiver produces caller-facing views of the registry. It is read-only:
// it never mutates registry state.
type Perceiver struct {
	reg        *registry.Registry
	weights    Weights
	translator Translator // optional; nil disables LLM translation
	logger     *slog.Logger

	descCache *lru.Cache[string, string]
}

// UseTranslator installs an optional LLM-backed query translator consulted
// when the keyword heuristics produce an unconstrained query.
func (p *Perceiver) UseTranslator(t Translator) {
	p.translator = t
}

// NewPerceiver creates a perceiver over the given registry. It subscribes
// to registry events to invalidate cached descriptions; the returned
// cleanup function unsubscribes.
func NewPerceiver(reg *registry.Registry, weights Weights, logger *slog.Logger) (*Perceiver, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, string](descCacheSize)
	p := &Perceiver{
		reg:       reg,
		weights:   weights,
		logger:    logger,
		descCache: cache,
	}
	unsubscribe := reg.Subscribe(func(ev models.Event) {
		p.descCache.Remove(ev.EntityID)
		if ev.PeerID != "" {
			p.descCache.Remove(ev.PeerID)
		}
	})
	return p, unsubscribe
}

// EntityInfo is the per-entity projection in a UI snapshot.
type EntityInfo struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     models.Category   `json:"category"`
	State        models.State      `json:"state"`
	Importance   models.Importance `json:"importance"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Resonance    float64           `json:"resonance"`
}

// ActionableElement is one invocable capability, flattened across entities.
type ActionableElement struct {
	EntityID             string `json:"entity_id"`
	EntityName           string `json:"entity_name"`
	Action               string `json:"action"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
}

// Hotspot is one of the top entities by interaction weight.
type Hotspot struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Context is the lightweight "where are we" portion of a UI snapshot.
type Context struct {
	Location      string    `json:"location"`
	ActiveCount   int       `json:"active_count"`
	CriticalCount int       `json:"critical_count"`
	Hotspots      []Hotspot `json:"hotspots,omitempty"`
}

// Snapshot is the full caller-facing view returned by PerceiveUI.
type Snapshot struct {
	Entities   []EntityInfo        `json:"entities"`
	Actionable []ActionableElement `json:"actionable_elements"`
	Context    Context             `json:"context"`
}

// PerceiveUI snapshots the registry into a summary an orchestrating agent
// can reason over.
func (p *Perceiver) PerceiveUI() Snapshot {
	all := p.reg.GetAll()

	snap := Snapshot{
		Entities: make([]EntityInfo, 0, len(all)),
		Context:  Context{Location: "/"},
	}

	for _, ent := range all {
		snap.Entities = append(snap.Entities, EntityInfo{
			ID:           ent.ID,
			Name:         ent.Name,
			Category:     ent.Category,
			State:        ent.State,
			Importance:   ent.Importance,
			Capabilities: ent.CapabilityNames(),
			Resonance:    ent.Signature.SemanticResonance,
		})

		for i := range ent.Capabilities {
			c := &ent.Capabilities[i]
			snap.Actionable = append(snap.Actionable, ActionableElement{
				EntityID:             ent.ID,
				EntityName:           ent.Name,
				Action:               c.Action,
				Name:                 c.Name,
				Description:          c.Description,
				RequiresConfirmation: c.RequiresConfirmation,
			})
		}

		if ent.State == models.StateActive {
			snap.Context.ActiveCount++
			// The active navigation element defines the current location.
			if ent.Category == models.CategoryNavigation {
				snap.Context.Location = ent.ComponentPath
			}
		}
		if ent.Importance == models.ImportanceCritical {
			snap.Context.CriticalCount++
		}
	}

	snap.Context.Hotspots = topHotspots(all, hotspotLimit)
	return snap
}

// topHotspots returns the top-n entities by interaction weight, preserving
// registration order among equal weights.
func topHotspots(ents []*models.Entity, n int) []Hotspot {
	sorted := make([]*models.Entity, len(ents))
	copy(sorted, ents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Signature.InteractionWeight > sorted[j].Signature.InteractionWeight
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	hotspots := make([]Hotspot, 0, len(sorted))
	for _, ent := range sorted {
		hotspots = append(hotspots, Hotspot{
			ID:     ent.ID,
			Name:   ent.Name,
			Weight: ent.Signature.InteractionWeight,
		})
	}
	return hotspots
}

// DescribeEntity builds a human-readable description of the entity for
// direct presentation to a conversational caller. Unknown ids yield a
// fixed sentence rather than an error.
func (p *Perceiver) DescribeEntity(id string) string {
	if cached, ok := p.descCache.Get(id); ok {
		return cached
	}

	ent := p.reg.Get(id)
	if ent == nil {
		return NotFoundDescription
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is a %s-importance %s element, currently %s.",
		ent.Name, ent.Importance, ent.Category, ent.State)

	if names := ent.CapabilityNames(); len(names) > 0 {
		fmt.Fprintf(&sb, " It can: %s.", strings.Join(names, ", "))
	}
	if ent.InteractionCount > 0 {
		fmt.Fprintf(&sb, " It has been interacted with %d times.", ent.InteractionCount)
	}
	fmt.Fprintf(&sb, " Resonance: %.0f%%.", ent.Signature.SemanticResonance*100)

	desc := sb.String()
	p.descCache.Add(id, desc)
	return desc
}
