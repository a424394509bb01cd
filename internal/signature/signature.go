// Package signature derives display descriptors for registered entities.
// A signature bundles a waveform tag, an oscillation frequency, a display
// color, and a set of normalized scores computed from the entity's category
// and declared properties.
package signature

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

// waveforms maps each category to its oscillation waveform tag.
var waveforms = map[models.Category]string{
	models.CategoryNavigation:    "sine",
	models.CategoryAction:        "square",
	models.CategoryDisplay:       "sine",
	models.CategoryInput:         "triangle",
	models.CategoryContainer:     "sawtooth",
	models.CategoryFeedback:      "pulse",
	models.CategoryVisualization: "sine",
}

// baseFrequencies maps each category to its base oscillation frequency in Hz.
var baseFrequencies = map[models.Category]float64{
	models.CategoryNavigation:    220,
	models.CategoryAction:        440,
	models.CategoryDisplay:       110,
	models.CategoryInput:         330,
	models.CategoryContainer:     55,
	models.CategoryFeedback:      660,
	models.CategoryVisualization: 880,
}

// colors maps each category to its display color.
var colors = map[models.Category]string{
	models.CategoryNavigation:    "#4f8ef7",
	models.CategoryAction:        "#f75c4f",
	models.CategoryDisplay:       "#9aa5b1",
	models.CategoryInput:         "#4ff7a5",
	models.CategoryContainer:     "#b58cf7",
	models.CategoryFeedback:      "#f7c94f",
	models.CategoryVisualization: "#4ff0f7",
}

// evolutionBias maps each category to its evolution-potential baseline.
var evolutionBias = map[models.Category]float64{
	models.CategoryNavigation:    0.4,
	models.CategoryAction:        0.6,
	models.CategoryDisplay:       0.2,
	models.CategoryInput:         0.5,
	models.CategoryContainer:     0.3,
	models.CategoryFeedback:      0.35,
	models.CategoryVisualization: 0.55,
}

const (
	baseResonance       = 0.5
	primaryBoost        = 0.2
	affordanceBoost     = 0.15
	resonanceJitterSpan = 0.1
	frequencyJitterSpan = 20.0
	evolutionJitterSpan = 0.1
)

// affordanceKeys are property keys whose presence marks an entity as
// carrying a direct user affordance.
var affordanceKeys = []string{"onClick", "onSubmit", "click", "submit"}

// Generator computes signatures from a seeded pseudo-random source, so a
// fixed seed yields reproducible jitter across runs.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded with the given value.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate derives a signature from the component path, category, and
// property bag. It never fails; unknown categories fall back to neutral
// table values.
func (g *Generator) Generate(componentPath string, category models.Category, properties map[string]any) models.Signature {
	g.mu.Lock()
	resJitter := g.rng.Float64()
	freqJitter := g.rng.Float64()
	evoJitter := g.rng.Float64()
	g.mu.Unlock()

	wave, ok := waveforms[category]
	if !ok {
		wave = "sine"
	}
	freq, ok := baseFrequencies[category]
	if !ok {
		freq = 110
	}
	color, ok := colors[category]
	if !ok {
		color = "#9aa5b1"
	}

	resonance := baseResonance
	if isPrimary(properties) {
		resonance += primaryBoost
	}
	if hasAffordance(properties) {
		resonance += affordanceBoost
	}
	resonance += resJitter * resonanceJitterSpan

	evolution := evolutionBias[category] + evoJitter*evolutionJitterSpan

	return models.Signature{
		Hash:              pathHash(componentPath, category),
		Waveform:          wave,
		Frequency:         freq + freqJitter*frequencyJitterSpan,
		Color:             color,
		SemanticResonance: clamp01(resonance),
		// Interaction weight and connection strength start at zero and are
		// maintained incrementally by the registry.
		InteractionWeight:  0,
		ConnectionStrength: 0,
		EvolutionPotential: clamp01(evolution),
	}
}

// isPrimary reports whether the property bag marks the element as a
// primary affordance.
func isPrimary(properties map[string]any) bool {
	if v, ok := properties["primary"]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	if v, ok := properties["variant"]; ok {
		if s, ok := v.(string); ok {
			return s == "primary"
		}
	}
	return false
}

// hasAffordance reports whether the property bag declares a click or
// submit affordance.
func hasAffordance(properties map[string]any) bool {
	for _, key := range affordanceKeys {
		if _, ok := properties[key]; ok {
			return true
		}
	}
	return false
}

// pathHash returns a short stable hash of the component path and category.
func pathHash(componentPath string, category models.Category) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(componentPath))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(category))
	return fmt.Sprintf("%016x", h.Sum64())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
