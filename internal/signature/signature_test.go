package signature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/signature"
)

func TestGenerate_DeterministicForFixedSeed(t *testing.T) {
	g1 := signature.NewGenerator(42)
	g2 := signature.NewGenerator(42)

	props := map[string]any{"primary": true}
	sig1 := g1.Generate("/save-btn", models.CategoryAction, props)
	sig2 := g2.Generate("/save-btn", models.CategoryAction, props)

	assert.Equal(t, sig1, sig2)
}

func TestGenerate_CategoryTables(t *testing.T) {
	g := signature.NewGenerator(1)

	action := g.Generate("/a", models.CategoryAction, nil)
	assert.Equal(t, "square", action.Waveform)
	assert.Equal(t, "#f75c4f", action.Color)
	assert.GreaterOrEqual(t, action.Frequency, 440.0)
	assert.LessOrEqual(t, action.Frequency, 460.0)

	nav := g.Generate("/n", models.CategoryNavigation, nil)
	assert.Equal(t, "sine", nav.Waveform)
	assert.GreaterOrEqual(t, nav.Frequency, 220.0)
}

func TestGenerate_UnknownCategoryFallsBack(t *testing.T) {
	g := signature.NewGenerator(1)

	sig := g.Generate("/x", models.Category("mystery"), nil)
	assert.Equal(t, "sine", sig.Waveform)
	assert.Equal(t, "#9aa5b1", sig.Color)
}

func TestGenerate_PropertyBoosts(t *testing.T) {
	// Same seed, so jitter sequences are identical; the boosted call must
	// come out strictly higher.
	plain := signature.NewGenerator(7).Generate("/btn", models.CategoryAction, nil)
	boosted := signature.NewGenerator(7).Generate("/btn", models.CategoryAction, map[string]any{
		"primary": true,
		"onClick": "handler",
	})

	assert.Greater(t, boosted.SemanticResonance, plain.SemanticResonance)
}

func TestGenerate_ScoresNormalized(t *testing.T) {
	g := signature.NewGenerator(99)
	for _, category := range models.ValidCategories {
		sig := g.Generate("/p", category, map[string]any{"primary": true, "onSubmit": "h"})
		assert.GreaterOrEqual(t, sig.SemanticResonance, 0.0)
		assert.LessOrEqual(t, sig.SemanticResonance, 1.0)
		assert.GreaterOrEqual(t, sig.EvolutionPotential, 0.0)
		assert.LessOrEqual(t, sig.EvolutionPotential, 1.0)
		assert.Zero(t, sig.InteractionWeight)
		assert.Zero(t, sig.ConnectionStrength)
	}
}

func TestGenerate_HashStableAcrossSeeds(t *testing.T) {
	sig1 := signature.NewGenerator(1).Generate("/save-btn", models.CategoryAction, nil)
	sig2 := signature.NewGenerator(2).Generate("/save-btn", models.CategoryAction, nil)

	assert.Equal(t, sig1.Hash, sig2.Hash)
	assert.NotEmpty(t, sig1.Hash)

	other := signature.NewGenerator(1).Generate("/other", models.CategoryAction, nil)
	assert.NotEqual(t, sig1.Hash, other.Hash)
}
