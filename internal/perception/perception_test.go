package perception_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/perception"
	"github.com/sonicframe/atlas-bridge/internal/registry"
	"github.com/sonicframe/atlas-bridge/internal/signature"
)

func newTestPerceiver(t *testing.T) (*registry.Registry, *perception.Perceiver) {
	t.Helper()
	reg := registry.New(signature.NewGenerator(1), nil)
	p, cleanup := perception.NewPerceiver(reg, perception.DefaultWeights(), nil)
	t.Cleanup(cleanup)
	return reg, p
}

func seedDashboard(t *testing.T, reg *registry.Registry) (nav, save, title *models.Entity) {
	t.Helper()
	nav = reg.Register(registry.RegisterConfig{
		Name:          "Reports",
		ComponentPath: "/reports",
		Category:      models.CategoryNavigation,
		State:         models.StateActive,
	})
	save = reg.Register(registry.RegisterConfig{
		Name:          "Save Report",
		ComponentPath: "/reports/save",
		Category:      models.CategoryAction,
		Importance:    models.ImportanceCritical,
		Capabilities: []models.Capability{{
			Name:        "Save",
			Action:      "save",
			Description: "Persist the current report",
		}},
	})
	title = reg.Register(registry.RegisterConfig{
		Name:          "Report Title",
		ComponentPath: "/reports/title",
		Category:      models.CategoryInput,
	})
	return nav, save, title
}

func TestPerceiveUI(t *testing.T) {
	reg, p := newTestPerceiver(t)
	_, save, _ := seedDashboard(t, reg)

	snap := p.PerceiveUI()

	assert.Len(t, snap.Entities, 3)
	assert.Equal(t, "/reports", snap.Context.Location, "active navigation entity sets location")
	assert.Equal(t, 1, snap.Context.ActiveCount)
	assert.Equal(t, 1, snap.Context.CriticalCount)

	require.Len(t, snap.Actionable, 1)
	assert.Equal(t, save.ID, snap.Actionable[0].EntityID)
	assert.Equal(t, "save", snap.Actionable[0].Action)
	assert.Equal(t, "Save Report", snap.Actionable[0].EntityName)
}

func TestPerceiveUI_EmptyRegistry(t *testing.T) {
	_, p := newTestPerceiver(t)

	snap := p.PerceiveUI()
	assert.Empty(t, snap.Entities)
	assert.Empty(t, snap.Actionable)
	assert.Equal(t, "/", snap.Context.Location)
}

func TestPerceiveUI_HotspotsTopFiveByWeight(t *testing.T) {
	reg, p := newTestPerceiver(t)

	var hot *models.Entity
	for i := 0; i < 7; i++ {
		ent := reg.Register(registry.RegisterConfig{
			Name:          "Button",
			ComponentPath: "/btn",
			Category:      models.CategoryAction,
		})
		if i == 3 {
			hot = ent
		}
	}
	for i := 0; i < 20; i++ {
		require.True(t, reg.RecordInteraction(hot.ID))
	}

	snap := p.PerceiveUI()
	require.Len(t, snap.Context.Hotspots, 5)
	assert.Equal(t, hot.ID, snap.Context.Hotspots[0].ID)
	assert.InDelta(t, 0.2, snap.Context.Hotspots[0].Weight, 1e-9)
}

func TestTranslateQuery_CategoryKeywords(t *testing.T) {
	cases := []struct {
		query    string
		category models.Category
	}{
		{"show me all buttons", models.CategoryAction},
		{"where is the nav", models.CategoryNavigation},
		{"open the menu", models.CategoryNavigation},
		{"any charts on screen", models.CategoryVisualization},
		{"find the form", models.CategoryInput},
		{"the text box please", models.CategoryInput},
		{"which panel", models.CategoryContainer},
		{"recent alerts", models.CategoryFeedback},
		{"the data table", models.CategoryDisplay},
	}
	for _, tc := range cases {
		f := perception.TranslateQuery(tc.query)
		require.NotNil(t, f.Category, "query %q", tc.query)
		assert.Equal(t, tc.category, *f.Category, "query %q", tc.query)
	}
}

func TestTranslateQuery_StateAndImportance(t *testing.T) {
	f := perception.TranslateQuery("disabled buttons")
	require.NotNil(t, f.State)
	assert.Equal(t, models.StateDisabled, *f.State)
	require.NotNil(t, f.Category)
	assert.Equal(t, models.CategoryAction, *f.Category)

	f = perception.TranslateQuery("anything broken?")
	require.NotNil(t, f.State)
	assert.Equal(t, models.StateError, *f.State)

	f = perception.TranslateQuery("critical controls")
	require.NotNil(t, f.Importance)
	assert.Equal(t, models.ImportanceCritical, *f.Importance)

	f = perception.TranslateQuery("high priority stuff")
	require.NotNil(t, f.Importance)
	assert.Equal(t, models.ImportanceHigh, *f.Importance)
}

func TestTranslateQuery_QuotedName(t *testing.T) {
	f := perception.TranslateQuery(`find "Save Report"`)
	assert.Equal(t, "Save Report", f.NamePattern)

	// Quoted text is matched literally, not as a regex.
	f = perception.TranslateQuery(`find "a.b"`)
	assert.Equal(t, `a\.b`, f.NamePattern)
}

func TestTranslateQuery_NoKeywords(t *testing.T) {
	f := perception.TranslateQuery("what is going on")
	assert.True(t, f.Empty())
}

func TestQueryEntities_Heuristics(t *testing.T) {
	reg, p := newTestPerceiver(t)
	_, save, _ := seedDashboard(t, reg)

	got := p.QueryEntities(context.Background(), "critical buttons")
	require.Len(t, got, 1)
	assert.Equal(t, save.ID, got[0].ID)
}

type stubTranslator struct {
	filters *registry.Filters
	err     error
	calls   int
}

func (s *stubTranslator) Translate(ctx context.Context, query string) (*registry.Filters, error) {
	s.calls++
	return s.filters, s.err
}

func TestQueryEntities_TranslatorFallback(t *testing.T) {
	reg, p := newTestPerceiver(t)
	nav, _, _ := seedDashboard(t, reg)

	category := models.CategoryNavigation
	stub := &stubTranslator{filters: &registry.Filters{Category: &category}}
	p.UseTranslator(stub)

	got := p.QueryEntities(context.Background(), "how do I get around")
	assert.Equal(t, 1, stub.calls)
	require.Len(t, got, 1)
	assert.Equal(t, nav.ID, got[0].ID)

	// A query the dictionaries can constrain never consults the translator.
	p.QueryEntities(context.Background(), "buttons")
	assert.Equal(t, 1, stub.calls)
}

func TestQueryEntities_TranslatorErrorFallsBackUnconstrained(t *testing.T) {
	reg, p := newTestPerceiver(t)
	seedDashboard(t, reg)

	p.UseTranslator(&stubTranslator{err: errors.New("api down")})

	got := p.QueryEntities(context.Background(), "anything at all")
	assert.Len(t, got, 3)
}

func TestFindRelevantEntities_Ordering(t *testing.T) {
	reg, p := newTestPerceiver(t)
	_, save, _ := seedDashboard(t, reg)

	scored := p.FindRelevantEntities("save", 2)
	require.Len(t, scored, 2)
	assert.Equal(t, save.ID, scored[0].Entity.ID, "name match plus critical bonus wins")
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestFindRelevantEntities_LimitAndEmptyContext(t *testing.T) {
	reg, p := newTestPerceiver(t)
	seedDashboard(t, reg)

	assert.Len(t, p.FindRelevantEntities("", 0), 3)
	assert.Len(t, p.FindRelevantEntities("", 1), 1)
}

func TestDescribeEntity(t *testing.T) {
	reg, p := newTestPerceiver(t)
	_, save, _ := seedDashboard(t, reg)

	desc := p.DescribeEntity(save.ID)
	assert.Contains(t, desc, "Save Report is a critical-importance action element, currently idle.")
	assert.Contains(t, desc, "It can: Save.")
	assert.Contains(t, desc, "Resonance:")
}

func TestDescribeEntity_NotFound(t *testing.T) {
	_, p := newTestPerceiver(t)
	assert.Equal(t, "Entity not found.", p.DescribeEntity("ghost"))
}

func TestDescribeEntity_CacheInvalidatedByEvents(t *testing.T) {
	reg, p := newTestPerceiver(t)
	_, save, _ := seedDashboard(t, reg)

	before := p.DescribeEntity(save.ID)
	assert.Equal(t, before, p.DescribeEntity(save.ID))

	require.True(t, reg.RecordInteraction(save.ID))
	after := p.DescribeEntity(save.ID)
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "interacted with 1 times")
}
