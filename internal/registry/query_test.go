package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonicframe/atlas-bridge/internal/models"
	"github.com/sonicframe/atlas-bridge/internal/registry"
)

func categoryPtr(c models.Category) *models.Category       { return &c }
func statePtr(s models.State) *models.State                { return &s }
func importancePtr(i models.Importance) *models.Importance { return &i }
func floatPtr(f float64) *float64                          { return &f }

func seedQueryFixtures(t *testing.T, reg *registry.Registry) (save, cancel, nav *models.Entity) {
	t.Helper()
	save = reg.Register(registry.RegisterConfig{
		Name:          "Save Report",
		ComponentPath: "/form/save",
		Category:      models.CategoryAction,
		Importance:    models.ImportanceCritical,
	})
	cancel = reg.Register(registry.RegisterConfig{
		Name:          "Cancel",
		ComponentPath: "/form/cancel",
		Category:      models.CategoryAction,
		State:         models.StateDisabled,
	})
	nav = reg.Register(registry.RegisterConfig{
		Name:          "Reports",
		ComponentPath: "/nav/reports",
		Category:      models.CategoryNavigation,
	})
	return save, cancel, nav
}

func TestQuery_EmptyFiltersReturnEverything(t *testing.T) {
	reg := newTestRegistry()
	seedQueryFixtures(t, reg)

	assert.Len(t, reg.Query(registry.Filters{}), 3)
}

func TestQuery_Conjunction(t *testing.T) {
	reg := newTestRegistry()
	save, _, _ := seedQueryFixtures(t, reg)

	got := reg.Query(registry.Filters{
		Category:   categoryPtr(models.CategoryAction),
		Importance: importancePtr(models.ImportanceCritical),
	})
	require.Len(t, got, 1)
	assert.Equal(t, save.ID, got[0].ID)
}

func TestQuery_StateFilter(t *testing.T) {
	reg := newTestRegistry()
	_, cancel, _ := seedQueryFixtures(t, reg)

	got := reg.Query(registry.Filters{State: statePtr(models.StateDisabled)})
	require.Len(t, got, 1)
	assert.Equal(t, cancel.ID, got[0].ID)
}

func TestQuery_NamePatternRegex(t *testing.T) {
	reg := newTestRegistry()
	save, _, nav := seedQueryFixtures(t, reg)

	got := reg.Query(registry.Filters{NamePattern: "^save"})
	require.Len(t, got, 1)
	assert.Equal(t, save.ID, got[0].ID)

	// Case-insensitive by construction.
	got = reg.Query(registry.Filters{NamePattern: "REPORT"})
	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{save.ID, nav.ID}, ids)
}

func TestQuery_InvalidPatternFallsBackToSubstring(t *testing.T) {
	reg := newTestRegistry()
	seedQueryFixtures(t, reg)

	// "[" does not compile as a regex; the filter degrades to a
	// case-insensitive substring match instead of failing.
	got := reg.Query(registry.Filters{NamePattern: "save ["})
	assert.Empty(t, got)

	// A broken pattern that is itself a substring of a name still matches.
	reg.Register(registry.RegisterConfig{
		Name:          "Weird [ Label",
		ComponentPath: "/weird",
		Category:      models.CategoryDisplay,
	})
	got = reg.Query(registry.Filters{NamePattern: "weird ["})
	require.Len(t, got, 1)
	assert.Equal(t, "Weird [ Label", got[0].Name)
}

func TestQuery_MinResonance(t *testing.T) {
	reg := newTestRegistry()
	seedQueryFixtures(t, reg)

	all := reg.Query(registry.Filters{MinResonance: floatPtr(0)})
	assert.Len(t, all, 3)

	none := reg.Query(registry.Filters{MinResonance: floatPtr(1.1)})
	assert.Empty(t, none)
}

func TestFilters_Empty(t *testing.T) {
	assert.True(t, (&registry.Filters{}).Empty())
	assert.True(t, (*registry.Filters)(nil).Empty())
	assert.False(t, (&registry.Filters{NamePattern: "x"}).Empty())
	assert.False(t, (&registry.Filters{Category: categoryPtr(models.CategoryAction)}).Empty())
}

func TestPerceptionSummary(t *testing.T) {
	reg := newTestRegistry()
	save, _, _ := seedQueryFixtures(t, reg)

	// Push one entity over the hotspot threshold (>0.5 needs >50 interactions).
	for i := 0; i < 60; i++ {
		require.True(t, reg.RecordInteraction(save.ID))
	}

	s := reg.PerceptionSummary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByCategory[models.CategoryAction])
	assert.Equal(t, 1, s.ByCategory[models.CategoryNavigation])
	assert.Equal(t, 1, s.ByState[models.StateDisabled])
	assert.Equal(t, 1, s.CriticalCount)
	assert.Equal(t, 1, s.HotspotCount)
	assert.Greater(t, s.AvgResonance, 0.0)
}

func TestPerceptionSummary_Empty(t *testing.T) {
	reg := newTestRegistry()
	s := reg.PerceptionSummary()
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgResonance)
}
