package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sonicframe/atlas-bridge/internal/models"
)

func TestCategoryIsValid(t *testing.T) {
	for _, c := range models.ValidCategories {
		assert.True(t, c.IsValid(), "category %s", c)
	}
	assert.False(t, models.Category("widget").IsValid())
	assert.False(t, models.Category("").IsValid())
}

func TestStateIsValid(t *testing.T) {
	for _, s := range models.ValidStates {
		assert.True(t, s.IsValid(), "state %s", s)
	}
	assert.False(t, models.State("confused").IsValid())
}

func TestImportanceIsValid(t *testing.T) {
	for _, imp := range models.ValidImportances {
		assert.True(t, imp.IsValid(), "importance %s", imp)
	}
	assert.False(t, models.Importance("extreme").IsValid())
}

func TestCapabilityNames(t *testing.T) {
	ent := &models.Entity{
		Capabilities: []models.Capability{
			{Name: "Save", Action: "save"},
			{Name: "Discard", Action: "discard"},
		},
	}
	assert.Equal(t, []string{"Save", "Discard"}, ent.CapabilityNames())

	assert.Empty(t, (&models.Entity{}).CapabilityNames())
}

func TestRequiredParameters_SortedAndFiltered(t *testing.T) {
	c := &models.Capability{
		Parameters: map[string]models.ParameterSpec{
			"zeta":  {Type: "string", Required: true},
			"alpha": {Type: "string", Required: true},
			"hint":  {Type: "string"},
		},
	}
	assert.Equal(t, []string{"alpha", "zeta"}, c.RequiredParameters())

	assert.Empty(t, (&models.Capability{}).RequiredParameters())
}
