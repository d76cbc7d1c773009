package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

func TestAggregateSeedsFromRecords(t *testing.T) {
	a := NewToolAggregator()
	records := []retrieval.ToolRecord{
		{ToolName: "Vacuum", Category: "equipment", IsPrimary: true},
		{ToolName: "cloth", Category: "textile", IsPrimary: false},
	}

	tools := a.Aggregate(records, nil)

	require.Len(t, tools, 2)
	assert.Equal(t, "vacuum", tools[0].ToolName)
	assert.True(t, tools[0].IsRequired)
	assert.Equal(t, "equipment", tools[0].Category)
	assert.False(t, tools[1].IsRequired)
}

func TestAggregateAddsStepTools(t *testing.T) {
	a := NewToolAggregator()
	records := []retrieval.ToolRecord{
		{ToolName: "cloth", IsPrimary: true},
	}
	steps := []models.FormattedStep{
		{Tools: []string{"cloth", "sponge"}},
		{Tools: []string{"sponge", "gloves"}},
	}

	tools := a.Aggregate(records, steps)

	require.Len(t, tools, 3)
	names := []string{tools[0].ToolName, tools[1].ToolName, tools[2].ToolName}
	assert.Equal(t, []string{"cloth", "sponge", "gloves"}, names)
	// Tools discovered in steps are required with no category.
	assert.True(t, tools[1].IsRequired)
	assert.Empty(t, tools[1].Category)
}

func TestAggregateDedupsByName(t *testing.T) {
	a := NewToolAggregator()
	records := []retrieval.ToolRecord{
		{ToolName: "cloth", IsPrimary: true},
		{ToolName: "Cloth", IsPrimary: false},
	}

	tools := a.Aggregate(records, nil)

	require.Len(t, tools, 1)
	assert.True(t, tools[0].IsRequired, "first record wins")
}

func TestEstimateQuantity(t *testing.T) {
	cases := map[string]string{
		"paper towel":      "several",
		"microfiber cloth": "several",
		"spray bottle":     "1",
		"white vinegar":    "1 cup",
		"rubber gloves":    "1 pair",
		"sponge":           "1",
	}
	for name, want := range cases {
		assert.Equal(t, want, estimateQuantity(name), "quantity for %s", name)
	}
}
