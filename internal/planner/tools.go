package planner

import (
	"strings"

	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// quantityHints map tool-name substrings to estimated quantities.
var quantityHints = []struct {
	substring string
	quantity  string
}{
	{"towel", "several"},
	{"cloth", "several"},
	{"bottle", "1"},
	{"spray", "1"},
	{"vinegar", "1 cup"},
	{"water", "1 cup"},
	{"gloves", "1 pair"},
}

// ToolAggregator merges explicit tool records with tools mentioned inside
// composed steps.
type ToolAggregator struct{}

// NewToolAggregator creates a ToolAggregator.
func NewToolAggregator() *ToolAggregator {
	return &ToolAggregator{}
}

// Aggregate builds the required-tool list. Retrieved records seed the map;
// any tool name mentioned in a step but absent from retrieval is added as
// required with no category. ToolName is the dedup key.
func (a *ToolAggregator) Aggregate(records []retrieval.ToolRecord, steps []models.FormattedStep) []models.RequiredTool {
	byName := make(map[string]models.RequiredTool)
	var order []string

	for _, record := range records {
		name := strings.ToLower(strings.TrimSpace(record.ToolName))
		if name == "" {
			continue
		}
		if _, exists := byName[name]; exists {
			continue
		}
		byName[name] = models.RequiredTool{
			ToolName:   name,
			Category:   record.Category,
			Quantity:   estimateQuantity(name),
			IsRequired: record.IsPrimary,
		}
		order = append(order, name)
	}

	for _, step := range steps {
		for _, tool := range step.Tools {
			name := strings.ToLower(strings.TrimSpace(tool))
			if name == "" {
				continue
			}
			if _, exists := byName[name]; exists {
				continue
			}
			byName[name] = models.RequiredTool{
				ToolName:   name,
				Quantity:   estimateQuantity(name),
				IsRequired: true,
			}
			order = append(order, name)
		}
	}

	tools := make([]models.RequiredTool, 0, len(order))
	for _, name := range order {
		tools = append(tools, byName[name])
	}
	return tools
}

// estimateQuantity is a fixed lookup keyed on tool-name substrings.
func estimateQuantity(name string) string {
	for _, hint := range quantityHints {
		if strings.Contains(name, hint.substring) {
			return hint.quantity
		}
	}
	return "1"
}
