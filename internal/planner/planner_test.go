package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/cleanplan/internal/config"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// woolStainPort seeds a small carpet-stain corpus: three method candidates
// and a four-step spot_clean recipe drawn from one document.
func woolStainPort() *fakePort {
	return &fakePort{
		methods: map[string][]models.MethodCandidate{
			scenarioKey("carpet", "stain"): {
				{CleaningMethod: "vacuum", DocumentCount: 30, AvgConfidence: 0.9},
				{CleaningMethod: "spot_clean", DocumentCount: 12, AvgConfidence: 0.85},
				{CleaningMethod: "scrub", DocumentCount: 5, AvgConfidence: 0.7},
			},
		},
		steps: map[string][]models.StepCandidate{
			scenarioKey("carpet", "stain", "spot_clean"): {
				{StepOrder: 1, StepText: "Mix dish soap with two cups of cool water", DocumentID: "doc-wool-1", Confidence: 0.9},
				{StepOrder: 2, StepText: "Apply the solution to the stain with a sponge", DocumentID: "doc-wool-1", Confidence: 0.85},
				{StepOrder: 3, StepText: "Let it sit for 5 minutes", DocumentID: "doc-wool-1", Confidence: 0.8},
				{StepOrder: 4, StepText: "Blot the stain with a dry cloth", DocumentID: "doc-wool-1", Confidence: 0.9},
			},
		},
		tools: map[string][]retrieval.ToolRecord{
			scenarioKey("carpet", "stain", "spot_clean"): {
				{ToolName: "dish soap", Category: "cleaning_agent", IsPrimary: true, UsageCount: 8},
			},
		},
		docs: map[string]retrieval.ReferenceDocument{
			"doc-wool-1": {
				DocumentID:           "doc-wool-1",
				Title:                "Treating stains on wool carpet",
				URL:                  "https://example.com/wool-stains",
				ExtractionConfidence: 0.85,
			},
		},
	}
}

func TestPlanWineStainOnWoolCarpet(t *testing.T) {
	p := New(woolStainPort(), config.DefaultConfig(), nil)

	result, err := p.Plan(context.Background(), PlanRequest{
		Query: "remove red wine stain from wool carpet",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.WorkflowID)

	assert.Equal(t, "carpet", result.Scenario.SurfaceType)
	assert.Equal(t, "stain", result.Scenario.DirtType)
	assert.Equal(t, "spot_clean", result.Scenario.CleaningMethod)
	assert.True(t, result.Scenario.IsWool)

	assert.Equal(t, "spot_clean", result.Metadata.MethodSelection.ChosenMethod)

	require.Len(t, result.Workflow.Steps, 4)
	for i, step := range result.Workflow.Steps {
		assert.Equal(t, i+1, step.StepNumber)
	}
	// Natural sequence: prep, apply, wait, clean.
	assert.Equal(t, "Mix dish soap with two cups of cool water", result.Workflow.Steps[0].Description)
	assert.Equal(t, "Apply the solution to the stain with a sponge", result.Workflow.Steps[1].Description)
	assert.Equal(t, "Let it sit for 5 minutes", result.Workflow.Steps[2].Description)
	assert.Equal(t, "Blot the stain with a dry cloth", result.Workflow.Steps[3].Description)

	assert.Equal(t, 300, result.Workflow.Steps[2].DurationSeconds, "explicit 5 minute mention")
	assert.Equal(t, models.DifficultyModerate, result.Workflow.Difficulty)

	var toolNames []string
	for _, tool := range result.Workflow.RequiredTools {
		toolNames = append(toolNames, tool.ToolName)
	}
	assert.Contains(t, toolNames, "dish soap")
	assert.Contains(t, toolNames, "sponge")

	require.Len(t, result.SourceDocuments, 1)
	assert.Equal(t, "doc-wool-1", result.SourceDocuments[0].DocumentID)
	assert.InDelta(t, 0.85, result.Metadata.Confidence, 0.001)
}

func TestPlanExplicitFieldsOverrideQuery(t *testing.T) {
	port := woolStainPort()
	p := New(port, config.DefaultConfig(), nil)

	// The query alone would resolve nothing; the explicit fields carry it.
	result, err := p.Plan(context.Background(), PlanRequest{
		Query:          "help with this mess please",
		SurfaceType:    "rug",
		DirtType:       "wine",
		CleaningMethod: "spot clean",
	})

	require.NoError(t, err)
	assert.Equal(t, "carpet", result.Scenario.SurfaceType)
	assert.Equal(t, "stain", result.Scenario.DirtType)
	assert.Equal(t, "spot_clean", result.Scenario.CleaningMethod)
	assert.Equal(t, "user-requested method", result.Metadata.MethodSelection.SelectionReason)
}

func TestPlanAmbiguousQuery(t *testing.T) {
	p := New(&fakePort{}, config.DefaultConfig(), nil)

	_, err := p.Plan(context.Background(), PlanRequest{Query: "please help me"})

	require.Error(t, err)
	assert.Equal(t, models.ErrKindAmbiguousQuery, models.KindOf(err))
}

func TestPlanNoMatchFound(t *testing.T) {
	// Corpus knows nothing about tile odors and has no similar scenarios.
	p := New(&fakePort{}, config.DefaultConfig(), nil)

	_, err := p.Plan(context.Background(), PlanRequest{Query: "odor coming from the tile floor"})

	require.Error(t, err)
	assert.Equal(t, models.ErrKindNoMatchFound, models.KindOf(err))
}

func TestPlanNoMatchFoundCarriesSuggestions(t *testing.T) {
	port := &fakePort{
		similar: []retrieval.SimilarScenario{
			{SurfaceType: "tile", DirtType: "mold", CleaningMethod: "scrub", SimilarityScore: 0.5},
		},
	}
	// The substitution refetch also comes back empty, so the suggestions
	// surface in the error instead.
	p := New(port, config.DefaultConfig(), nil)

	_, err := p.Plan(context.Background(), PlanRequest{Query: "odor coming from the tile floor"})

	require.Error(t, err)
	var planErr *models.PlanError
	require.True(t, errors.As(err, &planErr))
	assert.Equal(t, models.ErrKindNoMatchFound, planErr.Kind)
	require.Len(t, planErr.Suggestions, 1)
	assert.Equal(t, "mold", planErr.Suggestions[0].DirtType)
}

func TestPlanSubstitutesSimilarScenario(t *testing.T) {
	port := woolStainPort()
	port.similar = []retrieval.SimilarScenario{
		{SurfaceType: "carpet", DirtType: "stain", CleaningMethod: "spot_clean", SimilarityScore: 0.5},
	}
	p := New(port, config.DefaultConfig(), nil)

	// No corpus coverage for (upholstery, odor); the planner borrows the
	// closest covered scenario and plans against it.
	result, err := p.Plan(context.Background(), PlanRequest{
		Query: "remove the odor from the upholstery",
	})

	require.NoError(t, err)
	assert.Equal(t, "carpet", result.Scenario.SurfaceType)
	assert.Equal(t, "stain", result.Scenario.DirtType)
	require.Len(t, result.Workflow.Steps, 4)
}

func TestPlanRetrievalFailure(t *testing.T) {
	p := New(&fakePort{err: errors.New("database is locked")}, config.DefaultConfig(), nil)

	_, err := p.Plan(context.Background(), PlanRequest{Query: "wine stain on the carpet"})

	require.Error(t, err)
	assert.Equal(t, models.ErrKindRetrievalFailure, models.KindOf(err))
	assert.ErrorContains(t, err, "database is locked")
}
