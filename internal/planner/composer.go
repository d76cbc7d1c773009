package planner

import (
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// ComposeInput carries everything the composer needs for one composition run.
type ComposeInput struct {
	Scenario    models.Scenario
	Constraints models.Constraints
	Steps       []models.StepCandidate
	Tools       []retrieval.ToolRecord
	Documents   []retrieval.ReferenceDocument
}

// WorkflowComposer runs the step pipeline, tool aggregation, safety/tip
// extraction, and metadata calculation to produce one Workflow value.
type WorkflowComposer struct {
	steps    *StepPipeline
	tools    *ToolAggregator
	safety   *SafetyAndTipsExtractor
	metadata *MetadataCalculator
	log      logger.Logger
}

// NewWorkflowComposer creates a composer with its stage components.
func NewWorkflowComposer(log logger.Logger) *WorkflowComposer {
	if log == nil {
		log = logger.Discard()
	}
	return &WorkflowComposer{
		steps:    NewStepPipeline(log),
		tools:    NewToolAggregator(),
		safety:   NewSafetyAndTipsExtractor(),
		metadata: NewMetadataCalculator(),
		log:      log,
	}
}

// Compose builds a Workflow from retrieved fragments. It is pure with
// respect to retrieval: all inputs arrive in the ComposeInput value, so the
// validation refiner can re-run it after merging extra steps.
func (c *WorkflowComposer) Compose(input ComposeInput) models.Workflow {
	formatted := c.steps.Compose(input.Steps, input.Scenario.NormalizedQuery, input.Scenario.DirtType)
	c.log.Debugf("step pipeline kept %d of %d candidates", len(formatted), len(input.Steps))

	requiredTools := c.tools.Aggregate(input.Tools, formatted)
	safetyNotes := c.safety.ExtractSafetyNotes(input.Documents, input.Constraints)
	tips := c.safety.ExtractTips(input.Documents)

	if len(input.Documents) < 2 {
		c.log.Warnf("reference corpus has only %d document(s), confidence may be low", len(input.Documents))
	}

	return models.Workflow{
		EstimatedDurationMinutes: c.metadata.DurationMinutes(formatted),
		Difficulty:               c.metadata.Difficulty(formatted),
		Steps:                    formatted,
		RequiredTools:            requiredTools,
		SafetyNotes:              safetyNotes,
		Tips:                     tips,
	}
}

// ConfidenceFor exposes the metadata confidence calculation for the
// orchestrator's final assembly.
func (c *WorkflowComposer) ConfidenceFor(documents []retrieval.ReferenceDocument) float64 {
	return c.metadata.Confidence(documents)
}
