package planner

import (
	"context"
	"strings"

	"github.com/harrison/cleanplan/internal/config"
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// similarScenarioLimit caps how many similar scenarios the refiner consults
// when topping up a short workflow.
const similarScenarioLimit = 3

// ValidationRefiner enforces the minimum step count. A workflow that falls
// short triggers one similar-scenario top-up and recomposition; a workflow
// still short of the absolute minimum afterwards is a domain error.
type ValidationRefiner struct {
	port     retrieval.Port
	composer *WorkflowComposer
	cfg      *config.Config
	log      logger.Logger
}

// NewValidationRefiner creates a ValidationRefiner.
func NewValidationRefiner(port retrieval.Port, composer *WorkflowComposer, cfg *config.Config, log logger.Logger) *ValidationRefiner {
	if log == nil {
		log = logger.Discard()
	}
	return &ValidationRefiner{port: port, composer: composer, cfg: cfg, log: log}
}

// Refine validates the composed workflow and returns the refined result.
// The returned input reflects any merged step candidates so the caller can
// audit what the retry added.
func (r *ValidationRefiner) Refine(ctx context.Context, input ComposeInput, workflow models.Workflow) (models.Workflow, error) {
	effectiveMin := r.effectiveMinSteps(len(workflow.Steps))

	if len(workflow.Steps) < effectiveMin {
		r.log.Infof("workflow has %d steps, below minimum %d, retrying with similar scenarios",
			len(workflow.Steps), effectiveMin)

		merged, err := r.topUpSteps(ctx, input, workflow)
		if err != nil {
			return workflow, err
		}
		if len(merged) > len(input.Steps) {
			input.Steps = merged
			workflow = r.composer.Compose(input)
		}

		absoluteMin := r.cfg.MinSteps
		if r.cfg.AllowFewerSteps {
			absoluteMin = 2
		}
		if len(workflow.Steps) < absoluteMin {
			return workflow, models.NewInsufficientStepsError(len(workflow.Steps), absoluteMin)
		}
	}

	r.checkToolReferences(workflow)
	workflow = r.applyToolConstraints(workflow, input.Constraints)
	return workflow, nil
}

// effectiveMinSteps relaxes the configured minimum by one (floor 2) when
// relaxed mode is enabled and at least two steps were composed.
func (r *ValidationRefiner) effectiveMinSteps(stepCount int) int {
	if r.cfg.AllowFewerSteps && stepCount >= 2 {
		relaxed := r.cfg.MinSteps - 1
		if relaxed < 2 {
			relaxed = 2
		}
		return relaxed
	}
	return r.cfg.MinSteps
}

// topUpSteps queries similar scenarios and accumulates non-duplicate step
// candidates until the deficit is met or candidates are exhausted.
func (r *ValidationRefiner) topUpSteps(ctx context.Context, input ComposeInput, workflow models.Workflow) ([]models.StepCandidate, error) {
	deficit := r.cfg.MinSteps - len(workflow.Steps)
	if deficit <= 0 {
		return input.Steps, nil
	}

	similar, err := r.port.SearchSimilarScenarios(ctx, input.Scenario.SurfaceType, input.Scenario.DirtType, true, similarScenarioLimit)
	if err != nil {
		return nil, models.NewRetrievalError("search_similar_scenarios", err)
	}

	seen := make(map[string]bool)
	for _, step := range workflow.Steps {
		seen[strings.ToLower(strings.TrimSpace(step.Description))] = true
	}
	for _, candidate := range input.Steps {
		seen[strings.ToLower(strings.TrimSpace(candidate.StepText))] = true
	}

	merged := append([]models.StepCandidate(nil), input.Steps...)
	added := 0
	for _, combo := range similar.SimilarCombinations {
		if added >= deficit {
			break
		}
		result, err := r.port.FetchSteps(ctx, combo.SurfaceType, combo.DirtType, combo.CleaningMethod, deficit-added)
		if err != nil {
			return nil, models.NewRetrievalError("fetch_steps", err)
		}
		for _, candidate := range result.Steps {
			if added >= deficit {
				break
			}
			key := strings.ToLower(strings.TrimSpace(candidate.StepText))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, candidate)
			added++
		}
	}

	r.log.Debugf("similar-scenario retry added %d step candidate(s)", added)
	return merged, nil
}

// checkToolReferences warns about steps that mention tools missing from the
// aggregated tool list. Non-fatal.
func (r *ValidationRefiner) checkToolReferences(workflow models.Workflow) {
	known := make(map[string]bool, len(workflow.RequiredTools))
	for _, tool := range workflow.RequiredTools {
		known[tool.ToolName] = true
	}
	for _, step := range workflow.Steps {
		for _, tool := range step.Tools {
			if !known[strings.ToLower(tool)] {
				r.log.Warnf("step %d references tool %q missing from required tools", step.StepNumber, tool)
			}
		}
	}
}

// applyToolConstraints strips bleach-based tools when no_bleach is set.
func (r *ValidationRefiner) applyToolConstraints(workflow models.Workflow, constraints models.Constraints) models.Workflow {
	if !constraints.NoBleach {
		return workflow
	}
	var kept []models.RequiredTool
	for _, tool := range workflow.RequiredTools {
		if strings.Contains(strings.ToLower(tool.ToolName), "bleach") {
			r.log.Infof("removing tool %q due to no_bleach constraint", tool.ToolName)
			continue
		}
		kept = append(kept, tool)
	}
	workflow.RequiredTools = kept
	return workflow
}
