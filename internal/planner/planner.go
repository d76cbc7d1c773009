package planner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/cleanplan/internal/config"
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/normalizer"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// PlanRequest is the caller-facing planning input.
type PlanRequest struct {
	Query          string             `json:"query"`
	SurfaceType    string             `json:"surface_type,omitempty"`
	DirtType       string             `json:"dirt_type,omitempty"`
	CleaningMethod string             `json:"cleaning_method,omitempty"`
	Constraints    models.Constraints `json:"constraints,omitempty"`
	Context        string             `json:"context,omitempty"`
}

// Planner drives the four planning phases: parse and normalize, fetch and
// retrieve, compose and generate, validate and refine. Each request runs the
// phases strictly in order on the calling goroutine; all per-request state
// lives in locals.
type Planner struct {
	port       retrieval.Port
	normalizer *normalizer.Normalizer
	selector   *MethodSelector
	composer   *WorkflowComposer
	refiner    *ValidationRefiner
	cfg        *config.Config
	log        logger.Logger
}

// New creates a Planner backed by the given retrieval port.
func New(port retrieval.Port, cfg *config.Config, log logger.Logger) *Planner {
	if log == nil {
		log = logger.Discard()
	}
	composer := NewWorkflowComposer(log)
	return &Planner{
		port:       port,
		normalizer: normalizer.New(log),
		selector:   NewMethodSelector(log),
		composer:   composer,
		refiner:    NewValidationRefiner(port, composer, cfg, log),
		cfg:        cfg,
		log:        log,
	}
}

// Plan runs a full planning request and assembles the final result.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (*models.PlanResult, error) {
	// Phase 1: parse and normalize.
	scenario, userMethod, err := p.parseAndNormalize(req)
	if err != nil {
		return nil, err
	}
	p.log.Infof("scenario: surface=%s dirt=%s wool=%v", scenario.SurfaceType, scenario.DirtType, scenario.IsWool)

	// Phase 2: fetch and retrieve.
	selection, input, err := p.fetchAndRetrieve(ctx, &scenario, userMethod, req.Constraints)
	if err != nil {
		return nil, err
	}

	// Phase 3: compose and generate.
	workflow := p.composer.Compose(*input)

	// Phase 4: validate and refine.
	workflow, err = p.refiner.Refine(ctx, *input, workflow)
	if err != nil {
		return nil, err
	}

	return p.assembleResult(scenario, workflow, selection, input.Documents), nil
}

// parseAndNormalize resolves the scenario dimensions from explicit values or
// the query text. Invalid explicit values are dropped with a warning; an
// unresolved surface or dirt type fails fast.
func (p *Planner) parseAndNormalize(req PlanRequest) (models.Scenario, string, error) {
	surface := ""
	if req.SurfaceType != "" {
		if normalized := p.normalizer.NormalizeSurface(req.SurfaceType); normalized != "" && models.IsCanonicalSurface(normalized) {
			surface = normalized
		} else {
			p.log.Warnf("ignoring invalid surface_type %q", req.SurfaceType)
		}
	}

	dirt := ""
	if req.DirtType != "" {
		if normalized := p.normalizer.NormalizeDirt(req.DirtType); normalized != "" && models.IsCanonicalDirtType(normalized) {
			dirt = normalized
		} else {
			p.log.Warnf("ignoring invalid dirt_type %q", req.DirtType)
		}
	}

	userMethod := ""
	requested := req.CleaningMethod
	if requested == "" {
		requested = req.Constraints.PreferredMethod
	}
	if requested != "" {
		if normalized := p.normalizer.NormalizeMethod(requested); normalized != "" && models.IsCanonicalMethod(normalized) {
			userMethod = normalized
		} else {
			p.log.Warnf("ignoring invalid cleaning_method %q", requested)
		}
	}

	extractedSurface, extractedDirt, extractedMethod := p.normalizer.ExtractAndNormalize(req.Query)
	if surface == "" {
		surface = extractedSurface
	}
	if dirt == "" {
		dirt = extractedDirt
	}
	if userMethod == "" {
		userMethod = extractedMethod
	}

	if surface == "" {
		return models.Scenario{}, "", models.NewAmbiguousQueryError("could not determine surface type from query or input")
	}
	if dirt == "" {
		return models.Scenario{}, "", models.NewAmbiguousQueryError("could not determine dirt type from query or input")
	}

	scenario := models.Scenario{
		SurfaceType:     surface,
		DirtType:        dirt,
		NormalizedQuery: strings.TrimSpace(strings.ToLower(req.Query)),
		IsWool:          p.normalizer.DetectWoolNuance(req.Query),
	}
	return scenario, userMethod, nil
}

// fetchAndRetrieve fetches method candidates (substituting a similar
// scenario once if none exist), selects the method, and retrieves steps,
// tools, and reference context for the selected scenario.
func (p *Planner) fetchAndRetrieve(ctx context.Context, scenario *models.Scenario, userMethod string, constraints models.Constraints) (models.MethodSelectionResult, *ComposeInput, error) {
	methods, err := p.port.FetchMethods(ctx, scenario.SurfaceType, scenario.DirtType)
	if err != nil {
		return models.MethodSelectionResult{}, nil, models.NewRetrievalError("fetch_methods", err)
	}

	var suggestions []models.SimilarMatch
	if len(methods.Methods) == 0 {
		similar, err := p.port.SearchSimilarScenarios(ctx, scenario.SurfaceType, scenario.DirtType, true, similarScenarioLimit)
		if err != nil {
			return models.MethodSelectionResult{}, nil, models.NewRetrievalError("search_similar_scenarios", err)
		}
		for _, combo := range similar.SimilarCombinations {
			suggestions = append(suggestions, models.SimilarMatch{
				SurfaceType:     combo.SurfaceType,
				DirtType:        combo.DirtType,
				CleaningMethod:  combo.CleaningMethod,
				SimilarityScore: combo.SimilarityScore,
			})
		}
		if len(similar.SimilarCombinations) > 0 {
			top := similar.SimilarCombinations[0]
			p.log.Infof("no methods for (%s, %s), substituting similar scenario (%s, %s)",
				scenario.SurfaceType, scenario.DirtType, top.SurfaceType, top.DirtType)
			scenario.SurfaceType = top.SurfaceType
			scenario.DirtType = top.DirtType
			scenario.CleaningMethod = top.CleaningMethod

			methods, err = p.port.FetchMethods(ctx, scenario.SurfaceType, scenario.DirtType)
			if err != nil {
				return models.MethodSelectionResult{}, nil, models.NewRetrievalError("fetch_methods", err)
			}
		}
	}
	if len(methods.Methods) == 0 {
		return models.MethodSelectionResult{}, nil, models.NewNoMatchFoundError(
			"no cleaning methods found for scenario", suggestions)
	}

	selection := p.selector.Select(methods.Methods, userMethod, constraints,
		scenario.NormalizedQuery, scenario.DirtType, scenario.IsWool)
	if selection.ChosenMethod == "" {
		return models.MethodSelectionResult{}, nil, models.NewNoMatchFoundError(
			"method selection produced no usable method", suggestions)
	}
	scenario.CleaningMethod = selection.ChosenMethod
	p.log.Infof("selected method %s (%s)", selection.ChosenMethod, selection.SelectionReason)

	steps, err := p.port.FetchSteps(ctx, scenario.SurfaceType, scenario.DirtType, scenario.CleaningMethod, p.cfg.StepFetchLimit)
	if err != nil {
		return models.MethodSelectionResult{}, nil, models.NewRetrievalError("fetch_steps", err)
	}

	tools, err := p.port.FetchTools(ctx, scenario.SurfaceType, scenario.DirtType, scenario.CleaningMethod)
	if err != nil {
		return models.MethodSelectionResult{}, nil, models.NewRetrievalError("fetch_tools", err)
	}

	documents, err := p.fetchReferenceDocuments(ctx, steps.Steps)
	if err != nil {
		return models.MethodSelectionResult{}, nil, err
	}

	input := &ComposeInput{
		Scenario:    *scenario,
		Constraints: constraints,
		Steps:       steps.Steps,
		Tools:       tools.Tools,
		Documents:   documents,
	}
	return selection, input, nil
}

// fetchReferenceDocuments pulls context for distinct document IDs drawn from
// the fetched steps, capped by the configured reference limit.
func (p *Planner) fetchReferenceDocuments(ctx context.Context, steps []models.StepCandidate) ([]retrieval.ReferenceDocument, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, step := range steps {
		if step.DocumentID == "" || seen[step.DocumentID] {
			continue
		}
		seen[step.DocumentID] = true
		ids = append(ids, step.DocumentID)
		if len(ids) >= p.cfg.ReferenceDocLimit {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	result, err := p.port.FetchReferenceContext(ctx, ids, true, true)
	if err != nil {
		return nil, models.NewRetrievalError("fetch_reference_context", err)
	}
	return result.Documents, nil
}

// assembleResult stamps identity and metadata onto the final plan, citing
// each source document once.
func (p *Planner) assembleResult(scenario models.Scenario, workflow models.Workflow, selection models.MethodSelectionResult, documents []retrieval.ReferenceDocument) *models.PlanResult {
	var sources []models.SourceDocument
	seen := make(map[string]bool)
	for _, doc := range documents {
		if doc.DocumentID == "" || seen[doc.DocumentID] {
			continue
		}
		seen[doc.DocumentID] = true
		sources = append(sources, models.SourceDocument{
			DocumentID:           doc.DocumentID,
			URL:                  doc.URL,
			Title:                doc.Title,
			ExtractionConfidence: doc.ExtractionConfidence,
		})
	}

	return &models.PlanResult{
		WorkflowID:      uuid.New().String(),
		Scenario:        scenario,
		Workflow:        workflow,
		SourceDocuments: sources,
		Metadata: models.PlanMetadata{
			Confidence:      p.composer.ConfidenceFor(documents),
			GeneratedAt:     time.Now().UTC(),
			MethodSelection: selection,
		},
	}
}
