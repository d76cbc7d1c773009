// Package retrieval defines the read-only corpus queries the planner depends
// on, plus a SQLite-backed implementation.
package retrieval

import (
	"context"

	"github.com/harrison/cleanplan/internal/models"
)

// ToolRecord is a raw tool row aggregated across corpus documents.
type ToolRecord struct {
	ToolName         string  `json:"tool_name"`
	UsageCount       int     `json:"usage_count"`
	AvgConfidence    float64 `json:"avg_confidence"`
	Category         string  `json:"category,omitempty"`
	IsPrimary        bool    `json:"is_primary"`
	MentionedInSteps int     `json:"mentioned_in_steps"`
}

// ReferenceDocument is a corpus document with its extracted steps and tools,
// used for safety/tip extraction and provenance.
type ReferenceDocument struct {
	DocumentID           string                 `json:"document_id"`
	URL                  string                 `json:"url,omitempty"`
	Title                string                 `json:"title,omitempty"`
	ExtractionConfidence float64                `json:"extraction_confidence"`
	Steps                []models.StepCandidate `json:"steps,omitempty"`
	Tools                []ToolRecord           `json:"tools,omitempty"`
}

// SimilarScenario is a fuzzy-matched (surface, dirt, method) combination.
type SimilarScenario struct {
	SurfaceType             string  `json:"surface_type"`
	DirtType                string  `json:"dirt_type"`
	CleaningMethod          string  `json:"cleaning_method"`
	DocumentCount           int     `json:"document_count"`
	AvgExtractionConfidence float64 `json:"avg_extraction_confidence"`
	SimilarityScore         float64 `json:"similarity_score"`
}

// MethodsResult holds method candidates for a (surface, dirt) combination.
type MethodsResult struct {
	Methods []models.MethodCandidate `json:"methods"`
}

// StepsResult holds step candidates for a (surface, dirt, method) scenario.
type StepsResult struct {
	Steps           []models.StepCandidate `json:"steps"`
	TotalSteps      int                    `json:"total_steps"`
	UniqueDocuments int                    `json:"unique_documents"`
}

// ToolsResult holds aggregated tool records for a scenario.
type ToolsResult struct {
	Tools []ToolRecord `json:"tools"`
}

// ContextResult holds reference documents fetched by ID.
type ContextResult struct {
	Documents []ReferenceDocument `json:"documents"`
}

// SimilarResult holds similar-scenario matches.
type SimilarResult struct {
	SimilarCombinations []SimilarScenario `json:"similar_combinations"`
}

// Port is the set of corpus queries the planning engine consumes. All
// operations are idempotent reads; the engine issues them sequentially and
// never caches results across requests.
type Port interface {
	FetchMethods(ctx context.Context, surfaceType, dirtType string) (*MethodsResult, error)
	FetchSteps(ctx context.Context, surfaceType, dirtType, cleaningMethod string, limit int) (*StepsResult, error)
	FetchTools(ctx context.Context, surfaceType, dirtType, cleaningMethod string) (*ToolsResult, error)
	FetchReferenceContext(ctx context.Context, documentIDs []string, includeSteps, includeTools bool) (*ContextResult, error)
	SearchSimilarScenarios(ctx context.Context, surfaceType, dirtType string, fuzzyMatch bool, limit int) (*SimilarResult, error)
}
