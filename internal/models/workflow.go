package models

import "time"

// StepCandidate is a raw extracted step retrieved from the corpus.
// Confidence reflects upstream extraction quality, not engine scoring.
type StepCandidate struct {
	StepOrder   int     `json:"step_order"`
	StepText    string  `json:"step_text"`
	DocumentID  string  `json:"document_id"`
	Confidence  float64 `json:"confidence"`
	StepSummary string  `json:"step_summary,omitempty"`
}

// MethodCandidate aggregates corpus coverage for one cleaning method on a
// (surface, dirt) combination.
type MethodCandidate struct {
	CleaningMethod  string   `json:"cleaning_method"`
	DocumentCount   int      `json:"document_count"`
	AvgConfidence   float64  `json:"avg_confidence"`
	AvgSteps        float64  `json:"avg_steps"`
	AvgQualityScore float64  `json:"avg_quality_score"`
	CommonTools     []string `json:"common_tools,omitempty"`
}

// FormattedStep is a composed output step. StepNumber and Order are always
// equal to the 1-based position after final ordering.
type FormattedStep struct {
	StepNumber      int      `json:"step_number"`
	Action          string   `json:"action"`
	Description     string   `json:"description"`
	Tools           []string `json:"tools"`
	DurationSeconds int      `json:"duration_seconds"`
	Order           int      `json:"order"`
}

// RequiredTool is an aggregated tool requirement. ToolName is the dedup key.
type RequiredTool struct {
	ToolName   string `json:"tool_name"`
	Category   string `json:"category,omitempty"`
	Quantity   string `json:"quantity"`
	IsRequired bool   `json:"is_required"`
}

// Difficulty levels derived from step count.
const (
	DifficultyEasy     = "easy"
	DifficultyModerate = "moderate"
	DifficultyHard     = "hard"
)

// Workflow is the composed cleaning procedure.
type Workflow struct {
	EstimatedDurationMinutes int             `json:"estimated_duration_minutes"`
	Difficulty               string          `json:"difficulty"`
	Steps                    []FormattedStep `json:"steps"`
	RequiredTools            []RequiredTool  `json:"required_tools"`
	SafetyNotes              []string        `json:"safety_notes"`
	Tips                     []string        `json:"tips"`
}

// MethodScore records how one candidate method scored during selection.
type MethodScore struct {
	Method string  `json:"method"`
	Score  float64 `json:"score"`
}

// MethodSelectionResult is the audit trail of method selection, always
// retained so the caller can inspect why a method was chosen.
type MethodSelectionResult struct {
	ChosenMethod    string        `json:"chosen_method,omitempty"`
	Candidates      []MethodScore `json:"candidates"`
	SelectionReason string        `json:"selection_reason"`
}

// SourceDocument cites a corpus document that contributed to a workflow.
type SourceDocument struct {
	DocumentID           string  `json:"document_id"`
	URL                  string  `json:"url,omitempty"`
	Title                string  `json:"title,omitempty"`
	ExtractionConfidence float64 `json:"extraction_confidence,omitempty"`
}

// PlanMetadata carries derived quality signals and the selection audit trail.
type PlanMetadata struct {
	Confidence      float64               `json:"confidence"`
	GeneratedAt     time.Time             `json:"generated_at"`
	MethodSelection MethodSelectionResult `json:"method_selection"`
}

// PlanResult is the final output of a planning request.
type PlanResult struct {
	WorkflowID      string           `json:"workflow_id"`
	Scenario        Scenario         `json:"scenario"`
	Workflow        Workflow         `json:"workflow"`
	SourceDocuments []SourceDocument `json:"source_documents"`
	Metadata        PlanMetadata     `json:"metadata"`
}
