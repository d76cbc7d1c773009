package planner

import (
	"strings"
	"unicode"

	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

const (
	maxSafetyNotes = 10
	maxTips        = 5
	minSentenceLen = 20
)

// safetyKeywords flag sentences worth surfacing as safety notes.
var safetyKeywords = []string{
	"warning", "caution", "danger", "safety", "ventilate", "gloves",
	"test", "damage", "toxic", "harmful",
}

// tipKeywords flag sentences worth surfacing as tips.
var tipKeywords = []string{
	"tip", "trick", "best", "easier", "faster", "pro tip", "hint",
	"works well", "effective", "avoid",
}

// constraintNotes are appended unconditionally when the matching constraint
// is set.
const (
	noteNoBleach = "Do not use bleach or bleach-based products on this surface."
	noteNoHarsh  = "Use only gentle, non-abrasive cleaning products."
	noteGentle   = "Use gentle methods only; avoid aggressive scrubbing."
)

// SafetyAndTipsExtractor pulls safety notes and tips out of reference
// documents via keyword heuristics.
type SafetyAndTipsExtractor struct{}

// NewSafetyAndTipsExtractor creates a SafetyAndTipsExtractor.
func NewSafetyAndTipsExtractor() *SafetyAndTipsExtractor {
	return &SafetyAndTipsExtractor{}
}

// ExtractSafetyNotes scans every step of every reference document for safety
// sentences, then appends constraint-derived notes. Results are deduplicated,
// order-preserving, and capped at 10; constraint notes always make the cut.
func (e *SafetyAndTipsExtractor) ExtractSafetyNotes(documents []retrieval.ReferenceDocument, constraints models.Constraints) []string {
	var constraintNotes []string
	if constraints.NoBleach {
		constraintNotes = append(constraintNotes, noteNoBleach)
	}
	if constraints.NoHarshChemicals {
		constraintNotes = append(constraintNotes, noteNoHarsh)
	}
	if constraints.GentleOnly {
		constraintNotes = append(constraintNotes, noteGentle)
	}

	notes := extractSentences(documents, safetyKeywords, maxSafetyNotes-len(constraintNotes))
	for _, note := range constraintNotes {
		notes = appendUnique(notes, note)
	}
	return notes
}

// ExtractTips scans reference documents for tip sentences, capped at 5.
func (e *SafetyAndTipsExtractor) ExtractTips(documents []retrieval.ReferenceDocument) []string {
	return extractSentences(documents, tipKeywords, maxTips)
}

// extractSentences splits step texts on periods and keeps capitalized
// sentences longer than 20 characters containing any keyword.
func extractSentences(documents []retrieval.ReferenceDocument, keywords []string, limit int) []string {
	var collected []string
	seen := make(map[string]bool)
	for _, doc := range documents {
		for _, step := range doc.Steps {
			for _, sentence := range strings.Split(step.StepText, ".") {
				trimmed := strings.TrimSpace(sentence)
				if len(trimmed) <= minSentenceLen {
					continue
				}
				if !startsCapitalized(trimmed) {
					continue
				}
				lowered := strings.ToLower(trimmed)
				if !containsAny(lowered, keywords...) {
					continue
				}
				key := strings.ToLower(trimmed)
				if seen[key] {
					continue
				}
				seen[key] = true
				collected = append(collected, trimmed+".")
				if len(collected) >= limit {
					return collected
				}
			}
		}
	}
	return collected
}

func startsCapitalized(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
