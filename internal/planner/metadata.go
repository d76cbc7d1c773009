package planner

import (
	"math"

	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// defaultConfidence is used when no reference document reports an
// extraction confidence.
const defaultConfidence = 0.7

// MetadataCalculator derives duration, difficulty, and confidence from the
// composed steps and their source documents.
type MetadataCalculator struct{}

// NewMetadataCalculator creates a MetadataCalculator.
func NewMetadataCalculator() *MetadataCalculator {
	return &MetadataCalculator{}
}

// DurationMinutes sums step durations and rounds to whole minutes.
func (m *MetadataCalculator) DurationMinutes(steps []models.FormattedStep) int {
	total := 0
	for _, step := range steps {
		total += step.DurationSeconds
	}
	return int(math.Round(float64(total) / 60.0))
}

// Difficulty maps step count to a difficulty level.
func (m *MetadataCalculator) Difficulty(steps []models.FormattedStep) string {
	switch {
	case len(steps) <= 3:
		return models.DifficultyEasy
	case len(steps) <= 6:
		return models.DifficultyModerate
	default:
		return models.DifficultyHard
	}
}

// Confidence averages the extraction confidence of reference documents that
// report one, defaulting to 0.7 when none do.
func (m *MetadataCalculator) Confidence(documents []retrieval.ReferenceDocument) float64 {
	sum := 0.0
	count := 0
	for _, doc := range documents {
		if doc.ExtractionConfidence > 0 {
			sum += doc.ExtractionConfidence
			count++
		}
	}
	if count == 0 {
		return defaultConfidence
	}
	return sum / float64(count)
}
