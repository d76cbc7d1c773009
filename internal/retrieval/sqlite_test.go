package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/cleanplan/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedDocument(t *testing.T, store *Store, id, surface, dirt, method string, confidence float64, stepTexts []string, toolNames []string) {
	t.Helper()
	doc := Document{
		DocumentID:           id,
		URL:                  "https://example.com/" + id,
		Title:                "Guide " + id,
		SurfaceType:          surface,
		DirtType:             dirt,
		CleaningMethod:       method,
		ExtractionConfidence: confidence,
		QualityScore:         confidence,
	}
	for i, text := range stepTexts {
		doc.Steps = append(doc.Steps, models.StepCandidate{
			StepOrder:  i + 1,
			StepText:   text,
			Confidence: confidence,
		})
	}
	for i, name := range toolNames {
		doc.Tools = append(doc.Tools, ToolRecord{
			ToolName:      name,
			Category:      "general",
			IsPrimary:     i == 0,
			AvgConfidence: confidence,
		})
	}
	require.NoError(t, store.UpsertDocument(context.Background(), doc))
}

func seedStainCorpus(t *testing.T, store *Store) {
	seedDocument(t, store, "doc-1", "carpet", "stain", "spot_clean", 0.9,
		[]string{"Apply the solution to the stain", "Blot with a clean cloth"},
		[]string{"cloth", "dish soap"})
	seedDocument(t, store, "doc-2", "carpet", "stain", "spot_clean", 0.7,
		[]string{"Dab the stain gently"},
		[]string{"cloth", "sponge"})
	seedDocument(t, store, "doc-3", "carpet", "stain", "vacuum", 0.8,
		[]string{"Vacuum the area thoroughly"},
		[]string{"vacuum"})
}

func TestFetchMethodsAggregates(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchMethods(context.Background(), "carpet", "stain")

	require.NoError(t, err)
	require.Len(t, result.Methods, 2)

	// Ordered by document coverage descending.
	spotClean := result.Methods[0]
	assert.Equal(t, "spot_clean", spotClean.CleaningMethod)
	assert.Equal(t, 2, spotClean.DocumentCount)
	assert.InDelta(t, 0.8, spotClean.AvgConfidence, 0.001)
	assert.Contains(t, spotClean.CommonTools, "cloth")

	assert.Equal(t, "vacuum", result.Methods[1].CleaningMethod)
	assert.Equal(t, 1, result.Methods[1].DocumentCount)
}

func TestFetchMethodsEmptyScenario(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchMethods(context.Background(), "glass", "grease")

	require.NoError(t, err)
	assert.Empty(t, result.Methods)
}

func TestFetchStepsOrderedByConfidence(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchSteps(context.Background(), "carpet", "stain", "spot_clean", 10)

	require.NoError(t, err)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, 3, result.TotalSteps)
	assert.Equal(t, 2, result.UniqueDocuments)

	// doc-1 steps (confidence 0.9) come before the doc-2 step (0.7).
	assert.Equal(t, "doc-1", result.Steps[0].DocumentID)
	assert.Equal(t, "doc-1", result.Steps[1].DocumentID)
	assert.Equal(t, "doc-2", result.Steps[2].DocumentID)
}

func TestFetchStepsRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchSteps(context.Background(), "carpet", "stain", "spot_clean", 1)

	require.NoError(t, err)
	assert.Len(t, result.Steps, 1)
	assert.Equal(t, 3, result.TotalSteps, "total counts the full corpus regardless of limit")
}

func TestFetchToolsAggregates(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchTools(context.Background(), "carpet", "stain", "spot_clean")

	require.NoError(t, err)
	require.Len(t, result.Tools, 3)

	// cloth appears in both documents and sorts first.
	cloth := result.Tools[0]
	assert.Equal(t, "cloth", cloth.ToolName)
	assert.Equal(t, 2, cloth.UsageCount)
	assert.Equal(t, 2, cloth.MentionedInSteps)
	assert.True(t, cloth.IsPrimary)
}

func TestFetchReferenceContext(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchReferenceContext(context.Background(),
		[]string{"doc-1", "doc-missing", "doc-3"}, true, true)

	require.NoError(t, err)
	require.Len(t, result.Documents, 2, "unknown IDs are skipped")

	doc := result.Documents[0]
	assert.Equal(t, "doc-1", doc.DocumentID)
	assert.Equal(t, "Guide doc-1", doc.Title)
	assert.Len(t, doc.Steps, 2)
	assert.Len(t, doc.Tools, 2)
}

func TestFetchReferenceContextWithoutDetails(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	result, err := store.FetchReferenceContext(context.Background(), []string{"doc-1"}, false, false)

	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Empty(t, result.Documents[0].Steps)
	assert.Empty(t, result.Documents[0].Tools)
}

func TestSearchSimilarScenariosFuzzy(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)
	seedDocument(t, store, "doc-4", "hardwood", "dust", "vacuum", 0.8,
		[]string{"Vacuum along the grain"}, []string{"vacuum"})

	// Only the surface dimension matches the carpet documents.
	result, err := store.SearchSimilarScenarios(context.Background(), "carpet", "odor", true, 10)

	require.NoError(t, err)
	require.Len(t, result.SimilarCombinations, 2)
	for _, combo := range result.SimilarCombinations {
		assert.Equal(t, "carpet", combo.SurfaceType)
		assert.InDelta(t, 0.5, combo.SimilarityScore, 0.001)
	}
}

func TestSearchSimilarScenariosExactRanksFirst(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)
	seedDocument(t, store, "doc-5", "carpet", "dust", "vacuum", 0.8,
		[]string{"Vacuum the carpet weekly"}, []string{"vacuum"})

	result, err := store.SearchSimilarScenarios(context.Background(), "carpet", "stain", true, 10)

	require.NoError(t, err)
	require.NotEmpty(t, result.SimilarCombinations)
	top := result.SimilarCombinations[0]
	assert.Equal(t, "stain", top.DirtType)
	assert.InDelta(t, 1.0, top.SimilarityScore, 0.001)
}

func TestUpsertDocumentReplaces(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "doc-1", "carpet", "stain", "spot_clean", 0.9,
		[]string{"Apply the solution", "Blot dry"}, []string{"cloth"})

	// Re-ingesting the same document replaces its rows instead of appending.
	seedDocument(t, store, "doc-1", "carpet", "stain", "spot_clean", 0.95,
		[]string{"Blot the stain immediately"}, []string{"paper towel"})

	result, err := store.FetchReferenceContext(context.Background(), []string{"doc-1"}, true, true)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)

	doc := result.Documents[0]
	assert.InDelta(t, 0.95, doc.ExtractionConfidence, 0.001)
	require.Len(t, doc.Steps, 1)
	assert.Equal(t, "Blot the stain immediately", doc.Steps[0].StepText)
	require.Len(t, doc.Tools, 1)
	assert.Equal(t, "paper towel", doc.Tools[0].ToolName)
}

func TestCorpusStats(t *testing.T) {
	store := newTestStore(t)
	seedStainCorpus(t, store)

	stats, err := store.CorpusStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 4, stats.Steps)
	assert.Equal(t, 5, stats.Tools)
	assert.Equal(t, 1, stats.Scenarios)
}
