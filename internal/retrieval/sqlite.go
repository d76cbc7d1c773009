package retrieval

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/cleanplan/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed corpus implementing the retrieval Port.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the corpus database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create corpus directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must be set first so subsequent pragmas wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, statement string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(statement)
		if err == nil {
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchMethods aggregates per-method corpus coverage for a (surface, dirt)
// combination.
func (s *Store) FetchMethods(ctx context.Context, surfaceType, dirtType string) (*MethodsResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.cleaning_method,
		       COUNT(DISTINCT d.document_id),
		       AVG(d.extraction_confidence),
		       AVG(d.quality_score),
		       CAST(COUNT(st.id) AS REAL) / COUNT(DISTINCT d.document_id)
		FROM documents d
		LEFT JOIN steps st ON st.document_id = d.document_id
		WHERE d.surface_type = ? AND d.dirt_type = ?
		GROUP BY d.cleaning_method
		ORDER BY COUNT(DISTINCT d.document_id) DESC, d.cleaning_method`,
		surfaceType, dirtType)
	if err != nil {
		return nil, fmt.Errorf("fetch methods: %w", err)
	}
	defer rows.Close()

	var result MethodsResult
	for rows.Next() {
		var c models.MethodCandidate
		if err := rows.Scan(&c.CleaningMethod, &c.DocumentCount, &c.AvgConfidence, &c.AvgQualityScore, &c.AvgSteps); err != nil {
			return nil, fmt.Errorf("scan method candidate: %w", err)
		}
		result.Methods = append(result.Methods, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Tool lookups run after the method rows are fully drained so they never
	// need a second connection.
	for i := range result.Methods {
		tools, err := s.commonTools(ctx, surfaceType, dirtType, result.Methods[i].CleaningMethod, 5)
		if err != nil {
			return nil, err
		}
		result.Methods[i].CommonTools = tools
	}
	return &result, nil
}

// commonTools returns the most used tool names for a scenario.
func (s *Store) commonTools(ctx context.Context, surfaceType, dirtType, method string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tool_name
		FROM tools t
		JOIN documents d ON d.document_id = t.document_id
		WHERE d.surface_type = ? AND d.dirt_type = ? AND d.cleaning_method = ?
		GROUP BY t.tool_name
		ORDER BY COUNT(*) DESC, t.tool_name
		LIMIT ?`,
		surfaceType, dirtType, method, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch common tools: %w", err)
	}
	defer rows.Close()

	var tools []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tool name: %w", err)
		}
		tools = append(tools, name)
	}
	return tools, rows.Err()
}

// FetchSteps returns step candidates for a scenario, highest extraction
// confidence first.
func (s *Store) FetchSteps(ctx context.Context, surfaceType, dirtType, cleaningMethod string, limit int) (*StepsResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.step_order, st.step_text, st.document_id, st.confidence, st.step_summary
		FROM steps st
		JOIN documents d ON d.document_id = st.document_id
		WHERE d.surface_type = ? AND d.dirt_type = ? AND d.cleaning_method = ?
		ORDER BY st.confidence DESC, st.document_id, st.step_order
		LIMIT ?`,
		surfaceType, dirtType, cleaningMethod, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch steps: %w", err)
	}
	defer rows.Close()

	var result StepsResult
	docs := make(map[string]bool)
	for rows.Next() {
		var step models.StepCandidate
		if err := rows.Scan(&step.StepOrder, &step.StepText, &step.DocumentID, &step.Confidence, &step.StepSummary); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		result.Steps = append(result.Steps, step)
		docs[step.DocumentID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.UniqueDocuments = len(docs)
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM steps st
		JOIN documents d ON d.document_id = st.document_id
		WHERE d.surface_type = ? AND d.dirt_type = ? AND d.cleaning_method = ?`,
		surfaceType, dirtType, cleaningMethod).Scan(&result.TotalSteps); err != nil {
		return nil, fmt.Errorf("count steps: %w", err)
	}
	return &result, nil
}

// FetchTools aggregates tool records for a scenario.
func (s *Store) FetchTools(ctx context.Context, surfaceType, dirtType, cleaningMethod string) (*ToolsResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tool_name,
		       COUNT(*),
		       AVG(t.confidence),
		       MAX(t.category),
		       MAX(t.is_primary),
		       COUNT(DISTINCT t.document_id)
		FROM tools t
		JOIN documents d ON d.document_id = t.document_id
		WHERE d.surface_type = ? AND d.dirt_type = ? AND d.cleaning_method = ?
		GROUP BY t.tool_name
		ORDER BY COUNT(*) DESC, t.tool_name`,
		surfaceType, dirtType, cleaningMethod)
	if err != nil {
		return nil, fmt.Errorf("fetch tools: %w", err)
	}
	defer rows.Close()

	var result ToolsResult
	for rows.Next() {
		var record ToolRecord
		var isPrimary int
		if err := rows.Scan(&record.ToolName, &record.UsageCount, &record.AvgConfidence, &record.Category, &isPrimary, &record.MentionedInSteps); err != nil {
			return nil, fmt.Errorf("scan tool record: %w", err)
		}
		record.IsPrimary = isPrimary != 0
		result.Tools = append(result.Tools, record)
	}
	return &result, rows.Err()
}

// FetchReferenceContext loads documents by ID, optionally with their steps
// and tools. Unknown IDs are skipped.
func (s *Store) FetchReferenceContext(ctx context.Context, documentIDs []string, includeSteps, includeTools bool) (*ContextResult, error) {
	var result ContextResult
	for _, id := range documentIDs {
		var doc ReferenceDocument
		err := s.db.QueryRowContext(ctx, `
			SELECT document_id, url, title, extraction_confidence
			FROM documents WHERE document_id = ?`, id).
			Scan(&doc.DocumentID, &doc.URL, &doc.Title, &doc.ExtractionConfidence)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch document %s: %w", id, err)
		}

		if includeSteps {
			steps, err := s.documentSteps(ctx, id)
			if err != nil {
				return nil, err
			}
			doc.Steps = steps
		}
		if includeTools {
			tools, err := s.documentTools(ctx, id)
			if err != nil {
				return nil, err
			}
			doc.Tools = tools
		}
		result.Documents = append(result.Documents, doc)
	}
	return &result, nil
}

func (s *Store) documentSteps(ctx context.Context, documentID string) ([]models.StepCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_order, step_text, document_id, confidence, step_summary
		FROM steps WHERE document_id = ? ORDER BY step_order`, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document steps: %w", err)
	}
	defer rows.Close()

	var steps []models.StepCandidate
	for rows.Next() {
		var step models.StepCandidate
		if err := rows.Scan(&step.StepOrder, &step.StepText, &step.DocumentID, &step.Confidence, &step.StepSummary); err != nil {
			return nil, fmt.Errorf("scan document step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *Store) documentTools(ctx context.Context, documentID string) ([]ToolRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, category, is_primary, confidence
		FROM tools WHERE document_id = ? ORDER BY tool_name`, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document tools: %w", err)
	}
	defer rows.Close()

	var tools []ToolRecord
	for rows.Next() {
		var record ToolRecord
		var isPrimary int
		if err := rows.Scan(&record.ToolName, &record.Category, &isPrimary, &record.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan document tool: %w", err)
		}
		record.IsPrimary = isPrimary != 0
		record.UsageCount = 1
		tools = append(tools, record)
	}
	return tools, rows.Err()
}

// SearchSimilarScenarios finds (surface, dirt, method) combinations sharing
// either dimension. similarity_score is 0.5 per matching dimension; exact
// matches (both dimensions) rank first.
func (s *Store) SearchSimilarScenarios(ctx context.Context, surfaceType, dirtType string, fuzzyMatch bool, limit int) (*SimilarResult, error) {
	where := "d.surface_type = ? AND d.dirt_type = ?"
	if fuzzyMatch {
		where = "(d.surface_type = ? OR d.dirt_type = ?)"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT d.surface_type, d.dirt_type, d.cleaning_method,
		       COUNT(DISTINCT d.document_id),
		       AVG(d.extraction_confidence),
		       (CASE WHEN d.surface_type = ? THEN 0.5 ELSE 0 END +
		        CASE WHEN d.dirt_type = ? THEN 0.5 ELSE 0 END) AS similarity
		FROM documents d
		WHERE %s
		GROUP BY d.surface_type, d.dirt_type, d.cleaning_method
		ORDER BY similarity DESC, COUNT(DISTINCT d.document_id) DESC
		LIMIT ?`, where),
		surfaceType, dirtType, surfaceType, dirtType, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar scenarios: %w", err)
	}
	defer rows.Close()

	var result SimilarResult
	for rows.Next() {
		var combo SimilarScenario
		if err := rows.Scan(&combo.SurfaceType, &combo.DirtType, &combo.CleaningMethod,
			&combo.DocumentCount, &combo.AvgExtractionConfidence, &combo.SimilarityScore); err != nil {
			return nil, fmt.Errorf("scan similar scenario: %w", err)
		}
		result.SimilarCombinations = append(result.SimilarCombinations, combo)
	}
	return &result, rows.Err()
}

// Document is a full corpus document for ingestion.
type Document struct {
	DocumentID           string
	URL                  string
	Title                string
	SurfaceType          string
	DirtType             string
	CleaningMethod       string
	ExtractionConfidence float64
	QualityScore         float64
	Steps                []models.StepCandidate
	Tools                []ToolRecord
}

// UpsertDocument replaces a document and its steps and tools in one
// transaction.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE document_id = ?`, doc.DocumentID); err != nil {
		return fmt.Errorf("delete existing document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (document_id, url, title, surface_type, dirt_type,
			cleaning_method, extraction_confidence, quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.URL, doc.Title, doc.SurfaceType, doc.DirtType,
		doc.CleaningMethod, doc.ExtractionConfidence, doc.QualityScore); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, step := range doc.Steps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (document_id, step_order, step_text, step_summary, confidence)
			VALUES (?, ?, ?, ?, ?)`,
			doc.DocumentID, step.StepOrder, step.StepText, step.StepSummary, step.Confidence); err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
	}

	for _, tool := range doc.Tools {
		isPrimary := 0
		if tool.IsPrimary {
			isPrimary = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tools (document_id, tool_name, category, is_primary, confidence)
			VALUES (?, ?, ?, ?, ?)`,
			doc.DocumentID, tool.ToolName, tool.Category, isPrimary, tool.AvgConfidence); err != nil {
			return fmt.Errorf("insert tool: %w", err)
		}
	}

	return tx.Commit()
}

// Stats summarizes corpus contents.
type Stats struct {
	Documents int
	Steps     int
	Tools     int
	Scenarios int
}

// CorpusStats returns corpus row counts.
func (s *Store) CorpusStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM steps", &stats.Steps},
		{"SELECT COUNT(*) FROM tools", &stats.Tools},
		{"SELECT COUNT(DISTINCT surface_type || '/' || dirt_type) FROM documents", &stats.Scenarios},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("corpus stats: %w", err)
		}
	}
	return &stats, nil
}
