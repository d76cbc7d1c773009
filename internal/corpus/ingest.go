// Package corpus ingests extracted cleaning guides, written as markdown with
// YAML frontmatter, into the retrieval store.
package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/cleanplan/internal/filelock"
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/normalizer"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// documentFrontmatter is the YAML header of a cleaning guide.
type documentFrontmatter struct {
	DocumentID           string  `yaml:"document_id"`
	URL                  string  `yaml:"url"`
	Title                string  `yaml:"title"`
	SurfaceType          string  `yaml:"surface_type"`
	DirtType             string  `yaml:"dirt_type"`
	CleaningMethod       string  `yaml:"cleaning_method"`
	ExtractionConfidence float64 `yaml:"extraction_confidence"`
	QualityScore         float64 `yaml:"quality_score"`
}

// Ingester parses markdown cleaning guides and writes them to the store.
// A file lock beside the corpus database keeps concurrent ingests from
// interleaving document writes.
type Ingester struct {
	store      *retrieval.Store
	normalizer *normalizer.Normalizer
	markdown   goldmark.Markdown
	lockPath   string
	log        logger.Logger
}

// NewIngester creates an Ingester writing to the given store. lockPath is
// the corpus lock file, typically "<corpus>.lock".
func NewIngester(store *retrieval.Store, lockPath string, log logger.Logger) *Ingester {
	if log == nil {
		log = logger.Discard()
	}
	return &Ingester{
		store:      store,
		normalizer: normalizer.New(log),
		markdown:   goldmark.New(),
		lockPath:   lockPath,
		log:        log,
	}
}

// IngestFile parses one markdown guide and upserts it into the corpus.
func (in *Ingester) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document %s: %w", path, err)
	}

	doc, err := in.parseDocument(data, path)
	if err != nil {
		return fmt.Errorf("parse document %s: %w", path, err)
	}

	lock := filelock.NewFileLock(in.lockPath)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	if err := in.store.UpsertDocument(ctx, *doc); err != nil {
		return fmt.Errorf("store document %s: %w", doc.DocumentID, err)
	}
	in.log.Infof("ingested %s (%d steps, %d tools)", doc.DocumentID, len(doc.Steps), len(doc.Tools))
	return nil
}

// IngestDir ingests every .md file under dir, returning the count ingested.
// Individual file failures are logged and skipped.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read corpus directory %s: %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := in.IngestFile(ctx, path); err != nil {
			in.log.Warnf("skipping %s: %v", path, err)
			continue
		}
		count++
	}
	return count, nil
}

// parseDocument validates frontmatter and walks the markdown body for steps
// and tools.
func (in *Ingester) parseDocument(data []byte, path string) (*retrieval.Document, error) {
	body, front := extractFrontmatter(data)
	if front == nil {
		return nil, fmt.Errorf("missing YAML frontmatter")
	}

	var fm documentFrontmatter
	if err := yaml.Unmarshal(front, &fm); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	surface := in.normalizer.NormalizeSurface(fm.SurfaceType)
	if surface == "" {
		return nil, fmt.Errorf("unknown surface_type %q", fm.SurfaceType)
	}
	dirt := in.normalizer.NormalizeDirt(fm.DirtType)
	if dirt == "" {
		return nil, fmt.Errorf("unknown dirt_type %q", fm.DirtType)
	}
	method := in.normalizer.NormalizeMethod(fm.CleaningMethod)
	if method == "" {
		return nil, fmt.Errorf("unknown cleaning_method %q", fm.CleaningMethod)
	}

	documentID := fm.DocumentID
	if documentID == "" {
		documentID = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	confidence := fm.ExtractionConfidence
	if confidence == 0 {
		confidence = 0.7
	}

	steps, tools := in.extractBody(body)
	if len(steps) == 0 {
		return nil, fmt.Errorf("document has no steps")
	}

	return &retrieval.Document{
		DocumentID:           documentID,
		URL:                  fm.URL,
		Title:                fm.Title,
		SurfaceType:          surface,
		DirtType:             dirt,
		CleaningMethod:       method,
		ExtractionConfidence: confidence,
		QualityScore:         fm.QualityScore,
		Steps:                steps,
		Tools:                tools,
	}, nil
}

// extractBody walks the markdown AST. Ordered-list items become steps in
// document order; unordered-list items under a "Tools" or "Supplies" heading
// become tool records.
func (in *Ingester) extractBody(body []byte) ([]models.StepCandidate, []retrieval.ToolRecord) {
	doc := in.markdown.Parser().Parse(text.NewReader(body))

	var steps []models.StepCandidate
	var tools []retrieval.ToolRecord
	inToolSection := false
	stepOrder := 0

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if heading, ok := n.(*ast.Heading); ok {
			title := strings.ToLower(nodeText(heading, body))
			inToolSection = strings.Contains(title, "tool") || strings.Contains(title, "supplies")
			return ast.WalkContinue, nil
		}

		list, ok := n.(*ast.List)
		if !ok {
			return ast.WalkContinue, nil
		}

		for item := list.FirstChild(); item != nil; item = item.NextSibling() {
			itemText := strings.TrimSpace(nodeText(item, body))
			if itemText == "" {
				continue
			}
			if list.IsOrdered() && !inToolSection {
				stepOrder++
				steps = append(steps, models.StepCandidate{
					StepOrder:  stepOrder,
					StepText:   itemText,
					Confidence: 0.8,
				})
			} else if inToolSection {
				tools = append(tools, parseToolItem(itemText, len(tools) == 0))
			}
		}
		return ast.WalkSkipChildren, nil
	})

	return steps, tools
}

// parseToolItem reads "name (category)" tool lines; the first listed tool is
// treated as primary.
func parseToolItem(text string, primary bool) retrieval.ToolRecord {
	name := strings.ToLower(strings.TrimSpace(text))
	category := ""
	if open := strings.Index(name, "("); open >= 0 {
		if end := strings.Index(name[open:], ")"); end > 0 {
			category = strings.TrimSpace(name[open+1 : open+end])
			name = strings.TrimSpace(name[:open])
		}
	}
	return retrieval.ToolRecord{
		ToolName:      name,
		Category:      category,
		IsPrimary:     primary,
		AvgConfidence: 0.8,
		UsageCount:    1,
	}
}

// nodeText collects the literal text beneath a node.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractFrontmatter splits YAML frontmatter from markdown content.
// Returns the body and the frontmatter bytes, or (content, nil) when no
// frontmatter is present.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}
	return content, nil
}
