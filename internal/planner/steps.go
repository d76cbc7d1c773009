package planner

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
)

// actionVerbs identify imperative cleaning instructions.
var actionVerbs = []string{
	"apply", "spray", "wipe", "scrub", "blot", "rinse", "vacuum", "mix",
	"pour", "dab", "dry", "wait", "let", "allow", "remove", "clean", "soak",
	"brush", "wash", "dilute", "test", "cover", "spread", "prepare",
	"combine", "repeat", "pat", "sprinkle", "use",
}

// informationalPhrases mark explanatory prose rather than instructions.
var informationalPhrases = []string{
	"there are", "it is", "this is", "many people", "note that",
	"keep in mind", "did you know", "in general", "understanding",
	"when it comes to",
}

// informationalKeywords count explanatory wording inside a step.
var informationalKeywords = []string{
	"important", "generally", "typically", "usually", "often", "however",
	"because", "therefore", "recommended", "consider",
}

// stopWords are removed before computing query/step word overlap.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "in": true,
	"on": true, "for": true, "from": true, "with": true, "and": true,
	"or": true, "is": true, "it": true, "its": true, "this": true,
	"that": true, "your": true, "my": true, "how": true, "do": true,
	"i": true, "you": true, "at": true, "by": true, "be": true,
}

// dirtStepKeywords boost steps that speak to the scenario's dirt type.
var dirtStepKeywords = map[string][]string{
	"stain":    {"stain", "blot", "spot", "dab", "remove"},
	"dust":     {"dust", "vacuum", "wipe"},
	"pet_hair": {"hair", "fur", "vacuum", "lint"},
	"grease":   {"grease", "degrease", "oil", "soap"},
	"mold":     {"mold", "mildew", "ventilate", "bleach"},
}

// maintenanceKeywords penalize routine-care steps in stain scenarios.
var maintenanceKeywords = []string{"regular", "weekly", "routine", "maintenance", "daily"}

// Ordering buckets in final sequence order. Steps matching none go last.
var orderBuckets = []struct {
	name     string
	keywords []string
}{
	{"prep", []string{"prepare", "mix", "combine", "dilute", "test"}},
	{"apply", []string{"apply", "spray", "pour", "spread", "cover"}},
	{"wait", []string{"wait", "let", "allow", "sit", "soak", "rest"}},
	{"clean", []string{"rinse", "wipe", "scrub", "blot", "vacuum", "clean"}},
	{"dry", []string{"dry", "towel", "air dry", "blot dry"}},
}

// toolVocabulary is matched as substrings against step text.
var toolVocabulary = []string{
	"vacuum", "microfiber cloth", "cloth", "paper towel", "towel", "brush",
	"spray bottle", "bucket", "sponge", "gloves", "vinegar", "baking soda",
	"detergent", "dish soap", "soap", "steam cleaner", "mop",
}

// Explicit time mentions, in priority order: minutes, then seconds, then hours.
var (
	minutePattern = regexp.MustCompile(`(\d+)\s*(?:minute|minutes|min|mins)\b`)
	secondPattern = regexp.MustCompile(`(\d+)\s*(?:second|seconds|sec|secs)\b`)
	hourPattern   = regexp.MustCompile(`(\d+)\s*(?:hour|hours|hr|hrs)\b`)
)

// scoredStep pairs a candidate with its ephemeral relevance score, discarded
// before output.
type scoredStep struct {
	models.StepCandidate
	relevance float64
}

// StepPipeline quality-filters, ranks, deduplicates, orders, and formats raw
// step candidates into output steps.
type StepPipeline struct {
	log logger.Logger
}

// NewStepPipeline creates a StepPipeline.
func NewStepPipeline(log logger.Logger) *StepPipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &StepPipeline{log: log}
}

// Compose runs the four pipeline stages and formats the survivors.
func (p *StepPipeline) Compose(candidates []models.StepCandidate, normalizedQuery, dirtType string) []models.FormattedStep {
	quality := p.filterQuality(candidates)
	ranked := p.rankByRelevance(quality, normalizedQuery, dirtType)
	deduped := p.Deduplicate(ranked)
	ordered := p.orderSteps(deduped)
	return p.formatSteps(ordered)
}

// filterQuality rejects low-confidence, over-long, verb-less, and
// informational steps. If the filter would drop every non-empty step, the
// non-empty steps pass through unfiltered.
func (p *StepPipeline) filterQuality(candidates []models.StepCandidate) []models.StepCandidate {
	var nonEmpty []models.StepCandidate
	var kept []models.StepCandidate
	for _, c := range candidates {
		text := strings.TrimSpace(c.StepText)
		if text == "" {
			continue
		}
		nonEmpty = append(nonEmpty, c)
		if c.Confidence < 0.5 {
			continue
		}
		words := strings.Fields(strings.ToLower(text))
		if len(words) > 200 {
			continue
		}
		if !containsActionVerb(words) {
			continue
		}
		if isInformational(strings.ToLower(text), words) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 && len(nonEmpty) > 0 {
		p.log.Warnf("quality filter rejected all %d steps, passing them through", len(nonEmpty))
		return nonEmpty
	}
	return kept
}

func containsActionVerb(words []string) bool {
	for _, w := range words {
		trimmed := strings.Trim(w, ".,:;!?")
		for _, verb := range actionVerbs {
			if trimmed == verb {
				return true
			}
		}
	}
	return false
}

// isInformational judges whether a step is explanatory prose. A step is
// informational when it opens with an informational phrase and explanatory
// keywords outnumber action verbs, or when it does not open with an action
// verb and carries at least two explanatory keywords.
func isInformational(lowered string, words []string) bool {
	infoCount := 0
	for _, kw := range informationalKeywords {
		infoCount += strings.Count(lowered, kw)
	}
	actionCount := 0
	for _, w := range words {
		trimmed := strings.Trim(w, ".,:;!?")
		for _, verb := range actionVerbs {
			if trimmed == verb {
				actionCount++
				break
			}
		}
	}

	for _, phrase := range informationalPhrases {
		if strings.HasPrefix(lowered, phrase) && infoCount > actionCount {
			return true
		}
	}

	if !startsWithActionVerb(words) && infoCount >= 2 {
		return true
	}
	return false
}

// startsWithActionVerb checks the first two tokens for an action verb.
func startsWithActionVerb(words []string) bool {
	limit := 2
	if len(words) < limit {
		limit = len(words)
	}
	for i := 0; i < limit; i++ {
		trimmed := strings.Trim(words[i], ".,:;!?")
		for _, verb := range actionVerbs {
			if trimmed == verb {
				return true
			}
		}
	}
	return false
}

// rankByRelevance scores and sorts steps. When more than five remain, steps
// scoring below 0.2 are trimmed unless trimming would empty the list.
func (p *StepPipeline) rankByRelevance(candidates []models.StepCandidate, normalizedQuery, dirtType string) []scoredStep {
	scored := make([]scoredStep, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, scoredStep{
			StepCandidate: c,
			relevance:     stepRelevance(c.StepText, normalizedQuery, dirtType),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].relevance > scored[j].relevance
	})

	if len(scored) > 5 {
		var trimmed []scoredStep
		for _, s := range scored {
			if s.relevance >= 0.2 {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			return trimmed
		}
	}
	return scored
}

// stepRelevance scores one step against the scenario, clamped to [0,1].
func stepRelevance(stepText, normalizedQuery, dirtType string) float64 {
	lowered := strings.ToLower(stepText)
	score := 0.5

	// Dirt-specific keyword hits, capped at +0.4.
	boost := 0.0
	for _, kw := range dirtStepKeywords[dirtType] {
		if strings.Contains(lowered, kw) {
			boost += 0.2
		}
	}
	score += math.Min(boost, 0.4)

	// Routine-maintenance wording works against stain treatment, capped at -0.3.
	if dirtType == "stain" {
		penalty := 0.0
		for _, kw := range maintenanceKeywords {
			if strings.Contains(lowered, kw) {
				penalty += 0.15
			}
		}
		score -= math.Min(penalty, 0.3)
	}

	// Query/step word overlap after stop-word removal, up to +0.3.
	queryWords := contentWords(normalizedQuery)
	stepWords := contentWords(stepText)
	if len(queryWords) > 0 {
		overlap := 0
		for w := range queryWords {
			if stepWords[w] {
				overlap++
			}
		}
		score += 0.3 * float64(overlap) / float64(len(queryWords))
	}

	for _, phrase := range informationalPhrases {
		if strings.Contains(lowered, phrase) {
			score -= 0.4
			break
		}
	}

	return math.Max(0.0, math.Min(1.0, score))
}

// contentWords returns the lowercased word set minus stop words.
func contentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		trimmed := strings.Trim(w, ".,:;!?\"'()")
		if trimmed == "" || stopWords[trimmed] {
			continue
		}
		words[trimmed] = true
	}
	return words
}

// Deduplicate removes steps that repeat earlier ones, preserving first
// occurrence. Two steps are duplicates when their lowercased texts match
// exactly or their word sets overlap by more than 70%.
func (p *StepPipeline) Deduplicate(steps []scoredStep) []scoredStep {
	var unique []scoredStep
	for _, step := range steps {
		duplicate := false
		for _, accepted := range unique {
			if isDuplicateStep(step.StepText, accepted.StepText) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, step)
		}
	}
	return unique
}

func isDuplicateStep(a, b string) bool {
	la, lb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if la == lb {
		return true
	}
	wordsA := contentWords(a)
	wordsB := contentWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	overlap := 0
	for w := range wordsA {
		if wordsB[w] {
			overlap++
		}
	}
	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	return float64(overlap)/float64(larger) > 0.7
}

// orderSteps buckets steps into the natural cleaning sequence
// prep, apply, wait, clean, dry, then unmatched steps by original order.
// Within a bucket, steps keep their original retrieval step order.
func (p *StepPipeline) orderSteps(steps []scoredStep) []scoredStep {
	buckets := make(map[string][]scoredStep)
	var other []scoredStep
	matched := 0
	for _, step := range steps {
		bucket := classifyBucket(step.StepText)
		if bucket == "" {
			other = append(other, step)
			continue
		}
		buckets[bucket] = append(buckets[bucket], step)
		matched++
	}

	if matched == 0 {
		// Nothing classified; fall back to the original retrieval order.
		sorted := append([]scoredStep(nil), steps...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].StepOrder < sorted[j].StepOrder
		})
		return sorted
	}

	var ordered []scoredStep
	for _, bucket := range orderBuckets {
		group := buckets[bucket.name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].StepOrder < group[j].StepOrder
		})
		ordered = append(ordered, group...)
	}
	sort.SliceStable(other, func(i, j int) bool {
		return other[i].StepOrder < other[j].StepOrder
	})
	return append(ordered, other...)
}

// classifyBucket assigns a step to the bucket of the keyword occurring
// earliest in its text, or "" when no keyword matches.
func classifyBucket(text string) string {
	lowered := strings.ToLower(text)
	best := ""
	bestPos := len(lowered) + 1
	for _, bucket := range orderBuckets {
		for _, kw := range bucket.keywords {
			pos := strings.Index(lowered, kw)
			if pos >= 0 && pos < bestPos {
				best = bucket.name
				bestPos = pos
			}
		}
	}
	return best
}

// formatSteps assigns 1-based numbering and derives action, duration, and
// tools for each surviving step.
func (p *StepPipeline) formatSteps(steps []scoredStep) []models.FormattedStep {
	formatted := make([]models.FormattedStep, 0, len(steps))
	for i, step := range steps {
		formatted = append(formatted, models.FormattedStep{
			StepNumber:      i + 1,
			Action:          deriveAction(step.StepCandidate),
			Description:     strings.TrimSpace(step.StepText),
			Tools:           extractStepTools(step.StepText),
			DurationSeconds: estimateDuration(step.StepText),
			Order:           i + 1,
		})
	}
	return formatted
}

// deriveAction uses the extraction summary when present, otherwise the first
// five words of the step text.
func deriveAction(step models.StepCandidate) string {
	if summary := strings.TrimSpace(step.StepSummary); summary != "" {
		return summary
	}
	words := strings.Fields(strings.TrimSpace(step.StepText))
	if len(words) <= 5 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:5], " ") + "..."
}

// estimateDuration reads an explicit time mention from the text, falling
// back to a keyword heuristic.
func estimateDuration(text string) int {
	lowered := strings.ToLower(text)

	if m := minutePattern.FindStringSubmatch(lowered); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 60
		}
	}
	if m := secondPattern.FindStringSubmatch(lowered); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := hourPattern.FindStringSubmatch(lowered); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n * 3600
		}
	}

	switch {
	case containsAny(lowered, "wait", "let", "allow", "sit", "soak", "rest", "overnight"):
		return 600
	case containsAny(lowered, "scrub"):
		return 300
	case containsAny(lowered, "rinse", "wipe", "blot", "vacuum", "clean"):
		return 180
	case containsAny(lowered, "prepare", "mix", "combine", "dilute"):
		return 120
	default:
		return 60
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractStepTools matches the tool vocabulary as substrings. Longer entries
// are listed first in the vocabulary so "paper towel" wins over "towel".
func extractStepTools(text string) []string {
	lowered := strings.ToLower(text)
	var tools []string
	seen := make(map[string]bool)
	consumed := lowered
	for _, tool := range toolVocabulary {
		if strings.Contains(consumed, tool) && !seen[tool] {
			tools = append(tools, tool)
			seen[tool] = true
			consumed = strings.ReplaceAll(consumed, tool, " ")
		}
	}
	return tools
}
