// Package planner implements the workflow planning and composition engine:
// method selection, the step pipeline, tool aggregation, safety and tip
// extraction, metadata derivation, validation, and the phase orchestrator.
package planner

import (
	"math"
	"sort"
	"strings"

	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
)

// vacuumStainPenalty is subtracted from vacuum's relevance in stain
// scenarios. Vacuum is normally excluded by the stain-focused subset filter;
// the penalty covers the fall-through paths where it survives.
const vacuumStainPenalty = 0.5

// stainQueryKeywords classify a request as a stain scenario even when the
// dirt type resolved to something else.
var stainQueryKeywords = []string{"stain", "spill", "spot", "mark", "wine", "coffee", "ink", "blood"}

// methodHintPhrases are hand-authored query phrases that signal intent for a
// specific method.
var methodHintPhrases = map[string][]string{
	"vacuum":      {"vacuum", "hoover", "suction"},
	"spot_clean":  {"spot", "blot", "dab"},
	"scrub":       {"scrub", "brush"},
	"wipe":        {"wipe", "cloth"},
	"hand_wash":   {"hand wash", "hand-wash", "gentle wash"},
	"steam_clean": {"steam"},
	"mop":         {"mop"},
	"polish":      {"polish", "buff", "shine"},
}

// MethodSelector scores and picks a cleaning method from corpus candidates,
// applying stain-scenario overrides and the wool synthesis heuristic.
type MethodSelector struct {
	log logger.Logger
}

// NewMethodSelector creates a MethodSelector.
func NewMethodSelector(log logger.Logger) *MethodSelector {
	if log == nil {
		log = logger.Discard()
	}
	return &MethodSelector{log: log}
}

// Select picks a method. It never fails: an empty candidate list yields a
// result with an empty ChosenMethod, which the orchestrator treats as "no
// methods available".
func (s *MethodSelector) Select(candidates []models.MethodCandidate, userMethod string, constraints models.Constraints, queryText, dirtType string, isWool bool) models.MethodSelectionResult {
	if len(candidates) == 0 {
		return models.MethodSelectionResult{SelectionReason: "no candidates available"}
	}

	// 1. An explicit user method that names a candidate wins unconditionally.
	if userMethod != "" {
		for _, c := range candidates {
			if c.CleaningMethod == userMethod {
				scores := make([]models.MethodScore, 0, len(candidates))
				for _, cand := range candidates {
					score := 0.0
					if cand.CleaningMethod == userMethod {
						score = 1.0
					}
					scores = append(scores, models.MethodScore{Method: cand.CleaningMethod, Score: score})
				}
				return models.MethodSelectionResult{
					ChosenMethod:    userMethod,
					Candidates:      scores,
					SelectionReason: "user-requested method",
				}
			}
		}
		s.log.Warnf("requested method %q not in candidates, falling back to scoring", userMethod)
	}

	// 2. Stain scenarios prefer the stain-focused subset.
	stainScenario := isStainScenario(queryText, dirtType)
	scored := candidates
	reason := "highest combined score"
	if stainScenario {
		subset := filterMethods(candidates, models.StainFocusedMethods)
		if len(subset) > 0 {
			scored = subset
			reason = "stain scenario, stain-focused methods preferred"
		} else if isWool && constraints.Gentle() {
			// Wool stain with gentle constraints and no stain-focused method
			// in the corpus: synthesize spot_clean ahead of all corpus
			// candidates. The corpus candidates stay visible at 0.3x.
			return s.synthesizeSpotClean(candidates, queryText, dirtType)
		}
	}

	// 3. Gentle constraints narrow to the gentle allowlist when possible.
	if constraints.Gentle() {
		gentle := filterMethods(scored, models.GentleMethods)
		if len(gentle) > 0 {
			scored = gentle
			if reason == "highest combined score" {
				reason = "gentle constraint applied, highest combined score"
			}
		}
	}

	// 4. Score and rank.
	ranked := s.scoreCandidates(scored, queryText, dirtType, stainScenario)
	if len(ranked) == 0 {
		// 5. Nothing survived; fall back to best corpus coverage.
		best := bestByCoverage(candidates)
		return models.MethodSelectionResult{
			ChosenMethod:    best.CleaningMethod,
			Candidates:      []models.MethodScore{{Method: best.CleaningMethod, Score: 0}},
			SelectionReason: "fallback to best corpus coverage",
		}
	}

	return models.MethodSelectionResult{
		ChosenMethod:    ranked[0].Method,
		Candidates:      ranked,
		SelectionReason: reason,
	}
}

// synthesizeSpotClean fabricates a spot_clean method absent from the corpus.
// This is the engine's sole generative behavior, triggered only for wool
// stains under gentle constraints.
func (s *MethodSelector) synthesizeSpotClean(candidates []models.MethodCandidate, queryText, dirtType string) models.MethodSelectionResult {
	s.log.Infof("synthesizing spot_clean for wool stain under gentle constraints")
	scores := []models.MethodScore{{Method: "spot_clean", Score: 1.0}}
	for _, ranked := range s.scoreCandidates(candidates, queryText, dirtType, true) {
		scores = append(scores, models.MethodScore{Method: ranked.Method, Score: ranked.Score * 0.3})
	}
	return models.MethodSelectionResult{
		ChosenMethod:    "spot_clean",
		Candidates:      scores,
		SelectionReason: "synthesized spot_clean for wool stain under gentle constraints",
	}
}

// scoreCandidates computes combined scores and returns them sorted
// descending. The sort is stable so ties break by input order.
func (s *MethodSelector) scoreCandidates(candidates []models.MethodCandidate, queryText, dirtType string, stainScenario bool) []models.MethodScore {
	scores := make([]models.MethodScore, 0, len(candidates))
	for _, c := range candidates {
		rel := methodRelevance(c.CleaningMethod, queryText, dirtType)
		if stainScenario && c.CleaningMethod == "vacuum" {
			rel -= vacuumStainPenalty
		}
		combined := 2.0*rel + 0.5*math.Min(float64(c.DocumentCount)/50.0, 1.0) + 0.5*c.AvgConfidence
		scores = append(scores, models.MethodScore{Method: c.CleaningMethod, Score: combined})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// methodRelevance scores how well a method fits the query and dirt type,
// clamped to [0,1].
func methodRelevance(method, queryText, dirtType string) float64 {
	query := strings.ToLower(queryText)
	score := 0.0

	for _, hint := range methodHintPhrases[method] {
		if strings.Contains(query, hint) {
			score += 0.3
			break
		}
	}

	switch dirtType {
	case "stain", "spill":
		switch method {
		case "spot_clean":
			score += 0.5
		case "scrub", "hand_wash":
			score += 0.2
		case "vacuum":
			score -= 0.3
		}
	case "dust", "pet_hair":
		switch method {
		case "vacuum":
			score += 0.4
		case "wipe":
			score += 0.2
		}
	case "grease", "mold":
		switch method {
		case "scrub", "steam_clean":
			score += 0.3
		case "wipe":
			score += 0.1
		}
	}

	if strings.Contains(query, "deep clean") {
		switch method {
		case "steam_clean":
			score += 0.4
		case "vacuum":
			score -= 0.2
		}
	}
	if strings.Contains(query, "maintenance") || strings.Contains(query, "routine") {
		switch method {
		case "vacuum":
			score += 0.3
		case "spot_clean":
			score -= 0.2
		}
	}
	if strings.Contains(query, "remove") || strings.Contains(query, "treat") {
		switch method {
		case "spot_clean", "scrub":
			score += 0.2
		}
	}

	return math.Max(0.0, math.Min(1.0, score))
}

// isStainScenario classifies the request from dirt type or query wording.
func isStainScenario(queryText, dirtType string) bool {
	if dirtType == "stain" {
		return true
	}
	query := strings.ToLower(queryText)
	for _, keyword := range stainQueryKeywords {
		if strings.Contains(query, keyword) {
			return true
		}
	}
	return false
}

// filterMethods keeps candidates whose method is in the allowed set,
// preserving input order.
func filterMethods(candidates []models.MethodCandidate, allowed []string) []models.MethodCandidate {
	allowedSet := make(map[string]bool, len(allowed))
	for _, m := range allowed {
		allowedSet[m] = true
	}
	var kept []models.MethodCandidate
	for _, c := range candidates {
		if allowedSet[c.CleaningMethod] {
			kept = append(kept, c)
		}
	}
	return kept
}

// bestByCoverage picks the candidate with the highest
// (document_count, avg_confidence) tuple.
func bestByCoverage(candidates []models.MethodCandidate) models.MethodCandidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.DocumentCount > best.DocumentCount ||
			(c.DocumentCount == best.DocumentCount && c.AvgConfidence > best.AvgConfidence) {
			best = c
		}
	}
	return best
}
