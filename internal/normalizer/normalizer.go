// Package normalizer maps free-text cleaning terms onto the canonical
// surface, dirt, and method values used as corpus join keys.
package normalizer

import (
	"sort"
	"strings"

	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
)

// Normalizer resolves free-text terms against read-only keyword tables.
// The tables are built once at construction and never mutated, so a single
// Normalizer is safe for unlimited concurrent readers.
type Normalizer struct {
	surfaceKeywords map[string]string
	dirtKeywords    map[string]string
	methodKeywords  map[string]string
	log             logger.Logger
}

// woolTokens flag scenarios that need wool-specific handling.
var woolTokens = []string{"wool", "woolen", "woollen", "merino", "wool carpet", "wool rug"}

// New creates a Normalizer with the built-in keyword tables.
func New(log logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Discard()
	}
	return &Normalizer{
		surfaceKeywords: surfaceKeywordTable(),
		dirtKeywords:    dirtKeywordTable(),
		methodKeywords:  methodKeywordTable(),
		log:             log,
	}
}

func surfaceKeywordTable() map[string]string {
	return map[string]string{
		"carpet":       "carpet",
		"carpeting":    "carpet",
		"rug":          "carpet",
		"area rug":     "carpet",
		"wool carpet":  "carpet",
		"hardwood":     "hardwood",
		"wood floor":   "hardwood",
		"wooden floor": "hardwood",
		"parquet":      "hardwood",
		"laminate":     "hardwood",
		"tile":         "tile",
		"tiles":        "tile",
		"grout":        "tile",
		"ceramic":      "tile",
		"porcelain":    "tile",
		"upholstery":   "upholstery",
		"sofa":         "upholstery",
		"couch":        "upholstery",
		"armchair":     "upholstery",
		"cushion":      "upholstery",
		"fabric chair": "upholstery",
		"glass":        "glass",
		"window":       "glass",
		"mirror":       "glass",
		"countertop":   "countertop",
		"counter":      "countertop",
		"worktop":      "countertop",
		"granite":      "countertop",
		"marble":       "countertop",
		"wall":         "wall",
		"walls":        "wall",
		"painted wall": "wall",
		"wallpaper":    "wall",
		"appliance":    "appliance",
		"oven":         "appliance",
		"stove":        "appliance",
		"stovetop":     "appliance",
		"microwave":    "appliance",
		"refrigerator": "appliance",
		"fridge":       "appliance",
		"dishwasher":   "appliance",
	}
}

func dirtKeywordTable() map[string]string {
	return map[string]string{
		"stain":    "stain",
		"stains":   "stain",
		"stained":  "stain",
		"wine":     "stain",
		"red wine": "stain",
		"coffee":   "stain",
		"ink":      "stain",
		"blood":    "stain",
		"juice":    "stain",
		"dust":     "dust",
		"dusty":    "dust",
		"pet hair": "pet_hair",
		"dog hair": "pet_hair",
		"cat hair": "pet_hair",
		"fur":      "pet_hair",
		"grease":   "grease",
		"greasy":   "grease",
		"oil":      "grease",
		"oily":     "grease",
		"mold":     "mold",
		"mould":    "mold",
		"mildew":   "mold",
		"dirt":     "dirt",
		"mud":      "dirt",
		"grime":    "dirt",
		"soil":     "dirt",
		"odor":     "odor",
		"odour":    "odor",
		"smell":    "odor",
		"stink":    "odor",
		"spill":    "spill",
		"spilled":  "spill",
		"spillage": "spill",
	}
}

func methodKeywordTable() map[string]string {
	return map[string]string{
		"vacuum":      "vacuum",
		"vacuuming":   "vacuum",
		"hoover":      "vacuum",
		"spot clean":  "spot_clean",
		"spot-clean":  "spot_clean",
		"spot treat":  "spot_clean",
		"blot":        "spot_clean",
		"scrub":       "scrub",
		"scrubbing":   "scrub",
		"wipe":        "wipe",
		"wiping":      "wipe",
		"wipe down":   "wipe",
		"hand wash":   "hand_wash",
		"hand-wash":   "hand_wash",
		"handwash":    "hand_wash",
		"steam clean": "steam_clean",
		"steam":       "steam_clean",
		"mop":         "mop",
		"mopping":     "mop",
		"polish":      "polish",
		"polishing":   "polish",
		"buff":        "polish",
	}
}

// NormalizeSurface maps a free-text term to a canonical surface type.
// Returns "" when no mapping exists.
func (n *Normalizer) NormalizeSurface(term string) string {
	return n.normalize(term, n.surfaceKeywords, models.CanonicalSurfaces, "surface")
}

// NormalizeDirt maps a free-text term to a canonical dirt type.
func (n *Normalizer) NormalizeDirt(term string) string {
	return n.normalize(term, n.dirtKeywords, models.CanonicalDirtTypes, "dirt")
}

// NormalizeMethod maps a free-text term to a canonical cleaning method.
func (n *Normalizer) NormalizeMethod(term string) string {
	return n.normalize(term, n.methodKeywords, models.CanonicalMethods, "method")
}

// normalize resolves a term in three passes: exact keyword match, canonical
// passthrough, then substring containment in either direction. First match
// wins; there is no scoring.
func (n *Normalizer) normalize(term string, keywords map[string]string, canonical []string, dimension string) string {
	cleaned := strings.ToLower(strings.TrimSpace(term))
	if cleaned == "" {
		return ""
	}

	if value, ok := keywords[cleaned]; ok {
		return value
	}

	for _, value := range canonical {
		if cleaned == value {
			return value
		}
	}

	// Containment pass runs longest-keyword-first so "wool carpet" is
	// checked before "carpet" regardless of map iteration order.
	for _, keyword := range sortedKeywords(keywords) {
		if strings.Contains(cleaned, keyword) || strings.Contains(keyword, cleaned) {
			return keywords[keyword]
		}
	}

	n.log.Debugf("no %s mapping for term %q", dimension, term)
	return ""
}

// ExtractAndNormalize scans text for the first keyword hit per dimension.
// The three dimensions are resolved independently, not jointly.
func (n *Normalizer) ExtractAndNormalize(text string) (surface, dirt, method string) {
	lowered := strings.ToLower(text)
	surface = firstHit(lowered, n.surfaceKeywords)
	dirt = firstHit(lowered, n.dirtKeywords)
	method = firstHit(lowered, n.methodKeywords)
	return surface, dirt, method
}

// sortedKeywords returns the table's keys ordered longest first, then
// lexically, for deterministic matching.
func sortedKeywords(keywords map[string]string) []string {
	keys := make([]string, 0, len(keywords))
	for k := range keywords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// firstHit returns the canonical value of the keyword occurring earliest in
// the text. Longer keywords win position ties so "wool carpet" beats "carpet"
// when both start at the same offset.
func firstHit(text string, keywords map[string]string) string {
	best := ""
	bestPos := len(text) + 1
	bestLen := 0
	for keyword, value := range keywords {
		pos := strings.Index(text, keyword)
		if pos < 0 {
			continue
		}
		if pos < bestPos || (pos == bestPos && len(keyword) > bestLen) {
			best = value
			bestPos = pos
			bestLen = len(keyword)
		}
	}
	return best
}

// DetectWoolNuance reports whether the text mentions wool material.
func (n *Normalizer) DetectWoolNuance(text string) bool {
	lowered := strings.ToLower(text)
	for _, token := range woolTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}
