package models

// Canonical surface types used as join keys against the corpus.
var CanonicalSurfaces = []string{
	"carpet",
	"hardwood",
	"tile",
	"upholstery",
	"glass",
	"countertop",
	"wall",
	"appliance",
}

// Canonical dirt types.
var CanonicalDirtTypes = []string{
	"stain",
	"dust",
	"pet_hair",
	"grease",
	"mold",
	"dirt",
	"odor",
	"spill",
}

// Canonical cleaning methods.
var CanonicalMethods = []string{
	"vacuum",
	"spot_clean",
	"scrub",
	"wipe",
	"hand_wash",
	"steam_clean",
	"mop",
	"polish",
}

// StainFocusedMethods are preferred over vacuum when the scenario involves a stain.
var StainFocusedMethods = []string{"spot_clean", "scrub", "wipe", "hand_wash"}

// GentleMethods are allowed when constraints request gentle or chemical-free cleaning.
var GentleMethods = []string{"spot_clean", "wipe", "vacuum", "hand_wash"}

// Scenario is the (surface, dirt, method) triple plus originating query text
// that a workflow is generated for. CleaningMethod is empty until method
// selection completes. A scenario is mutated at most once, when a
// similar-scenario fallback substitutes its dimensions, and is immutable
// thereafter.
type Scenario struct {
	SurfaceType     string `json:"surface_type"`
	DirtType        string `json:"dirt_type"`
	CleaningMethod  string `json:"cleaning_method,omitempty"`
	NormalizedQuery string `json:"normalized_query"`
	IsWool          bool   `json:"is_wool"`
}

// Constraints holds the caller-supplied planning constraints.
type Constraints struct {
	NoBleach         bool   `json:"no_bleach,omitempty"`
	NoHarshChemicals bool   `json:"no_harsh_chemicals,omitempty"`
	GentleOnly       bool   `json:"gentle_only,omitempty"`
	PreferredMethod  string `json:"preferred_method,omitempty"`
}

// Gentle reports whether the constraints request gentle or chemical-free methods.
func (c Constraints) Gentle() bool {
	return c.NoHarshChemicals || c.GentleOnly
}

// IsCanonicalSurface reports whether value is a canonical surface type.
func IsCanonicalSurface(value string) bool { return containsString(CanonicalSurfaces, value) }

// IsCanonicalDirtType reports whether value is a canonical dirt type.
func IsCanonicalDirtType(value string) bool { return containsString(CanonicalDirtTypes, value) }

// IsCanonicalMethod reports whether value is a canonical cleaning method.
func IsCanonicalMethod(value string) bool { return containsString(CanonicalMethods, value) }

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
