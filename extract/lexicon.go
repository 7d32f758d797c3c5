package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Canonical region values.
const (
	RegionNortheast = "northeast"
	RegionMidwest   = "midwest"
	RegionSouth     = "south"
	RegionWest      = "west"
)

// Canonical material values.
const (
	MaterialAsphalt = "asphalt"
	MaterialMetal   = "metal"
	MaterialTile    = "tile"
	MaterialSlate   = "slate"
)

// Canonical timeline values.
const (
	TimelineStandard  = "standard"
	TimelineExpedited = "expedited"
	TimelineEmergency = "emergency"
)

type term struct {
	phrase    string
	canonical string
	re        *regexp.Regexp
}

// lexicon resolves free text to a canonical value. When several phrases
// match, the one starting earliest wins and ties go to the longer phrase, so
// "south dakota" beats "south" and "no rush" beats "rush".
type lexicon struct {
	terms []term
}

func newLexicon(entries map[string][]string) *lexicon {
	lx := &lexicon{}
	for canonical, phrases := range entries {
		for _, p := range phrases {
			lx.terms = append(lx.terms, term{
				phrase:    p,
				canonical: canonical,
				re:        regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`),
			})
		}
	}
	sort.Slice(lx.terms, func(i, j int) bool {
		if len(lx.terms[i].phrase) != len(lx.terms[j].phrase) {
			return len(lx.terms[i].phrase) > len(lx.terms[j].phrase)
		}
		return lx.terms[i].phrase < lx.terms[j].phrase
	})
	return lx
}

// find returns the canonical value of the earliest match in text.
func (lx *lexicon) find(text string) (string, bool) {
	text = strings.ToLower(text)
	best, bestPos := "", -1
	for _, t := range lx.terms {
		loc := t.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		// terms are sorted longest first, so an equal position keeps the longer phrase
		if bestPos == -1 || loc[0] < bestPos {
			best, bestPos = t.canonical, loc[0]
		}
	}
	return best, bestPos >= 0
}

var serviceLexicon = newLexicon(map[string][]string{
	"roofing":  {"roofing", "roof", "roofs", "reroof", "re-roof", "roofer"},
	"siding":   {"siding", "cladding"},
	"painting": {"painting", "paint", "repaint"},
	"flooring": {"flooring", "floor", "floors", "hardwood floors"},
})

var regionLexicon = newLexicon(map[string][]string{
	RegionNortheast: {
		"northeast", "north east", "north-east", "northeastern", "new england", "ne",
		"maine", "new hampshire", "vermont", "massachusetts", "rhode island", "connecticut",
		"new york", "new jersey", "pennsylvania",
		"boston", "nyc", "philadelphia", "pittsburgh", "hartford", "providence", "buffalo",
		"ny", "nj", "ct", "vt", "nh", "ri",
	},
	RegionMidwest: {
		"midwest", "mid west", "mid-west", "midwestern", "mw",
		"ohio", "indiana", "illinois", "michigan", "wisconsin", "minnesota", "iowa",
		"missouri", "kansas", "nebraska", "north dakota", "south dakota",
		"chicago", "detroit", "milwaukee", "minneapolis", "cleveland", "columbus",
		"indianapolis", "kansas city", "omaha", "st louis", "saint louis",
		"il", "mi", "wi", "mn", "ia", "mo", "ks",
	},
	RegionSouth: {
		"south", "southern", "southeast", "south east", "south-east", "southeastern",
		"texas", "florida", "georgia", "alabama", "mississippi", "louisiana", "arkansas",
		"tennessee", "kentucky", "north carolina", "south carolina", "virginia",
		"west virginia", "oklahoma", "maryland", "delaware", "washington dc",
		"houston", "dallas", "austin", "san antonio", "miami", "orlando", "tampa",
		"atlanta", "nashville", "charlotte", "new orleans", "memphis", "baltimore",
		"tx", "fl", "ga", "nc", "sc", "tn", "ky", "va", "md",
	},
	RegionWest: {
		"west", "western", "west coast", "southwest", "south west", "northwest",
		"pacific northwest", "mountain west",
		"california", "oregon", "washington", "nevada", "arizona", "utah", "colorado",
		"idaho", "montana", "wyoming", "new mexico", "alaska", "hawaii",
		"los angeles", "san francisco", "san diego", "seattle", "portland", "denver",
		"phoenix", "las vegas", "salt lake city", "sacramento", "boise",
		"ca", "wa", "nv", "az", "nm",
	},
})

var materialLexicon = newLexicon(map[string][]string{
	MaterialAsphalt: {"asphalt", "shingle", "shingles", "architectural", "composition", "3-tab", "three-tab", "three tab"},
	MaterialMetal:   {"metal", "steel", "standing seam", "tin", "aluminum", "aluminium", "copper"},
	MaterialTile:    {"tile", "tiles", "clay", "ceramic", "terracotta", "terra cotta", "concrete tile", "spanish tile"},
	MaterialSlate:   {"slate", "slates"},
})

var timelineLexicon = newLexicon(map[string][]string{
	TimelineEmergency: {"emergency", "asap", "as soon as possible", "immediately", "right away", "right now", "leaking now"},
	TimelineExpedited: {"expedited", "expedite", "rush", "rushed", "urgent", "urgently", "quick", "quickly", "fast", "soon", "priority"},
	TimelineStandard:  {"standard", "normal", "regular", "flexible", "no rush", "no hurry", "not urgent", "whenever", "not in a hurry"},
})

// NormalizeRegion maps a region name, abbreviation, state or city to a
// canonical region.
func NormalizeRegion(value string) (string, bool) {
	return regionLexicon.find(value)
}

func NormalizeMaterial(value string) (string, bool) {
	return materialLexicon.find(value)
}

// NormalizeTimeline accepts timeline keywords and durations such as
// "3 weeks" or "a month".
func NormalizeTimeline(value string) (string, bool) {
	if v, ok := timelineLexicon.find(value); ok {
		return v, true
	}
	return timelineFromDuration(value)
}

func NormalizeService(value string) (string, bool) {
	return serviceLexicon.find(value)
}
