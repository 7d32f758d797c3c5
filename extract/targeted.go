package extract

import (
	"strings"

	"github.com/tbxark/estimagent/types"
)

// MaxTargetedTokens is the longest reply still treated as a direct answer to
// the pending question.
const MaxTargetedTokens = 3

var questionKeywords = []struct {
	field    string
	keywords []string
}{
	{types.FieldArea, []string{"square footage", "square feet", "sq ft", "area", "how big", "size"}},
	{types.FieldRegion, []string{"region", "located", "location", "where"}},
	{types.FieldMaterial, []string{"material"}},
	{types.FieldTimeline, []string{"timeline", "how soon", "schedule"}},
	{types.FieldService, []string{"type of service", "what service", "which service", "kind of service"}},
}

// TargetField reports which field a question asks about. It returns "" when
// the question mentions no field or more than one.
func TargetField(question string) string {
	q := strings.ToLower(question)
	if q == "" {
		return ""
	}
	target := ""
	for _, entry := range questionKeywords {
		for _, kw := range entry.keywords {
			if !strings.Contains(q, kw) {
				continue
			}
			if target != "" && target != entry.field {
				return ""
			}
			target = entry.field
			break
		}
	}
	return target
}

// Targeted parses a short reply as the answer to the pending question.
// It yields at most one fact.
func Targeted(question, reply string) types.Facts {
	out := types.Facts{}
	reply = strings.TrimSpace(reply)
	if reply == "" || len(strings.Fields(reply)) > MaxTargetedTokens {
		return out
	}
	field := TargetField(question)
	var (
		value string
		ok    bool
	)
	switch field {
	case types.FieldArea:
		value, ok = parseBareNumber(reply)
	case types.FieldRegion:
		value, ok = NormalizeRegion(reply)
	case types.FieldMaterial:
		value, ok = NormalizeMaterial(reply)
	case types.FieldTimeline:
		value, ok = NormalizeTimeline(reply)
	case types.FieldService:
		value, ok = NormalizeService(reply)
		if !ok {
			value, ok = bareWord(reply)
		}
	}
	if ok {
		out[field] = value
	}
	return out
}

// bareWord accepts a single alphabetic word, lowercased.
func bareWord(reply string) (string, bool) {
	word := strings.ToLower(strings.Trim(reply, " .,!?"))
	if word == "" || strings.ContainsAny(word, " \t") {
		return "", false
	}
	for _, r := range word {
		if (r < 'a' || r > 'z') && r != '-' {
			return "", false
		}
	}
	return word, true
}
