package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tbxark/estimagent/types"
)

var (
	areaPattern     = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d+))?\s*(?:sq\.?\s*ft\.?|sqft|sq\.?\s*feet|square\s+f(?:ee|oo)t|ft2|ft²)`)
	numberPattern   = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)
	durationPattern = regexp.MustCompile(`(?i)\b(?:(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|couple of|few)\s+)?(day|days|week|weeks|month|months)\b`)
)

var wordNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"couple of": 2, "few": 3,
}

var unitDays = map[string]int{
	"day": 1, "days": 1, "week": 7, "weeks": 7, "month": 30, "months": 30,
}

// General scans free text for every field it can recognise.
func General(text string) types.Facts {
	out := types.Facts{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	if v, ok := NormalizeService(text); ok {
		out[types.FieldService] = v
	}
	if v, ok := parseAreaWithUnit(text); ok {
		out[types.FieldArea] = v
	}
	if v, ok := NormalizeRegion(text); ok {
		out[types.FieldRegion] = v
	}
	if v, ok := NormalizeMaterial(text); ok {
		out[types.FieldMaterial] = v
	}
	if v, ok := NormalizeTimeline(text); ok {
		out[types.FieldTimeline] = v
	}
	return out
}

func parseAreaWithUnit(text string) (string, bool) {
	m := areaPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	num := strings.ReplaceAll(m[1], ",", "")
	if m[2] != "" {
		num += "." + m[2]
	}
	return formatArea(num)
}

// parseBareNumber reads the first number in text, units optional.
func parseBareNumber(text string) (string, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return "", false
	}
	return formatArea(strings.ReplaceAll(m, ",", ""))
}

func formatArea(num string) (string, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// timelineFromDuration maps "N days/weeks/months" onto a timeline: up to two
// weeks is an emergency, up to 45 days expedited, anything longer standard.
func timelineFromDuration(text string) (string, bool) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", false
	}
	count := 1
	if m[1] != "" {
		if n, err := strconv.Atoi(m[1]); err == nil {
			count = n
		} else if n, ok := wordNumbers[m[1]]; ok {
			count = n
		}
	}
	if count <= 0 {
		return "", false
	}
	days := count * unitDays[m[2]]
	switch {
	case days <= 14:
		return TimelineEmergency, true
	case days <= 45:
		return TimelineExpedited, true
	default:
		return TimelineStandard, true
	}
}
